package kafka

import (
	"context"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return err
		}
		return handle(ctx, key, msg)
	}
}

// StructHandler decodes a structpb.Struct payload.
func StructHandler(handle func(context.Context, []byte, *structpb.Struct) error) Handler {
	return ProtoHandler(func() *structpb.Struct { return &structpb.Struct{} }, handle)
}
