package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Warden/internal/domain/notification"
)

func TestEmailEventRoundTrip(t *testing.T) {
	in := notification.Email{
		Kind:  notification.KindPasswordReset,
		To:    "a@x.com",
		Name:  "Ann",
		Token: "tok",
		At:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	msg, err := EncodeEmail(in)
	require.NoError(t, err)

	wire, err := proto.Marshal(msg)
	require.NoError(t, err)

	var got notification.Email
	h := StructHandler(func(_ context.Context, key []byte, s *structpb.Struct) error {
		assert.Equal(t, "k", string(key))
		got, err = DecodeEmail(s)
		return err
	})
	require.NoError(t, h(context.Background(), []byte("k"), wire))
	assert.Equal(t, in, got)
}

func TestDecodeEmailRejectsIncomplete(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"kind": "welcome"})
	require.NoError(t, err)
	_, err = DecodeEmail(s)
	assert.ErrorIs(t, err, ErrBadEmailEvent)

	s, err = structpb.NewStruct(map[string]any{"kind": "welcome", "to": "a@x.com", "at": "yesterday"})
	require.NoError(t, err)
	_, err = DecodeEmail(s)
	assert.ErrorIs(t, err, ErrBadEmailEvent)
}

func TestProtoHandlerRejectsGarbage(t *testing.T) {
	h := StructHandler(func(context.Context, []byte, *structpb.Struct) error { return nil })
	assert.Error(t, h(context.Background(), nil, []byte{0xff, 0xff, 0xff}))
}
