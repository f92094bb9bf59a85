package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_EmptyAddr(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNew_Ping(t *testing.T) {
	c, err := New(context.Background(), Config{Addr: "localhost:6379", DialTimeout: 300 * time.Millisecond})
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	defer c.Close()

	require.NoError(t, Pinger(c)(context.Background()))
}
