package storectx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct{}

func TestDetachIgnoresCallerCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "req-1"))
	cancel()

	ctx, release := Detach(parent)
	defer release()

	require.NoError(t, ctx.Err())
	assert.Equal(t, "req-1", ctx.Value(key{}))
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(Timeout), deadline, time.Second)
}
