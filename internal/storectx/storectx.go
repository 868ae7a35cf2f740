// Package storectx derives the context handed to stores inside a critical
// section. Store calls ignore the caller's cancellation and run under their
// own bound instead.
package storectx

import (
	"context"
	"time"
)

// Timeout bounds a single store call made on behalf of an operation.
const Timeout = 10 * time.Second

// Detach returns a context carrying ctx's values but not its cancellation,
// limited to Timeout.
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), Timeout)
}
