// Package notify delivers committed notifications out of band: email through
// Resend and realtime pushes through Redis pub/sub.
package notify

import (
	"context"
	"errors"

	"github.com/anonto42/gatherly/backend/internal/models"
)

// Channel is one delivery path.
type Channel interface {
	Name() string
	Notify(ctx context.Context, n models.Notification) error
}

// Fanout sends every notification to each channel and joins the failures.
type Fanout struct {
	channels []Channel
	record   func(channel string, err error)
}

// NewFanout returns a Fanout over channels. record, when non-nil, is told
// the result of each delivery.
func NewFanout(record func(channel string, err error), channels ...Channel) *Fanout {
	return &Fanout{channels: channels, record: record}
}

func (f *Fanout) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, ch := range f.channels {
		err := ch.Notify(ctx, n)
		if f.record != nil {
			f.record(ch.Name(), err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of configured channels.
func (f *Fanout) Len() int {
	return len(f.channels)
}
