package storage

import (
	"context"
	"errors"

	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

// Sink receives each assembled record. A record counts as emitted only once
// Emit returns nil.
type Sink interface {
	Emit(ctx context.Context, rec types.OutputRecord) error
}

// MultiSink emits to every sink in order and stops at the first failure
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, rec types.OutputRecord) error {
	for _, s := range m {
		if err := s.Emit(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ChannelSink hands records to an in-process consumer
type ChannelSink struct {
	ch chan<- types.OutputRecord
}

// NewChannelSink wraps ch; the caller owns closing it
func NewChannelSink(ch chan<- types.OutputRecord) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (c *ChannelSink) Emit(ctx context.Context, rec types.OutputRecord) error {
	if c.ch == nil {
		return errors.New("channel sink has no channel")
	}
	select {
	case c.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
