package feed

import (
	"context"
	"time"
)

// Bridge is the downstream, bounded, cancellable channel carrying
// TimeSlices to whatever consumes them (spec §6). Add may block on
// backpressure; Wait lets the frontier hold off firing universe
// selection until the downstream has drained enough to preserve
// ordering.
type Bridge interface {
	Add(ctx context.Context, slice TimeSlice) error
	Wait(ctx context.Context) error
}

// ChannelBridge is the default Bridge: a bounded channel of TimeSlices.
// Grounded on the teacher's broadcast channel (src/server/fastAPI.go
// NewFastAPIServer: `broadcast chan *models.MLatestData, 256`), but Add
// blocks on backpressure instead of that channel's fire-and-forget
// send — spec §6 requires ordering against a slow downstream, which a
// drop-on-full send would break.
type ChannelBridge struct {
	ch chan TimeSlice
}

func NewChannelBridge(capacity int) *ChannelBridge {
	return &ChannelBridge{ch: make(chan TimeSlice, capacity)}
}

func (b *ChannelBridge) Add(ctx context.Context, slice TimeSlice) error {
	select {
	case b.ch <- slice:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the channel has room for at least one more slice,
// without consuming one — used by the frontier before firing universe
// selection so the selection callback observes data no newer than what
// the downstream is about to receive.
func (b *ChannelBridge) Wait(ctx context.Context) error {
	for len(b.ch) >= cap(b.ch) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

// NextSlice is the blocking, cancellable consumer cursor spec §6
// requires of the downstream.
func (b *ChannelBridge) NextSlice(ctx context.Context) (TimeSlice, error) {
	select {
	case s := <-b.ch:
		return s, nil
	case <-ctx.Done():
		return TimeSlice{}, ctx.Err()
	}
}
