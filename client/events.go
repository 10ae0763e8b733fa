package client

import (
	"context"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
)

type eventItem struct {
	event *protocol.Event
	err   error
}

// EventStream delivers the events of one connection in arrival order. It
// is closed when the connection goes away.
type EventStream struct {
	ch chan eventItem

	dropped  atomic.Uint64
	overflow atomic.Bool

	log *zap.Logger
}

func newEventStream(size int, log *zap.Logger) *EventStream {
	return &EventStream{
		ch:  make(chan eventItem, size),
		log: log,
	}
}

// Recv returns the next event. After events were dropped it returns
// ErrQueueFull once, then resumes with the events that fit. It returns
// io.EOF once the connection is gone and every queued event was read, after
// a last ErrQueueFull if drops were never reported.
func (s *EventStream) Recv(ctx context.Context) (*protocol.Event, error) {
	select {
	case item, ok := <-s.ch:
		if !ok {
			if s.overflow.CompareAndSwap(true, false) {
				return nil, queueFullItem().err
			}

			return nil, io.EOF
		}

		return item.event, item.err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (s *EventStream) Dropped() uint64 {
	return s.dropped.Load()
}

// push never blocks, the reader must keep draining the socket.
func (s *EventStream) push(ev *protocol.Event) {
	if s.overflow.Load() {
		select {
		case s.ch <- queueFullItem():
			s.overflow.Store(false)
		default:
		}
	}

	select {
	case s.ch <- eventItem{event: ev}:
	default:
		n := s.dropped.Add(1)
		s.overflow.Store(true)
		s.log.Warn("Event queue full, dropping event",
			zap.String("event", ev.Name()),
			zap.Uint64("dropped", n))
	}
}

func (s *EventStream) close() {
	close(s.ch)
}

func queueFullItem() eventItem {
	return eventItem{err: protocol.NewError(protocol.ErrKindQueueFull, "events were dropped", nil)}
}
