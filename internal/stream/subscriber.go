package stream

import (
	"sync"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/akolanti/StreamAPI/internal/metrics"
)

type CloseReason string

const (
	CloseStreamEnded CloseReason = "stream_ended"
	CloseOverflow    CloseReason = "queue_overflow"
	CloseClientGone  CloseReason = "client_disconnected"
)

// Subscription binds one client connection to one stream. It owns a bounded
// outbound queue so a slow or dead subscriber never blocks the webhook caller
// or its peers.
type Subscription struct {
	Id       string
	StreamId string
	ConnId   string

	mu     sync.Mutex
	queue  chan streamModel.TranscriptionEvent
	closed bool
	reason CloseReason
	policy config.OverflowPolicyType
}

func newSubscription(id, streamId, connId string, limit int, policy config.OverflowPolicyType) *Subscription {
	return &Subscription{
		Id:       id,
		StreamId: streamId,
		ConnId:   connId,
		queue:    make(chan streamModel.TranscriptionEvent, limit),
		policy:   policy,
	}
}

// Events is consumed by the connection's writer pump. The channel is closed
// once the subscription ends; buffered events drain first, so an end event
// enqueued before close is always delivered.
func (s *Subscription) Events() <-chan streamModel.TranscriptionEvent {
	return s.queue
}

// CloseReason is only meaningful after Events has been drained.
func (s *Subscription) CloseReason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// enqueue never blocks. On a full queue the overflow policy decides: evict
// the oldest queued event for this subscriber only, or tear the subscriber
// down. Returns false once the subscription is closed.
func (s *Subscription) enqueue(event streamModel.TranscriptionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.queue <- event:
		return true
	default:
	}

	if s.policy == config.OverflowDisconnect {
		s.closeLocked(CloseOverflow)
		return false
	}

	//drop-oldest: bounded staleness, the newest events win. Evict until the
	//new event fits; returning true with the event lost is never an option.
	for {
		select {
		case s.queue <- event:
			return true
		default:
		}
		select {
		case <-s.queue:
			metrics.IncrementSubscriberDrops()
		default:
		}
	}
}

func (s *Subscription) close(reason CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

func (s *Subscription) closeLocked(reason CloseReason) {
	if s.closed {
		return
	}
	s.closed = true
	s.reason = reason
	close(s.queue)
}
