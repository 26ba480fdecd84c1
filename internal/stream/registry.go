package stream

import (
	"sync"

	"github.com/akolanti/StreamAPI/internal/adapter/utils"
	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

// Registry tracks active streams and their subscriber sets. It is the only
// place that mutates the stream->subscription relation; the inverse index by
// connection keeps disconnect O(subscriptions of that connection) instead of
// a scan over every stream.
type Registry struct {
	mu         sync.RWMutex
	streams    map[string]map[string]*Subscription
	byConn     map[string]map[string]*Subscription
	queueLimit int
	policy     config.OverflowPolicyType
	logger     *logger_i.Logger
}

type StreamInfo struct {
	StreamId    string `json:"stream_id"`
	Subscribers int    `json:"subscribers"`
}

func NewRegistry() *Registry {
	return &Registry{
		streams:    make(map[string]map[string]*Subscription),
		byConn:     make(map[string]map[string]*Subscription),
		queueLimit: config.SubscriberQueueLimit,
		policy:     config.OverflowPolicy,
		logger:     logger_i.NewLogger("StreamRegistry"),
	}
}

func (r *Registry) Register(streamId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(streamId)
}

func (r *Registry) registerLocked(streamId string) map[string]*Subscription {
	subs, exists := r.streams[streamId]
	if !exists {
		subs = make(map[string]*Subscription)
		r.streams[streamId] = subs
		metrics.IncrementActiveStreams()
		r.logger.Debug("registered stream", "streamId", streamId)
	}
	return subs
}

// Deregister removes the stream and detaches all of its subscriptions. The
// caller decides how to close them; the registry will not enqueue to them
// again.
func (r *Registry) Deregister(streamId string) []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.streams[streamId]
	if !exists {
		return nil
	}
	delete(r.streams, streamId)
	metrics.DecrementActiveStreams()

	detached := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		detached = append(detached, sub)
		r.removeFromConnLocked(sub)
	}
	r.logger.Debug("deregistered stream", "streamId", streamId, "subscribers", len(detached))
	return detached
}

// Subscribe creates the stream entry lazily so webhook and client-subscribe
// may arrive in either order.
func (r *Registry) Subscribe(streamId string, connId string) *Subscription {
	sub := newSubscription(utils.GetNewUUID(), streamId, connId, r.queueLimit, r.policy)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerLocked(streamId)[sub.Id] = sub

	conns, exists := r.byConn[connId]
	if !exists {
		conns = make(map[string]*Subscription)
		r.byConn[connId] = conns
	}
	conns[sub.Id] = sub

	metrics.IncrementActiveSubscribers()
	return sub
}

func (r *Registry) Unsubscribe(sub *Subscription) {
	r.mu.Lock()
	if subs, exists := r.streams[sub.StreamId]; exists {
		delete(subs, sub.Id)
	}
	r.removeFromConnLocked(sub)
	r.mu.Unlock()

	sub.close(CloseClientGone)
}

// DropConnection removes every subscription held by a connection. Called on
// client disconnect, immediately and with no grace period.
func (r *Registry) DropConnection(connId string) {
	r.mu.Lock()
	subs := r.byConn[connId]
	delete(r.byConn, connId)
	for _, sub := range subs {
		if streamSubs, exists := r.streams[sub.StreamId]; exists {
			delete(streamSubs, sub.Id)
		}
		metrics.DecrementActiveSubscribers()
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close(CloseClientGone)
	}
}

// Fanout delivers one event to every subscriber of the stream. Zero
// subscribers is a no-op, never an error - events are not buffered for late
// subscribers. The subscriber set is snapshotted under the read lock; the
// per-subscriber enqueues happen outside it.
func (r *Registry) Fanout(streamId string, event streamModel.TranscriptionEvent) int {
	r.mu.RLock()
	subs, exists := r.streams[streamId]
	if !exists || len(subs) == 0 {
		r.mu.RUnlock()
		return 0
	}
	snapshot := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		if sub.enqueue(event) {
			delivered++
		}
	}
	metrics.IncrementEventsFannedOut(streamId)
	return delivered
}

func (r *Registry) ActiveStreams() []StreamInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]StreamInfo, 0, len(r.streams))
	for id, subs := range r.streams {
		infos = append(infos, StreamInfo{StreamId: id, Subscribers: len(subs)})
	}
	return infos
}

func (r *Registry) removeFromConnLocked(sub *Subscription) {
	conns, exists := r.byConn[sub.ConnId]
	if !exists {
		return
	}
	if _, held := conns[sub.Id]; !held {
		return
	}
	delete(conns, sub.Id)
	if len(conns) == 0 {
		delete(r.byConn, sub.ConnId)
	}
	//only an actual removal moves the gauge; a redundant unsubscribe racing
	//a connection drop must not decrement twice
	metrics.DecrementActiveSubscribers()
}
