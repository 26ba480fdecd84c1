package stream

import (
	"fmt"
	"sync"
	"testing"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/streamModel"
	"github.com/prometheus/client_golang/prometheus"
)

func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func transcriptEvent(streamId, text string) streamModel.TranscriptionEvent {
	return streamModel.TranscriptionEvent{
		Type:     streamModel.EventTranscript,
		StreamId: streamId,
		Data:     streamModel.TranscriptionData{Text: text},
	}
}

func drain(sub *Subscription) []streamModel.TranscriptionEvent {
	var got []streamModel.TranscriptionEvent
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		default:
			return got
		}
	}
}

func TestFanout_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("s1", "conn-1")

	const n = 20
	for i := 0; i < n; i++ {
		r.Fanout("s1", transcriptEvent("s1", fmt.Sprintf("word-%d", i)))
	}

	got := drain(sub)
	if len(got) != n {
		t.Fatalf("expected %d events, got %d", n, len(got))
	}
	for i, ev := range got {
		want := fmt.Sprintf("word-%d", i)
		if ev.Data.Text != want {
			t.Errorf("event %d out of order: got %q want %q", i, ev.Data.Text, want)
		}
	}
}

func TestFanout_NoSubscribersIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Register("s1")
	if delivered := r.Fanout("s1", transcriptEvent("s1", "hello")); delivered != 0 {
		t.Errorf("expected 0 deliveries, got %d", delivered)
	}
	//unknown stream is equally fine
	if delivered := r.Fanout("ghost", transcriptEvent("ghost", "hello")); delivered != 0 {
		t.Errorf("expected 0 deliveries on unknown stream, got %d", delivered)
	}
}

func TestSubscribe_NoBackfill(t *testing.T) {
	r := NewRegistry()
	r.Register("s1")

	for i := 0; i < 5; i++ {
		r.Fanout("s1", transcriptEvent("s1", fmt.Sprintf("early-%d", i)))
	}

	sub := r.Subscribe("s1", "conn-late")
	r.Fanout("s1", transcriptEvent("s1", "late"))

	got := drain(sub)
	if len(got) != 1 || got[0].Data.Text != "late" {
		t.Fatalf("late subscriber must only see events after joining, got %+v", got)
	}
}

func TestSubscribe_LazyStreamCreation(t *testing.T) {
	r := NewRegistry()
	//no Register call: client subscribe may arrive before the webhook start
	sub := r.Subscribe("s-early", "conn-1")
	if delivered := r.Fanout("s-early", transcriptEvent("s-early", "hi")); delivered != 1 {
		t.Fatalf("expected delivery to lazily-created stream, got %d", delivered)
	}
	got := drain(sub)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestOverflow_DropOldest(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("s1", "conn-1")

	total := config.SubscriberQueueLimit + 10
	for i := 0; i < total; i++ {
		r.Fanout("s1", transcriptEvent("s1", fmt.Sprintf("word-%d", i)))
	}

	got := drain(sub)
	if len(got) != config.SubscriberQueueLimit {
		t.Fatalf("expected queue capped at %d, got %d", config.SubscriberQueueLimit, len(got))
	}
	//the newest events must have won
	last := got[len(got)-1]
	if want := fmt.Sprintf("word-%d", total-1); last.Data.Text != want {
		t.Errorf("expected newest event %q retained, got %q", want, last.Data.Text)
	}
}

func TestDropConnection_RemovesAllSubscriptions(t *testing.T) {
	r := NewRegistry()
	sub1 := r.Subscribe("s1", "conn-1")
	sub2 := r.Subscribe("s2", "conn-1")
	keep := r.Subscribe("s1", "conn-2")

	r.DropConnection("conn-1")

	if delivered := r.Fanout("s1", transcriptEvent("s1", "x")); delivered != 1 {
		t.Errorf("expected only surviving subscriber to receive, got %d deliveries", delivered)
	}
	for _, sub := range []*Subscription{sub1, sub2} {
		drain(sub)
		if sub.CloseReason() != CloseClientGone {
			t.Errorf("expected close reason %q, got %q", CloseClientGone, sub.CloseReason())
		}
	}
	if got := drain(keep); len(got) != 1 {
		t.Errorf("surviving subscriber should have 1 event, got %d", len(got))
	}
}

func TestUnsubscribe_AfterDropConnectionIsIdempotent(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("s1", "conn-1")

	r.DropConnection("conn-1")
	before := gaugeValue(t, "stream_active_subscribers")

	//the subscription is already gone; the gauge must not move again
	r.Unsubscribe(sub)
	if got := gaugeValue(t, "stream_active_subscribers"); got != before {
		t.Errorf("subscriber gauge moved from %v to %v on a redundant unsubscribe", before, got)
	}
	if sub.CloseReason() != CloseClientGone {
		t.Errorf("close reason = %q; want %q", sub.CloseReason(), CloseClientGone)
	}
}

func TestConcurrentFanoutAndSubscribe(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sub := r.Subscribe("s1", fmt.Sprintf("conn-%d", i))
			r.Unsubscribe(sub)
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Fanout("s1", transcriptEvent("s1", fmt.Sprintf("word-%d", i)))
		}(i)
	}
	wg.Wait()
}
