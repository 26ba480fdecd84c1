package stream

import (
	"fmt"
	"testing"

	"github.com/akolanti/StreamAPI/internal/config"
)

func TestOverflow_DisconnectPolicy(t *testing.T) {
	sub := newSubscription("sub-1", "s1", "conn-1", 2, config.OverflowDisconnect)

	if !sub.enqueue(transcriptEvent("s1", "a")) || !sub.enqueue(transcriptEvent("s1", "b")) {
		t.Fatal("enqueue within capacity failed")
	}
	if sub.enqueue(transcriptEvent("s1", "c")) {
		t.Error("overflowing enqueue must report failure under the disconnect policy")
	}

	//the events buffered before the overflow still drain to the pump
	got := drain(sub)
	if len(got) != 2 {
		t.Errorf("buffered events lost: got %d, want 2", len(got))
	}
	if sub.CloseReason() != CloseOverflow {
		t.Errorf("close reason = %q; want %q", sub.CloseReason(), CloseOverflow)
	}
	if sub.enqueue(transcriptEvent("s1", "d")) {
		t.Error("enqueue after close must report failure")
	}
}

func TestOverflow_DropOldestNeverLosesNewest(t *testing.T) {
	sub := newSubscription("sub-1", "s1", "conn-1", 2, config.OverflowDropOldest)

	for i := 0; i < 10; i++ {
		if !sub.enqueue(transcriptEvent("s1", fmt.Sprintf("word-%d", i))) {
			t.Fatalf("enqueue %d reported failure", i)
		}
	}

	got := drain(sub)
	if len(got) != 2 {
		t.Fatalf("queue holds %d events; want 2", len(got))
	}
	//eviction must always make room for the incoming event
	if got[len(got)-1].Data.Text != "word-9" {
		t.Errorf("newest event lost: queue tail is %q", got[len(got)-1].Data.Text)
	}
}
