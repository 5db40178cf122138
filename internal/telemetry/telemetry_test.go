package telemetry

import (
	"testing"
	"time"
)

func TestSinkBatchesEvents(t *testing.T) {
	out := make(chan Batch, 8)
	s := newSink(10*time.Millisecond, func(b Batch) {
		if b.empty() {
			return
		}
		select {
		case out <- b:
		default:
		}
	})
	defer s.Close()

	s.Emit(Event{Kind: KindRange, At: time.Now()})
	s.Emit(Event{Kind: KindShuffle, N: 26, At: time.Now()})
	s.Emit(Event{Kind: KindPick, N: 26, At: time.Now()})
	s.Emit(Event{Kind: KindError, At: time.Now()})

	deadline := time.After(700 * time.Millisecond)
	got := Batch{}
	for got.Ranges+got.Shuffles+got.Picks+got.Errors < 4 {
		select {
		case b := <-out:
			// events may straddle a flush boundary
			got.Ranges += b.Ranges
			got.Shuffles += b.Shuffles
			got.Picks += b.Picks
			got.Errors += b.Errors
			got.Items += b.Items

		case <-deadline:
			t.Fatalf("timed out waiting for telemetry batch, have %+v", got)
		}
	}

	if got.Ranges != 1 || got.Shuffles != 1 || got.Picks != 1 || got.Errors != 1 {
		t.Fatalf("counts mismatch: %+v", got)
	}
	if got.Items != 52 {
		t.Fatalf("items mismatch: got %d want %d", got.Items, 52)
	}
}

func TestSinkFlushesPartialBatchOnClose(t *testing.T) {
	out := make(chan Batch, 1)
	s := newSink(time.Hour, func(b Batch) {
		out <- b
	})

	s.Emit(Event{Kind: KindShuffle, N: 4, At: time.Now()})
	s.Emit(Event{Kind: KindPick, N: 4, At: time.Now()})
	s.Close()

	select {
	case b := <-out:
		if b.Shuffles != 1 || b.Picks != 1 || b.Items != 8 {
			t.Fatalf("final batch mismatch: %+v", b)
		}
	default:
		t.Fatal("close did not flush the partial batch")
	}
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	s := newSink(10*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		s.Close()
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("sink close blocked")
	}
}

func TestEmitOnNilSinkIsNoop(t *testing.T) {
	var s *Sink
	s.Emit(Event{Kind: KindRange})
}
