package telemetry

import (
	"sync"
	"time"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
)

const (
	KindRange   = "range"
	KindShuffle = "shuffle"
	KindPick    = "pick"
	KindError   = "error"
)

type Event struct {
	Kind string
	// N is the number of items touched (shuffle length, pick pool size).
	N  int
	At time.Time
}

// Batch is what one flush interval saw.
type Batch struct {
	Ranges   int
	Shuffles int
	Picks    int
	Errors   int
	Items    int
}

func (b Batch) empty() bool { return b == Batch{} }

type Sink struct {
	In   chan Event
	quit chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSink logs a summary line every interval.
func NewSink(interval time.Duration) *Sink {
	return newSink(interval, func(b Batch) {
		if b.empty() {
			return
		}
		logger_config.Logger.Info("[telemetry]",
			"ranges", b.Ranges,
			"shuffles", b.Shuffles,
			"picks", b.Picks,
			"errors", b.Errors,
			"items", b.Items,
		)
	})
}

func newSink(interval time.Duration, flush func(Batch)) *Sink {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &Sink{
		In:   make(chan Event, 256),
		quit: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop(interval, flush)

	return s
}

// Emit never blocks; events are dropped while the buffer is full.
func (s *Sink) Emit(ev Event) {
	if s == nil {
		return
	}
	select {
	case s.In <- ev:
	default:
	}
}

func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}

func (s *Sink) loop(interval time.Duration, flush func(Batch)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var b Batch
	for {
		select {
		case <-s.quit:
			// take whatever was emitted before Close, then report the partial interval
		drain:
			for {
				select {
				case ev := <-s.In:
					b.add(ev)
				default:
					break drain
				}
			}
			if flush != nil {
				flush(b)
			}
			return

		case ev := <-s.In:
			b.add(ev)

		case <-ticker.C:
			if flush != nil {
				flush(b)
			}
			// reset batch
			b = Batch{}
		}
	}
}

func (b *Batch) add(ev Event) {
	switch ev.Kind {
	case KindRange:
		b.Ranges++
	case KindShuffle:
		b.Shuffles++
		b.Items += ev.N
	case KindPick:
		b.Picks++
		b.Items += ev.N
	case KindError:
		b.Errors++
	}
}

