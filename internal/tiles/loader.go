package tiles

import (
	"image"
	"sync"
)

type Request struct {
	Key  string
	Path string
}

type Result struct {
	Key   string
	Image image.Image
	Err   error
}

// Loader decodes images on a background goroutine.
type Loader struct {
	Req  chan Request
	Res  chan Result
	quit chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewLoader(queueSize int) *Loader {
	if queueSize < 1 {
		queueSize = 1
	}

	l := &Loader{
		Req:  make(chan Request, queueSize),
		Res:  make(chan Result, queueSize),
		quit: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.loop()

	return l
}

func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		close(l.quit)
		l.wg.Wait()
	})
}

func (l *Loader) loop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.quit:
			return
		case req := <-l.Req:
			img, err := Load(req.Path)

			// Never block shutdown on a full result queue.
			select {
			case <-l.quit:
				return
			case l.Res <- Result{Key: req.Key, Image: img, Err: err}:
			}
		}
	}
}
