package service

import (
	"log"
	"sync"
	"time"
)

// TemplateScanner is what the scheduler drives on every tick.
type TemplateScanner interface {
	QueueScheduledTemplates()
}

// Scheduler runs the due-template scan on a fixed interval. Ticks are
// single-flight: if a scan is still running when the next tick fires, the
// tick is dropped instead of stacking a second scan.
type Scheduler struct {
	scanner  TemplateScanner
	interval time.Duration

	mux     sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(scanner TemplateScanner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{scanner: scanner, interval: interval}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stop, s.done)
	log.Printf("Notification scheduler started (interval=%s)", s.interval)
}

// Stop halts the tick loop and waits for an in-progress scan to finish.
func (s *Scheduler) Stop() {
	s.mux.Lock()
	if !s.running {
		s.mux.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mux.Unlock()

	close(stop)
	<-done
	log.Println("Notification scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Scans run inline, so a slow scan delays the next tick rather
			// than overlapping with it.
			s.scanner.QueueScheduledTemplates()
		}
	}
}
