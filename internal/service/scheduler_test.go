package service

import (
	"sync"
	"testing"
	"time"
)

type countingScanner struct {
	mux   sync.Mutex
	count int
}

func (s *countingScanner) QueueScheduledTemplates() {
	s.mux.Lock()
	s.count++
	s.mux.Unlock()
}

func (s *countingScanner) Count() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.count
}

func TestSchedulerTicks(t *testing.T) {
	scanner := &countingScanner{}
	scheduler := NewScheduler(scanner, 10*time.Millisecond)

	scheduler.Start()
	if !waitFor(time.Second, func() bool { return scanner.Count() >= 2 }) {
		t.Fatalf("expected at least 2 scans, got %d", scanner.Count())
	}
	scheduler.Stop()

	after := scanner.Count()
	time.Sleep(50 * time.Millisecond)
	if scanner.Count() != after {
		t.Error("scheduler must not scan after Stop")
	}
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	scanner := &countingScanner{}
	scheduler := NewScheduler(scanner, 10*time.Millisecond)

	scheduler.Start()
	scheduler.Start()
	defer scheduler.Stop()

	if !waitFor(time.Second, func() bool { return scanner.Count() >= 3 }) {
		t.Fatalf("scheduler did not tick")
	}
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(&countingScanner{}, time.Minute)
	scheduler.Stop()
}
