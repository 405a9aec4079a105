package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Subsystem is a piece of hardware that only one behavior may command at a
// time.
type Subsystem interface {
	SubsystemName() string
}

// Behavior is driven one phase at a time from a single goroutine: Start
// once, then Tick and IsFinished every period, then Stop once.
type Behavior interface {
	Name() string
	Requirements() []Subsystem
	Start()
	Tick()
	IsFinished() bool
	Stop(interrupted bool)
}

const DefaultPeriod = 20 * time.Millisecond

type Log func(string, ...any)

type running struct {
	behavior Behavior
	cancel   context.CancelFunc
	done     chan struct{}
}

// Scheduler runs behaviors at a fixed period.  Scheduling a behavior that
// needs a subsystem already in use interrupts the previous owner first.
type Scheduler struct {
	Period time.Duration
	Log    Log

	lock   sync.Mutex
	owners map[Subsystem]*running
	all    map[*running]struct{}
}

func New(period time.Duration, log Log) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	if log == nil {
		log = func(string, ...any) {}
	}
	return &Scheduler{
		Period: period,
		Log:    log,
		owners: map[Subsystem]*running{},
		all:    map[*running]struct{}{},
	}
}

// Schedule starts b in the background.  The returned channel is closed once
// b has been stopped.
func (s *Scheduler) Schedule(ctx context.Context, b Behavior) <-chan struct{} {
	s.lock.Lock()
	var conflicts []*running
	seen := map[*running]bool{}
	for _, req := range b.Requirements() {
		if r, ok := s.owners[req]; ok && !seen[r] {
			conflicts = append(conflicts, r)
			seen[r] = true
		}
	}
	s.lock.Unlock()

	for _, r := range conflicts {
		s.Log("Scheduler: %s interrupts %s", b.Name(), r.behavior.Name())
		r.cancel()
		<-r.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &running{
		behavior: b,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.lock.Lock()
	for _, req := range b.Requirements() {
		s.owners[req] = r
	}
	s.all[r] = struct{}{}
	s.lock.Unlock()

	go s.loop(runCtx, r)
	return r.done
}

// Cancel interrupts every running behavior and waits for them to stop.
func (s *Scheduler) Cancel() {
	s.lock.Lock()
	var rs []*running
	for r := range s.all {
		rs = append(rs, r)
	}
	s.lock.Unlock()

	for _, r := range rs {
		r.cancel()
		<-r.done
	}
}

// Running returns the behavior currently holding the subsystem, if any.
func (s *Scheduler) Running(req Subsystem) (Behavior, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	r, ok := s.owners[req]
	if !ok {
		return nil, false
	}
	return r.behavior, true
}

func (s *Scheduler) loop(ctx context.Context, r *running) {
	defer close(r.done)
	defer s.release(r)
	defer r.cancel()

	b := r.behavior
	s.Log("Scheduler: starting %s", b.Name())
	b.Start()

	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	var overruns int
	for {
		select {
		case <-ctx.Done():
			s.Log("Scheduler: %s interrupted", b.Name())
			b.Stop(true)
			return
		case <-ticker.C:
		}

		start := time.Now()
		b.Tick()
		finished := b.IsFinished()
		if d := time.Since(start); d > s.Period {
			overruns++
			s.Log("Scheduler: %s tick took %v (overrun %d)", b.Name(), d, overruns)
		}
		if finished {
			s.Log("Scheduler: %s finished", b.Name())
			b.Stop(false)
			return
		}
	}
}

func (s *Scheduler) release(r *running) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for req, owner := range s.owners {
		if owner == r {
			delete(s.owners, req)
		}
	}
	delete(s.all, r)
}

// Named is a Subsystem identified only by its name.
type Named string

func (n Named) SubsystemName() string {
	return string(n)
}

func (n Named) String() string {
	return fmt.Sprintf("subsystem(%s)", string(n))
}
