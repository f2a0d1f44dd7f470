package assistant

import (
	"math"
	"sync"
	"time"
)

const DefaultCountdownInterval = 100 * time.Millisecond

// Countdown is a periodic timeout progress update. RemainingTime is in
// milliseconds; Percentage is the share of the timeout still left.
type Countdown struct {
	RemainingTime int64   `json:"remainingTime"`
	Percentage    float64 `json:"percentage"`
}

type SupervisorConfig struct {
	Duration    time.Duration
	Interval    time.Duration
	OnTimeout   func()
	OnCountdown func(Countdown)
	OnCancelled func(reason string)
}

// Supervisor runs one listening countdown at a time. Each Start bumps a
// generation so callbacks from a superseded timer are dropped.
type Supervisor struct {
	mu       sync.Mutex
	duration time.Duration
	interval time.Duration
	gen      uint64
	active   bool
	stop     chan struct{}

	onTimeout   func()
	onCountdown func(Countdown)
	onCancelled func(string)
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	s := &Supervisor{
		duration:    cfg.Duration,
		interval:    cfg.Interval,
		onTimeout:   cfg.OnTimeout,
		onCountdown: cfg.OnCountdown,
		onCancelled: cfg.OnCancelled,
	}
	if s.duration <= 0 {
		s.duration = 10 * time.Second
	}
	if s.interval <= 0 {
		s.interval = DefaultCountdownInterval
	}
	return s
}

func (s *Supervisor) SetDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = d
}

func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start begins a new countdown, silently stopping any running one.
func (s *Supervisor) Start() {
	s.mu.Lock()
	s.halt()
	s.gen++
	gen := s.gen
	stop := make(chan struct{})
	s.stop = stop
	s.active = true
	d, interval := s.duration, s.interval
	s.mu.Unlock()

	s.emitCountdown(gen, d, d)
	go s.run(gen, stop, d, interval)
}

func (s *Supervisor) run(gen uint64, stop <-chan struct{}, d, interval time.Duration) {
	started := time.Now()
	ticker := time.NewTicker(interval)
	timer := time.NewTimer(d)
	defer ticker.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := d - time.Since(started)
			if remaining < 0 {
				remaining = 0
			}
			s.emitCountdown(gen, remaining, d)
		case <-timer.C:
			if s.finish(gen) && s.onTimeout != nil {
				s.onTimeout()
			}
			return
		}
	}
}

// finish marks gen as expired; only the first caller for the current
// generation gets true.
func (s *Supervisor) finish(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || !s.active {
		return false
	}
	s.active = false
	s.stop = nil
	return true
}

func (s *Supervisor) emitCountdown(gen uint64, remaining, total time.Duration) {
	if s.onCountdown == nil {
		return
	}
	s.mu.Lock()
	current := s.gen == gen && s.active
	s.mu.Unlock()
	if !current {
		return
	}
	s.onCountdown(Countdown{
		RemainingTime: remaining.Milliseconds(),
		Percentage:    math.Round(float64(remaining)/float64(total)*1000) / 10,
	})
}

// Cancel stops a running countdown without firing the timeout and reports
// the reason to OnCancelled. It returns false when nothing was running.
func (s *Supervisor) Cancel(reason string) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	s.halt()
	s.mu.Unlock()

	if s.onCancelled != nil {
		s.onCancelled(reason)
	}
	return true
}

// Stop halts the countdown without any callback. Safe to call repeatedly.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
}

func (s *Supervisor) halt() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.active = false
}
