package session

import (
	"time"

	"github.com/lyfeumbria/manager/internal/clock"
)

// scheduler owns the warning and expiry deadlines plus the one-second countdown chain.
// It is not safe for concurrent use; the manager calls it with its lock held.
//
// Every callback carries the generation it was scheduled under. cancelAll and
// scheduleFrom bump the generation, so a callback that lost the race with Stop sees a
// stale generation and does nothing.
type scheduler struct {
	clock clock.Clock
	idle  time.Duration
	lead  time.Duration

	gen       uint64
	warning   clock.Timer
	expiry    clock.Timer
	countdown clock.Timer

	onWarning func(gen uint64)
	onExpiry  func(gen uint64)
	onTick    func(gen uint64)
}

// scheduleFrom clears both deadlines and schedules them again relative to instant.
func (s *scheduler) scheduleFrom(instant time.Time) uint64 {
	s.cancelAll()
	gen := s.gen
	now := s.clock.Now()

	warnIn := instant.Add(s.idle - s.lead).Sub(now)
	expireIn := instant.Add(s.idle).Sub(now)
	s.warning = s.clock.AfterFunc(warnIn, func() { s.onWarning(gen) })
	s.expiry = s.clock.AfterFunc(expireIn, func() { s.onExpiry(gen) })
	return gen
}

// startCountdown schedules the next one-second tick of the countdown.
func (s *scheduler) startCountdown(gen uint64) {
	if s.countdown != nil {
		s.countdown.Stop()
	}
	s.countdown = s.clock.AfterFunc(time.Second, func() { s.onTick(gen) })
}

func (s *scheduler) cancelAll() {
	s.gen++
	for _, t := range []clock.Timer{s.warning, s.expiry, s.countdown} {
		if t != nil {
			t.Stop()
		}
	}
	s.warning, s.expiry, s.countdown = nil, nil, nil
}

func (s *scheduler) current(gen uint64) bool {
	return gen == s.gen
}

// countdownSeconds is the countdown seeded when the warning appears.
func (s *scheduler) countdownSeconds() int {
	return int((s.lead + time.Second - 1) / time.Second)
}
