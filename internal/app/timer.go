package app

import (
	"time"

	"quiz-session-service/internal/domain"

	"github.com/benbjohnson/clock"
)

// phaseTimer is the single pending deadline of a session. seq identifies the
// arming so a callback that lost the race against Stop can recognize itself
// as stale.
type phaseTimer struct {
	t     *clock.Timer
	phase domain.Phase
	seq   uint64
}

func (pt *phaseTimer) current(seq uint64) bool {
	return pt.t != nil && pt.seq == seq
}

// armTimerLocked replaces any pending timer with one scoped to phase.
func (s *Session) armTimerLocked(phase domain.Phase, d time.Duration) {
	s.cancelTimerLocked()
	s.timer.seq++
	seq := s.timer.seq
	s.timer.phase = phase
	s.timer.t = s.clock.AfterFunc(d, func() {
		s.expire(seq, phase)
	})
}

func (s *Session) cancelTimerLocked() {
	if s.timer.t == nil {
		return
	}
	s.timer.t.Stop()
	s.timer.t = nil
}

// PendingTimer reports the phase the armed timer is scoped to, if any.
func (s *Session) PendingTimer() (domain.Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.t == nil {
		return 0, false
	}
	return s.timer.phase, true
}

func questionDuration(q domain.Question) time.Duration {
	return time.Duration(q.Duration) * time.Second
}
