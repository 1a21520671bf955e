package gcode

import (
	"time"

	"gplotter/standalone"
)

// Default session thresholds
const (
	DefaultQuickRequest = 1500 * time.Millisecond
	DefaultStatusEvery  = 2000 * time.Millisecond
	DefaultIdleReset    = 8000 * time.Millisecond
)

// StatusReply is what a status query produces
type StatusReply int

const (
	ReplyNone StatusReply = iota
	ReplyBanner
	ReplyStatus
)

// Session tracks the connection handshake of a GRBL sender. Two quick status
// queries announce a new client and get the banner; afterwards status lines
// are rate limited, and a long silence starts a new session.
type Session struct {
	quick  time.Duration
	status time.Duration
	idle   time.Duration

	BannerSent      bool
	QuestionCounter int
	LastQuestion    time.Time
	LastStatus      time.Time
}

// NewSession creates a session; zero thresholds take the defaults
func NewSession(timing standalone.TimingConfig, now time.Time) *Session {
	s := &Session{
		quick:      timing.QuickRequest.Std(),
		status:     timing.StatusEvery.Std(),
		idle:       timing.IdleReset.Std(),
		LastStatus: now,
	}
	if s.quick <= 0 {
		s.quick = DefaultQuickRequest
	}
	if s.status <= 0 {
		s.status = DefaultStatusEvery
	}
	if s.idle <= 0 {
		s.idle = DefaultIdleReset
	}
	return s
}

// Reset returns to the pre-banner state
func (s *Session) Reset() {
	s.BannerSent = false
	s.QuestionCounter = 0
}

// Tick runs the idle check; it reports whether the session was reset
func (s *Session) Tick(now time.Time) bool {
	if s.BannerSent && now.Sub(s.LastQuestion) > s.idle {
		s.Reset()
		return true
	}
	return false
}

// Question handles one status query arriving at now
func (s *Session) Question(now time.Time) StatusReply {
	if now.Sub(s.LastQuestion) < s.quick {
		s.QuestionCounter++
	} else {
		s.QuestionCounter = 1
	}
	s.LastQuestion = now

	if !s.BannerSent {
		if s.QuestionCounter >= 2 {
			s.BannerSent = true
			s.QuestionCounter = 0
			s.LastStatus = now
			return ReplyBanner
		}
		return ReplyNone
	}

	if now.Sub(s.LastStatus) > s.status {
		s.LastStatus = now
		return ReplyStatus
	}
	return ReplyNone
}

// Unsolicited reports whether an idle status line is due, and marks it sent
func (s *Session) Unsolicited(now time.Time) bool {
	if s.BannerSent && now.Sub(s.LastStatus) > s.status {
		s.LastStatus = now
		return true
	}
	return false
}
