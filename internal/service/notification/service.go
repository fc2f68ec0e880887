package notification

import (
	"sync"
	"time"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/internal/store"
)

// Service shows alerts and hides them again once their duration elapses.
type Service interface {
	ShowAlert(opts model.AlertOptions)
	Dismiss()
	Alert() model.AlertState
	Close()
}

type service struct {
	alerts *store.AlertStore

	mu    sync.Mutex
	timer *time.Timer
	// gen identifies the alert the pending timer belongs to.
	gen uint64
}

func NewService(alerts *store.AlertStore) Service {
	return &service{alerts: alerts}
}

// ShowAlert replaces the current alert and schedules its auto-hide. A timer
// left over from an earlier alert is cancelled.
func (s *service) ShowAlert(opts model.AlertOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts.ShowAlert(opts)
	s.stopLocked()

	gen := s.gen
	delay := time.Duration(s.alerts.Alert().Duration * float64(time.Second))
	s.timer = time.AfterFunc(delay, func() { s.expire(gen) })
}

// Dismiss hides the alert now and cancels the pending auto-hide.
func (s *service) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.alerts.HideAlert()
}

func (s *service) Alert() model.AlertState {
	return s.alerts.Alert()
}

func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *service) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.timer = nil
	s.alerts.HideAlert()
}

func (s *service) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
