package store

import (
	"sync"

	"github.com/jwalitptl/patient-directory/internal/model"
)

// AlertStore owns the single transient notification.
type AlertStore struct {
	mu    sync.RWMutex
	state model.AlertState
}

func NewAlertStore() *AlertStore {
	return &AlertStore{state: initialAlert()}
}

// ShowAlert overwrites every field of the alert. Fields left unset take
// their defaults; nothing carries over from the previous alert.
func (s *AlertStore) ShowAlert(opts model.AlertOptions) {
	duration := opts.Duration
	if duration <= 0 {
		duration = model.DefaultAlertDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.AlertState{
		Message:   opts.Message,
		IsVisible: true,
		IsSuccess: opts.IsSuccess,
		Duration:  duration,
	}
}

// HideAlert hides the alert but keeps its message.
func (s *AlertStore) HideAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsVisible = false
}

func (s *AlertStore) ClearAlert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = initialAlert()
}

func (s *AlertStore) Alert() model.AlertState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func initialAlert() model.AlertState {
	return model.AlertState{Duration: model.DefaultAlertDuration}
}
