package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/internal/store"
	"github.com/jwalitptl/patient-directory/pkg/errors"
	"github.com/jwalitptl/patient-directory/pkg/logger"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
	"github.com/jwalitptl/patient-directory/pkg/metrics"
	"github.com/jwalitptl/patient-directory/pkg/validator"
)

const (
	MessageDuplicateName  = "Patient with this name already exists"
	MessagePatientAdded   = "Patient added successfully"
	MessagePatientUpdated = "Patient updated successfully"
)

// createdAtLayout matches the millisecond ISO-8601 form the upstream API uses.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

type Alerter interface {
	ShowAlert(opts model.AlertOptions)
}

// Service is the entry point for the create/edit forms and the list view.
type Service struct {
	patients  *store.PatientStore
	alerts    Alerter
	validator validator.Validator
	views     *cache.Cache
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	now       func() time.Time

	// mu serializes the uniqueness check with the insert it guards.
	mu sync.Mutex
}

func NewService(
	patients *store.PatientStore,
	alerts Alerter,
	publisher messaging.Publisher,
	viewTTL time.Duration,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		patients:  patients,
		alerts:    alerts,
		validator: validator.New(),
		views:     cache.New(viewTTL, 2*viewTTL),
		publisher: publisher,
		metrics:   m,
		logger:    log.With("patient"),
		now:       time.Now,
	}
}

// CreatePatient validates the form and adds a new patient unless one with
// the same name (trimmed, case-insensitive) already exists.
func (s *Service) CreatePatient(ctx context.Context, form model.PatientForm) (*model.PatientRecord, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, errors.BadRequest("invalid patient data", err)
	}

	s.mu.Lock()
	if s.nameTaken(form.Name) {
		s.mu.Unlock()
		s.alerts.ShowAlert(model.AlertOptions{Message: MessageDuplicateName})
		return nil, errors.Conflict(MessageDuplicateName)
	}

	created := s.patients.AddPatient(model.NewPatientRecord{
		Name:        form.Name,
		Description: model.StringPtr(form.Description),
		Website:     optional(form.Website),
		Avatar:      avatarFromForm(form.Avatar),
		CreatedAt:   s.now().UTC().Format(createdAtLayout),
	})
	s.mu.Unlock()

	s.recordMutation("add")
	s.alerts.ShowAlert(model.AlertOptions{Message: MessagePatientAdded, IsSuccess: true})
	s.publish(ctx, model.EventPatientCreated, created)
	s.logger.Info("patient created", "id", created.ID)
	return &created, nil
}

// UpdatePatient applies the form to an existing patient, keeping its id and
// creation time.
func (s *Service) UpdatePatient(ctx context.Context, id string, form model.PatientForm) (*model.PatientRecord, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, errors.BadRequest("invalid patient data", err)
	}

	s.mu.Lock()
	existing, ok := s.patients.Get(id)
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("patient", fmt.Errorf("id %s", id))
	}

	updated := model.PatientRecord{
		ID:          existing.ID,
		Name:        form.Name,
		Description: model.StringPtr(form.Description),
		Website:     optional(form.Website),
		Avatar:      avatarFromForm(form.Avatar),
		CreatedAt:   existing.CreatedAt,
	}
	s.patients.UpdatePatient(updated)
	s.mu.Unlock()

	s.recordMutation("update")
	s.alerts.ShowAlert(model.AlertOptions{Message: MessagePatientUpdated, IsSuccess: true})
	s.publish(ctx, model.EventPatientUpdated, updated)
	s.logger.Info("patient updated", "id", updated.ID)
	return &updated, nil
}

// FilterPatients narrows the filtered view by name.
func (s *Service) FilterPatients(query string) {
	s.patients.FilterPatients(query)
	s.recordMutation("filter")
}

// SearchPatients filters by name and returns the sanitized view produced by
// that filter, even when other searches run concurrently.
func (s *Service) SearchPatients(query string) []model.PatientRecord {
	state, revision := s.patients.Search(query)
	s.recordMutation("filter")
	return s.view(state, revision)
}

// ListPatients returns the sanitized filtered view. The result is memoized
// until the store changes.
func (s *Service) ListPatients() []model.PatientRecord {
	state, revision := s.patients.Snapshot()
	return s.view(state, revision)
}

// cachedView is the single memoized list view, tagged with the store
// revision it was built from.
type cachedView struct {
	revision uint64
	records  []model.PatientRecord
}

const viewKey = "view"

func (s *Service) view(state store.PatientsState, revision uint64) []model.PatientRecord {
	if cached, ok := s.views.Get(viewKey); ok {
		if v := cached.(cachedView); v.revision == revision {
			s.observeCache("hit")
			return slices.Clone(v.records)
		}
	}
	s.observeCache("miss")

	cleaned := CleanUpData(state.FilteredPatients)
	s.views.Set(viewKey, cachedView{revision: revision, records: cleaned}, cache.DefaultExpiration)
	return slices.Clone(cleaned)
}

// Counts returns the sizes of the full collection and the filtered view.
func (s *Service) Counts() (total, filtered int) {
	state, _ := s.patients.Snapshot()
	return len(state.Patients), len(state.FilteredPatients)
}

func (s *Service) nameTaken(name string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.patients.Patients() {
		if strings.ToLower(strings.TrimSpace(p.Name)) == want {
			return true
		}
	}
	return false
}

func (s *Service) publish(ctx context.Context, eventType string, record model.PatientRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Error(err, "failed to marshal patient for event")
		return
	}
	event := model.PatientEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.logger.Error(err, "failed to publish patient event", "event_type", eventType)
	}
}

func (s *Service) recordMutation(op string) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreMutations.WithLabelValues(op).Inc()
	total, _ := s.Counts()
	s.metrics.PatientsStored.Set(float64(total))
}

func (s *Service) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.CleanupCacheHits.WithLabelValues(result).Inc()
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return model.StringPtr(value)
}

func avatarFromForm(value string) model.Avatar {
	if value == "" {
		return model.Avatar{}
	}
	return model.NewAvatarURL(value)
}
