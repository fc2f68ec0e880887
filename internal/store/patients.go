package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-directory/internal/model"
)

// PatientsState is a point-in-time copy of the patient store.
type PatientsState struct {
	Patients         []model.PatientRecord `json:"patients"`
	FilteredPatients []model.PatientRecord `json:"filteredPatients"`
}

// PatientStore holds the authoritative patient collection and the filtered
// view derived from it. Every operation is applied under a single lock, so
// readers never observe a partial update.
type PatientStore struct {
	mu       sync.RWMutex
	patients []model.PatientRecord
	filtered []model.PatientRecord
	revision uint64
	newID    func() string

	// query is the last applied filter; filteredAt is the revision it
	// produced. Re-applying it with nothing changed in between is a no-op.
	query      string
	filteredAt uint64
}

func NewPatientStore() *PatientStore {
	return &PatientStore{
		patients: []model.PatientRecord{},
		filtered: []model.PatientRecord{},
		newID:    func() string { return uuid.New().String() },
	}
}

// SetPatients replaces both the collection and the filtered view.
func (s *PatientStore) SetPatients(records []model.PatientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients = cloneRecords(records)
	s.filtered = cloneRecords(records)
	s.query = ""
	s.revision++
}

// AddPatient assigns a fresh id and appends the record to both sequences.
// The record is visible in the filtered view whatever the current filter.
func (s *PatientStore) AddPatient(record model.NewPatientRecord) model.PatientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := record.WithID(s.newID())
	s.patients = append(s.patients, created)
	s.filtered = append(s.filtered, created)
	s.revision++
	return created
}

// UpdatePatient replaces the record with the same id in place, in each
// sequence where it is present. Unknown ids are ignored.
func (s *PatientStore) UpdatePatient(record model.PatientRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if i := indexOf(s.patients, record.ID); i != -1 {
		s.patients[i] = record
		changed = true
	}
	if i := indexOf(s.filtered, record.ID); i != -1 {
		s.filtered[i] = record
		changed = true
	}
	if changed {
		s.revision++
	}
}

// FilterPatients narrows the filtered view to records whose name contains
// the query, case-insensitively. An empty query restores the full list.
func (s *PatientStore) FilterPatients(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterLocked(query)
}

// Search applies the filter and returns the resulting snapshot under the
// same lock, so the view always belongs to this query.
func (s *PatientStore) Search(query string) (PatientsState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterLocked(query)
	return s.snapshotLocked()
}

func (s *PatientStore) filterLocked(query string) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == s.query && s.filteredAt == s.revision {
		return
	}

	if q == "" {
		s.filtered = cloneRecords(s.patients)
	} else {
		filtered := make([]model.PatientRecord, 0, len(s.patients))
		for _, p := range s.patients {
			if strings.Contains(strings.ToLower(p.Name), q) {
				filtered = append(filtered, p)
			}
		}
		s.filtered = filtered
	}
	s.query = q
	s.revision++
	s.filteredAt = s.revision
}

func (s *PatientStore) Patients() []model.PatientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.patients)
}

func (s *PatientStore) FilteredPatients() []model.PatientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.filtered)
}

// Get returns the stored record with the given id.
func (s *PatientStore) Get(id string) (model.PatientRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.patients, id); i != -1 {
		return s.patients[i], true
	}
	return model.PatientRecord{}, false
}

// Snapshot returns both sequences and the revision they were read at.
// The revision changes on every mutation of either sequence.
func (s *PatientStore) Snapshot() (PatientsState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *PatientStore) snapshotLocked() (PatientsState, uint64) {
	return PatientsState{
		Patients:         cloneRecords(s.patients),
		FilteredPatients: cloneRecords(s.filtered),
	}, s.revision
}

func indexOf(records []model.PatientRecord, id string) int {
	return slices.IndexFunc(records, func(p model.PatientRecord) bool {
		return p.ID == id
	})
}

func cloneRecords(records []model.PatientRecord) []model.PatientRecord {
	if records == nil {
		return []model.PatientRecord{}
	}
	return slices.Clone(records)
}
