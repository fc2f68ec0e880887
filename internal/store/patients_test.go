package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-directory/internal/model"
)

func seededStore(t *testing.T) *PatientStore {
	t.Helper()
	s := NewPatientStore()
	s.SetPatients([]model.PatientRecord{
		{ID: "1", Name: "John Doe", Description: model.StringPtr("first"), CreatedAt: "2024-01-01"},
		{ID: "2", Name: "Jane Smith", Description: model.StringPtr("second"), CreatedAt: "2024-01-02"},
		{ID: "3", Name: "Bob Johnson", CreatedAt: "2024-01-03"},
	})
	return s
}

func ids(records []model.PatientRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestPatientStore_Initial(t *testing.T) {
	s := NewPatientStore()

	state, revision := s.Snapshot()
	assert.Empty(t, state.Patients)
	assert.Empty(t, state.FilteredPatients)
	assert.NotNil(t, state.Patients)
	assert.Zero(t, revision)
}

func TestPatientStore_SetPatientsReplacesBoth(t *testing.T) {
	s := seededStore(t)
	s.FilterPatients("jane")
	require.Len(t, s.FilteredPatients(), 1)

	s.SetPatients([]model.PatientRecord{{ID: "9", Name: "Zed"}})

	assert.Equal(t, []string{"9"}, ids(s.Patients()))
	assert.Equal(t, []string{"9"}, ids(s.FilteredPatients()))
}

func TestPatientStore_SetPatientsCopiesInput(t *testing.T) {
	in := []model.PatientRecord{{ID: "1", Name: "John"}}
	s := NewPatientStore()
	s.SetPatients(in)

	in[0].Name = "Changed"

	assert.Equal(t, "John", s.Patients()[0].Name)
}

func TestPatientStore_AddPatient(t *testing.T) {
	s := seededStore(t)
	s.newID = func() string { return "generated" }

	created := s.AddPatient(model.NewPatientRecord{
		Name:        "Alice Brown",
		Description: model.StringPtr("new"),
		CreatedAt:   "2024-02-01T00:00:00.000Z",
	})

	assert.Equal(t, "generated", created.ID)
	assert.Equal(t, "Alice Brown", created.Name)
	assert.Equal(t, []string{"1", "2", "3", "generated"}, ids(s.Patients()))
	assert.Equal(t, []string{"1", "2", "3", "generated"}, ids(s.FilteredPatients()))
}

func TestPatientStore_AddPatientAssignsUniqueIDs(t *testing.T) {
	s := NewPatientStore()

	a := s.AddPatient(model.NewPatientRecord{Name: "A"})
	b := s.AddPatient(model.NewPatientRecord{Name: "B"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPatientStore_AddPatientVisibleDespiteFilter(t *testing.T) {
	s := seededStore(t)
	s.FilterPatients("john")
	require.Equal(t, []string{"1", "3"}, ids(s.FilteredPatients()))

	created := s.AddPatient(model.NewPatientRecord{Name: "Zed Unmatched"})

	assert.Equal(t, []string{"1", "3", created.ID}, ids(s.FilteredPatients()))
}

func TestPatientStore_UpdatePatientInPlace(t *testing.T) {
	s := seededStore(t)

	s.UpdatePatient(model.PatientRecord{ID: "2", Name: "Jane Doe", CreatedAt: "2024-01-02"})

	patients := s.Patients()
	assert.Equal(t, []string{"1", "2", "3"}, ids(patients))
	assert.Equal(t, "Jane Doe", patients[1].Name)
	assert.Nil(t, patients[1].Description)
	assert.Equal(t, "Jane Doe", s.FilteredPatients()[1].Name)
}

func TestPatientStore_UpdatePatientOnlyWhereFound(t *testing.T) {
	s := seededStore(t)
	s.FilterPatients("john")

	s.UpdatePatient(model.PatientRecord{ID: "2", Name: "Jane Updated"})

	got, ok := s.Get("2")
	require.True(t, ok)
	assert.Equal(t, "Jane Updated", got.Name)
	assert.Equal(t, []string{"1", "3"}, ids(s.FilteredPatients()))
}

func TestPatientStore_UpdateUnknownIDIsNoop(t *testing.T) {
	s := seededStore(t)
	before, revision := s.Snapshot()

	s.UpdatePatient(model.PatientRecord{ID: "missing", Name: "Ghost"})

	after, afterRevision := s.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, revision, afterRevision)
}

func TestPatientStore_FilterPatients(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"john", []string{"1", "3"}},
		{"JOHN", []string{"1", "3"}},
		{"  jane  ", []string{"2"}},
		{"smi", []string{"2"}},
		{"nobody", []string{}},
		{"", []string{"1", "2", "3"}},
		{"   ", []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.query), func(t *testing.T) {
			s := seededStore(t)
			s.FilterPatients(tt.query)
			assert.Equal(t, tt.want, ids(s.FilteredPatients()))
			assert.Len(t, s.Patients(), 3)
		})
	}
}

func TestPatientStore_FilterIsAppliedToFullCollection(t *testing.T) {
	s := seededStore(t)
	s.FilterPatients("jane")
	s.FilterPatients("bob")

	assert.Equal(t, []string{"3"}, ids(s.FilteredPatients()))
}

func TestPatientStore_SnapshotIsACopy(t *testing.T) {
	s := seededStore(t)

	state, _ := s.Snapshot()
	state.Patients[0].Name = "Mutated"
	state.FilteredPatients = append(state.FilteredPatients, model.PatientRecord{ID: "x"})

	assert.Equal(t, "John Doe", s.Patients()[0].Name)
	assert.Len(t, s.FilteredPatients(), 3)
}

func TestPatientStore_RevisionAdvancesOnMutation(t *testing.T) {
	s := NewPatientStore()
	_, r0 := s.Snapshot()

	s.SetPatients([]model.PatientRecord{{ID: "1", Name: "A"}})
	_, r1 := s.Snapshot()
	s.AddPatient(model.NewPatientRecord{Name: "B"})
	_, r2 := s.Snapshot()
	s.UpdatePatient(model.PatientRecord{ID: "1", Name: "A2"})
	_, r3 := s.Snapshot()
	s.FilterPatients("a")
	_, r4 := s.Snapshot()

	assert.Less(t, r0, r1)
	assert.Less(t, r1, r2)
	assert.Less(t, r2, r3)
	assert.Less(t, r3, r4)
}

func TestPatientStore_RepeatedFilterKeepsRevision(t *testing.T) {
	s := seededStore(t)

	s.FilterPatients("john")
	_, r1 := s.Snapshot()
	s.FilterPatients("  JOHN ")
	_, r2 := s.Snapshot()
	assert.Equal(t, r1, r2)

	s.FilterPatients("jane")
	_, r3 := s.Snapshot()
	assert.Less(t, r2, r3)

	// A mutation in between forces the same query to be re-applied.
	s.AddPatient(model.NewPatientRecord{Name: "Jane Roe"})
	s.FilterPatients("jane")
	state, r4 := s.Snapshot()
	assert.Less(t, r3, r4)
	assert.Len(t, state.FilteredPatients, 2)
}

func TestPatientStore_Search(t *testing.T) {
	s := seededStore(t)

	state, revision := s.Search("jane")

	require.Len(t, state.FilteredPatients, 1)
	assert.Equal(t, "Jane Smith", state.FilteredPatients[0].Name)
	assert.Len(t, state.Patients, 3)
	_, current := s.Snapshot()
	assert.Equal(t, current, revision)
}

func TestPatientStore_Get(t *testing.T) {
	s := seededStore(t)

	got, ok := s.Get("3")
	require.True(t, ok)
	assert.Equal(t, "Bob Johnson", got.Name)

	_, ok = s.Get("nope")
	assert.False(t, ok)
}
