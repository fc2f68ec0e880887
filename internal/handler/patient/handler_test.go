package patient_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	patientHandler "github.com/jwalitptl/patient-directory/internal/handler/patient"
	"github.com/jwalitptl/patient-directory/internal/model"
	patientService "github.com/jwalitptl/patient-directory/internal/service/patient"
	"github.com/jwalitptl/patient-directory/internal/store"
)

type fakeFetcher struct {
	refetches atomic.Int32
	loading   atomic.Bool
}

func (f *fakeFetcher) Refetch()      { f.refetches.Add(1) }
func (f *fakeFetcher) Loading() bool { return f.loading.Load() }

type testEnv struct {
	engine  *gin.Engine
	store   *store.PatientStore
	alerts  *store.AlertStore
	fetcher *fakeFetcher
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:   store.NewPatientStore(),
		alerts:  store.NewAlertStore(),
		fetcher: &fakeFetcher{},
	}
	env.store.SetPatients([]model.PatientRecord{
		{ID: "1", Name: "mr. john doe", Description: model.StringPtr("first"), CreatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "2", Name: "Jane Smith", Description: model.StringPtr("second"), CreatedAt: "2024-01-02T00:00:00.000Z"},
	})

	svc := patientService.NewService(env.store, env.alerts, nil, time.Minute, nil, nil)
	env.engine = gin.New()
	patientHandler.NewHandler(svc, env.fetcher).RegisterRoutes(env.engine.Group("/api/v1"))
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHandler_ListPatients(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/patients", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var patients []model.PatientRecord
	require.NoError(t, json.Unmarshal(resp.Data, &patients))
	require.Len(t, patients, 2)
	assert.Equal(t, "Jane Smith", patients[0].Name)
	assert.Equal(t, "John Doe", patients[1].Name)
}

func TestHandler_ListPatientsWithQuery(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodGet, "/api/v1/patients?q=JOHN", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var patients []model.PatientRecord
	require.NoError(t, json.Unmarshal(resp.Data, &patients))
	require.Len(t, patients, 1)
	assert.Equal(t, "1", patients[0].ID)

	// An empty q clears the filter.
	_, resp = env.do(t, http.MethodGet, "/api/v1/patients?q=", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &patients))
	assert.Len(t, patients, 2)
}

func TestHandler_ConcurrentQueriesGetTheirOwnView(t *testing.T) {
	env := setupTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for query, wantID := range map[string]string{"john": "1", "jane": "2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?q="+query, nil)
				w := httptest.NewRecorder()
				env.engine.ServeHTTP(w, req)

				var resp envelope
				if !assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)) {
					return
				}
				var patients []model.PatientRecord
				if !assert.NoError(t, json.Unmarshal(resp.Data, &patients)) {
					return
				}
				if assert.Len(t, patients, 1, "q=%s", query) {
					assert.Equal(t, wantID, patients[0].ID, "q=%s", query)
				}
			}()
		}
	}
	wg.Wait()
}

func TestHandler_CreatePatient(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/patients", model.PatientForm{
		Name:        "Alice Brown",
		Description: "New patient",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var created model.PatientRecord
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Len(t, env.store.Patients(), 3)
	assert.Equal(t, patientService.MessagePatientAdded, env.alerts.Alert().Message)
}

func TestHandler_CreatePatientDuplicate(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/patients", model.PatientForm{
		Name:        " jane smith ",
		Description: "Someone else",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Patient with this name already exists", resp.Message)
	assert.Equal(t, "Patient with this name already exists", env.alerts.Alert().Message)
}

func TestHandler_CreatePatientValidation(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodPost, "/api/v1/patients", model.PatientForm{
		Name:    "Alice",
		Website: "nope",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"description", "website"}, fields)
}

func TestHandler_CreatePatientMalformedBody(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdatePatient(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodPut, "/api/v1/patients/2", model.PatientForm{
		Name:        "Jane Doe",
		Description: "Married",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var updated model.PatientRecord
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "2", updated.ID)
	assert.Equal(t, "2024-01-02T00:00:00.000Z", updated.CreatedAt)

	got, ok := env.store.Get("2")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", got.Name)
}

func TestHandler_UpdateUnknownPatient(t *testing.T) {
	env := setupTest(t)

	w, resp := env.do(t, http.MethodPut, "/api/v1/patients/404", model.PatientForm{
		Name:        "Nobody",
		Description: "Missing",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "patient not found", resp.Message)
}

func TestHandler_Refetch(t *testing.T) {
	env := setupTest(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/patients/refetch", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.EqualValues(t, 1, env.fetcher.refetches.Load())
}

func TestHandler_Status(t *testing.T) {
	env := setupTest(t)
	env.fetcher.loading.Store(true)
	env.store.FilterPatients("jane")

	w, resp := env.do(t, http.MethodGet, "/api/v1/patients/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"loading":true,"total":2,"filtered":1}`, string(resp.Data))
}
