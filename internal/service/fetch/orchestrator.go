package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
	"github.com/jwalitptl/patient-directory/pkg/logger"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
	"github.com/jwalitptl/patient-directory/pkg/metrics"
)

const (
	// UnexpectedErrorMessage is shown when a failure carries no usable message.
	UnexpectedErrorMessage = "An unexpected error occurred while fetching patients"

	// Avatars served from this host are known to be broken.
	brokenAvatarHost = "cloudflare-ipfs.com"
)

// Attempt outcomes, used as metric labels and log fields.
const (
	OutcomeSuccess        = "success"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeCancelled      = "cancelled"
)

// PatientSink receives the sanitized collection.
type PatientSink interface {
	SetPatients(records []model.PatientRecord)
}

// Alerter reports failures to the user.
type Alerter interface {
	ShowAlert(opts model.AlertOptions)
}

type Config struct {
	URL     string
	Timeout time.Duration
	Breaker circuitbreaker.Settings
}

// Orchestrator retrieves the patient collection and publishes it into the
// patient store. Each attempt is bound to its own context; once that context
// is cancelled the attempt leaves both stores and the loading flag alone.
//
// Attempts started by Start and Refetch are independent and are not
// serialized: when two overlap, whichever finishes last wins.
type Orchestrator struct {
	url       string
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
	patients  PatientSink
	alerts    Alerter
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger

	loading atomic.Bool
	settled atomic.Bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(
	cfg Config,
	patients PatientSink,
	alerts Alerter,
	publisher messaging.Publisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *Orchestrator {
	if publisher == nil {
		publisher = messaging.NopPublisher()
	}
	if log == nil {
		log = logger.Nop()
	}

	breakerSettings := cfg.Breaker
	if breakerSettings.Name == "" {
		breakerSettings.Name = "patients-upstream"
	}
	if m != nil {
		m.SetBreakerState("closed")
		onChange := breakerSettings.OnChange
		breakerSettings.OnChange = func(name, from, to string) {
			m.SetBreakerState(to)
			if onChange != nil {
				onChange(name, from, to)
			}
		}
	}

	base, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		url:       cfg.URL,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   circuitbreaker.NewCircuitBreaker(breakerSettings),
		patients:  patients,
		alerts:    alerts,
		publisher: publisher,
		metrics:   m,
		logger:    log.With("fetch"),
		base:      base,
		cancel:    cancel,
	}
	// Nothing has been fetched yet, so the collection is considered loading.
	o.loading.Store(true)
	return o
}

// Start launches the initial fetch in the background.
func (o *Orchestrator) Start() {
	o.launch()
}

// Refetch launches a new attempt that is independent of any earlier one.
func (o *Orchestrator) Refetch() {
	o.launch()
}

// Close cancels every attempt still in flight and waits for them to return.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Loading reports whether a fetch is logically in progress.
func (o *Orchestrator) Loading() bool {
	return o.loading.Load()
}

// Ready reports whether at least one attempt has settled.
func (o *Orchestrator) Ready() bool {
	return o.settled.Load()
}

func (o *Orchestrator) launch() {
	ctx, cancel := context.WithCancel(o.base)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		_ = o.Fetch(ctx)
	}()
}

// Fetch runs a single attempt bound to ctx. It returns nil on success, an
// *errors.HTTPStatusError for non-2xx answers, the context error when the
// attempt was cancelled, or the transport/decoding failure.
func (o *Orchestrator) Fetch(ctx context.Context) (err error) {
	// Loading is raised on every invocation; an attempt cancelled before it
	// starts leaves it raised and sends no request.
	o.loading.Store(true)
	if ctx.Err() != nil {
		o.observe(OutcomeCancelled, 0)
		return ctx.Err()
	}

	o.logger.Debug("fetching patients", "url", o.url)
	start := time.Now()
	if o.metrics != nil {
		o.metrics.FetchInFlight.Inc()
		defer o.metrics.FetchInFlight.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			err = o.fail(ctx, recoveredError(r), start)
		}
	}()

	records, err := o.retrieve(ctx)
	if err != nil {
		return o.fail(ctx, err, start)
	}

	if ctx.Err() != nil {
		o.observe(OutcomeCancelled, time.Since(start))
		return ctx.Err()
	}
	o.patients.SetPatients(records)
	if o.metrics != nil {
		o.metrics.StoreMutations.WithLabelValues("set").Inc()
		o.metrics.PatientsStored.Set(float64(len(records)))
	}

	if ctx.Err() != nil {
		o.observe(OutcomeCancelled, time.Since(start))
		return ctx.Err()
	}
	o.finish()
	o.observe(OutcomeSuccess, time.Since(start))
	o.logger.Info("patients fetched", "count", len(records))

	if err := o.publisher.Publish(ctx, model.EventPatientsSynced, map[string]int{"count": len(records)}); err != nil {
		o.logger.Error(err, "failed to publish sync event")
	}
	return nil
}

func (o *Orchestrator) retrieve(ctx context.Context) ([]model.PatientRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp *http.Response
	err = o.breaker.Execute(func() error {
		r, doErr := o.client.Do(req)
		if doErr != nil {
			return doErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var records []model.PatientRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	if records == nil {
		return nil, errors.New("failed to decode patients: expected a JSON array")
	}
	return sanitizeAvatars(records), nil
}

// fail reports a failed attempt. Cancelled attempts are dropped silently and
// keep the loading flag as it is.
func (o *Orchestrator) fail(ctx context.Context, err error, start time.Time) error {
	if ctx.Err() != nil {
		o.observe(OutcomeCancelled, time.Since(start))
		return err
	}

	outcome := OutcomeTransportError
	var statusErr *apperrors.HTTPStatusError
	if errors.As(err, &statusErr) {
		outcome = OutcomeHTTPError
	}

	if errors.Is(err, context.Canceled) {
		outcome = OutcomeCancelled
	} else {
		message := err.Error()
		if message == "" {
			message = UnexpectedErrorMessage
		}
		o.alerts.ShowAlert(model.AlertOptions{Message: message})
		o.logger.Error(err, "patient fetch failed", "outcome", outcome)
	}

	if ctx.Err() == nil {
		o.finish()
	}
	o.observe(outcome, time.Since(start))
	return err
}

func (o *Orchestrator) finish() {
	o.loading.Store(false)
	o.settled.Store(true)
}

func (o *Orchestrator) observe(outcome string, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.FetchAttempts.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		o.metrics.FetchLatency.Observe(elapsed.Seconds())
	}
}

func sanitizeAvatars(records []model.PatientRecord) []model.PatientRecord {
	for i := range records {
		if url, ok := records[i].Avatar.URL(); ok && strings.Contains(url, brokenAvatarHost) {
			records[i].Avatar = model.Avatar{}
		}
	}
	return records
}

// unexpectedError stands in for a recovered panic value that is not an error.
type unexpectedError struct{}

func (unexpectedError) Error() string { return UnexpectedErrorMessage }

func recoveredError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return unexpectedError{}
}
