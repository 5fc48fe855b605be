package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/events"
	"github.com/taxdesk/portal-client/internal/logging"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/validation"
)

// AssignmentPhase is the coordinator's state for one assignment.
type AssignmentPhase string

const (
	PhaseIdle       AssignmentPhase = "idle"
	PhaseSubmitting AssignmentPhase = "submitting"
	PhaseProcessing AssignmentPhase = "processing"
	PhasePolling    AssignmentPhase = "polling"
	PhaseCompleted  AssignmentPhase = "completed"
	PhaseFailed     AssignmentPhase = "failed"
	PhaseTimeout    AssignmentPhase = "timeout"
	PhaseCancelled  AssignmentPhase = "cancelled"
)

// IsTerminal reports whether the phase ends the coordination.
func (p AssignmentPhase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseFailed, PhaseTimeout, PhaseCancelled:
		return true
	}
	return false
}

// ESignConfig configures the ESignService.
type ESignConfig struct {
	// MaxAttempts bounds the status queries per assignment. Default: 30
	MaxAttempts int

	// PollInterval is the fixed wait before each status query. Default: 2s
	PollInterval time.Duration

	Logger *logging.Logger
}

// ESignHooks lets the frontend react to a coordination. All hooks are optional
// and are called on the coordinating goroutine.
type ESignHooks struct {
	// OnCompleted runs after a successful assignment, typically to re-browse
	// the document list.
	OnCompleted func(ctx context.Context, result *AssignmentResult)

	// OnAttempt runs after each status query.
	OnAttempt func(attempt, maxAttempts int, state models.AssignmentState, err error)

	// OnSettled runs once the coordination reaches a terminal phase.
	OnSettled func(documentID int64, phase AssignmentPhase, err error)
}

// ESignService submits e-sign assignments and polls them to completion.
// Only one coordination runs per document at a time.
type ESignService struct {
	portal   ESignBackend
	eventBus *events.EventBus
	logger   *logging.Logger
	config   ESignConfig

	mu       sync.Mutex
	hooks    ESignHooks
	inflight map[int64]context.CancelFunc
}

// NewESignService creates a new ESignService.
func NewESignService(portal ESignBackend, eventBus *events.EventBus, config ESignConfig) *ESignService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = constants.ESignMaxAttempts
	}
	if config.PollInterval <= 0 {
		config.PollInterval = constants.ESignPollInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &ESignService{
		portal:   portal,
		eventBus: eventBus,
		logger:   logger.Component("esign-service"),
		config:   config,
		inflight: make(map[int64]context.CancelFunc),
	}
}

// SetHooks replaces the frontend hooks.
func (es *ESignService) SetHooks(hooks ESignHooks) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.hooks = hooks
}

// InFlight reports whether documentID has a coordination running.
func (es *ESignService) InFlight(documentID int64) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	_, ok := es.inflight[documentID]
	return ok
}

// Cancel stops the coordination for documentID. It reports whether one was running.
func (es *ESignService) Cancel(documentID int64) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	cancel, ok := es.inflight[documentID]
	if ok {
		cancel()
	}
	return ok
}

// CancelAll stops every running coordination.
func (es *ESignService) CancelAll() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, cancel := range es.inflight {
		cancel()
	}
}

// Assign validates req, submits it and polls until the assignment settles.
//
// Errors:
//   - *validation.Error: rejected locally, nothing was sent
//   - ErrAssignmentInFlight: the document already has a coordination running
//   - *api.RemoteRejection: the portal refused the submission or reported failure
//   - *TimeoutError: still processing after MaxAttempts queries; outcome unknown
//   - context.Canceled: stopped by the caller
func (es *ESignService) Assign(ctx context.Context, req models.AssignmentRequest) (*AssignmentResult, error) {
	if err := validation.ValidateAssignment(&req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	es.mu.Lock()
	if _, busy := es.inflight[req.DocumentID]; busy {
		es.mu.Unlock()
		cancel()
		return nil, ErrAssignmentInFlight
	}
	es.inflight[req.DocumentID] = cancel
	hooks := es.hooks
	es.mu.Unlock()

	defer func() {
		es.mu.Lock()
		delete(es.inflight, req.DocumentID)
		es.mu.Unlock()
		cancel()
	}()

	run := &assignmentRun{svc: es, hooks: hooks, documentID: req.DocumentID, phase: PhaseIdle}
	result, err := run.execute(ctx, req)
	if hooks.OnSettled != nil {
		hooks.OnSettled(req.DocumentID, run.phase, err)
	}
	return result, err
}

// Status queries an existing assignment once.
func (es *ESignService) Status(ctx context.Context, assignmentID string) (*models.AssignmentStatus, error) {
	if strings.TrimSpace(assignmentID) == "" {
		return nil, fmt.Errorf("assignment id is required")
	}
	status, err := es.portal.AssignmentStatus(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment status: %w", err)
	}
	return status, nil
}

// assignmentRun is the state of one coordination.
type assignmentRun struct {
	svc          *ESignService
	hooks        ESignHooks
	documentID   int64
	assignmentID string
	phase        AssignmentPhase
}

func (r *assignmentRun) transition(to AssignmentPhase, attempt int, errMsg string) {
	from := r.phase
	r.phase = to
	r.svc.logger.Debug().
		Int64("document_id", r.documentID).
		Str("assignment_id", r.assignmentID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int("attempt", attempt).
		Msg("Assignment state changed")
	r.svc.eventBus.PublishAssignmentState(r.documentID, r.assignmentID, string(from), string(to), attempt, errMsg)
}

func (r *assignmentRun) execute(ctx context.Context, req models.AssignmentRequest) (*AssignmentResult, error) {
	r.transition(PhaseSubmitting, 0, "")

	created, err := r.svc.portal.CreateAssignment(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			r.transition(PhaseCancelled, 0, "")
			return nil, ctx.Err()
		}
		r.transition(PhaseFailed, 0, api.ErrorMessage(err))
		return nil, fmt.Errorf("failed to submit assignment: %w", err)
	}

	r.assignmentID = created.AssignmentID
	r.svc.logger.Info().Int64("document_id", r.documentID).Str("assignment_id", r.assignmentID).Msg("Assignment submitted")
	r.transition(PhaseProcessing, 0, "")

	return r.poll(ctx)
}

// poll waits PollInterval before each status query, for at most
// MaxAttempts queries. Query errors use up an attempt and polling continues.
func (r *assignmentRun) poll(ctx context.Context) (*AssignmentResult, error) {
	maxAttempts := r.svc.config.MaxAttempts
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			r.transition(PhaseCancelled, attempt, "")
			return nil, ctx.Err()
		}

		r.transition(PhasePolling, attempt, "")
		status, err := r.svc.portal.AssignmentStatus(ctx, r.assignmentID)
		if err != nil {
			if ctx.Err() != nil {
				r.transition(PhaseCancelled, attempt, "")
				return nil, ctx.Err()
			}
			lastErr = err
			r.svc.logger.Debug().Err(err).Str("assignment_id", r.assignmentID).Int("attempt", attempt).Msg("Status query failed, will retry")
			r.attempted(attempt, "", err)
			continue
		}
		r.attempted(attempt, status.Status, nil)

		switch status.Status {
		case models.AssignmentCompleted:
			r.transition(PhaseCompleted, attempt, "")
			result := &AssignmentResult{
				DocumentID:   r.documentID,
				AssignmentID: r.assignmentID,
				Payload:      status.Result,
				Attempts:     attempt,
			}
			r.svc.logger.Info().Str("assignment_id", r.assignmentID).Int("attempts", attempt).Msg("Assignment completed")
			if r.hooks.OnCompleted != nil {
				r.hooks.OnCompleted(ctx, result)
			}
			return result, nil

		case models.AssignmentFailed:
			msg := strings.TrimSpace(status.Error)
			if msg == "" {
				msg = "The signature assignment failed."
			}
			r.transition(PhaseFailed, attempt, msg)
			return nil, &api.RemoteRejection{Op: "assign document", Message: msg}
		}
	}

	r.transition(PhaseTimeout, maxAttempts, "")
	r.svc.logger.Warn().Str("assignment_id", r.assignmentID).Int("attempts", maxAttempts).Msg("Assignment still processing, giving up polling")
	return nil, &TimeoutError{
		DocumentID:   r.documentID,
		AssignmentID: r.assignmentID,
		Attempts:     maxAttempts,
		LastErr:      lastErr,
	}
}

// wait sleeps one poll interval unless ctx is cancelled first.
func (r *assignmentRun) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		r.transition(PhaseCancelled, 0, "")
		return ctx.Err()
	}
	timer := time.NewTimer(r.svc.config.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.transition(PhaseCancelled, 0, "")
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *assignmentRun) attempted(attempt int, state models.AssignmentState, err error) {
	if r.hooks.OnAttempt != nil {
		r.hooks.OnAttempt(attempt, r.svc.config.MaxAttempts, state, err)
	}
}
