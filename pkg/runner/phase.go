// Package runner holds the two generic pieces of the orchestration: the
// sequential phase runner and the bounded health poller. Both are free of
// docker or Elasticsearch knowledge; pkg/task binds them to concrete
// operations.
package runner

import (
	"context"
	"time"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/logger"
)

// Phase is one ordered, idempotent step of a role's bring-up or teardown.
type Phase struct {
	Name string

	// Precheck reports whether the phase's outcome is already in place, in
	// which case Run is skipped. Nil means the phase always runs.
	// "Already exists" must be reported as done, never as an error, so the
	// same role can be re-run after an interruption.
	Precheck func(ctx context.Context) (done bool, err error)

	// Run applies the phase. It must be safe to call again after a partial
	// earlier run.
	Run func(ctx context.Context) error

	// Timeout caps this phase's execution. Zero means no per-phase cap.
	Timeout time.Duration
}

// PhaseResult records the outcome of one phase.
type PhaseResult struct {
	Name   string
	Status string // common.StatusSkipped, StatusSuccess or StatusFailed
	Err    error
}

// Report summarizes a PhaseRunner invocation.
type Report struct {
	Role   string
	Phases []PhaseResult
}

// PhaseRunner executes a role's phases strictly in sequence, aborting on
// the first failure. Already-applied side effects are left in place; there
// is no rollback.
type PhaseRunner struct {
	log *logger.Logger
}

// NewPhaseRunner builds a runner logging through log, or the global logger
// when nil.
func NewPhaseRunner(log *logger.Logger) *PhaseRunner {
	if log == nil {
		log = logger.Get()
	}
	return &PhaseRunner{log: log}
}

// Run executes phases in order. On failure the returned error wraps the
// underlying cause, tagged with the failing phase's name, and the report
// covers the phases reached so far. Re-running the same phases with no
// intervening state change produces no error: prechecks mark applied work
// as skipped.
func (r *PhaseRunner) Run(ctx context.Context, role string, phases []Phase) (*Report, error) {
	report := &Report{Role: role}

	for i, p := range phases {
		if err := ctx.Err(); err != nil {
			failed := errors.Wrap(err, errors.KindPhaseFailed, "phase %q aborted", p.Name)
			report.Phases = append(report.Phases, PhaseResult{Name: p.Name, Status: common.StatusFailed, Err: failed})
			return report, failed
		}

		r.log.Infof("[%d/%d] %s", i+1, len(phases), p.Name)

		phaseCtx := ctx
		var cancel context.CancelFunc
		if p.Timeout > 0 {
			phaseCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}

		result, err := r.runOne(phaseCtx, p)
		if cancel != nil {
			cancel()
		}
		report.Phases = append(report.Phases, result)
		if err != nil {
			r.log.Errorf("phase %q failed: %v", p.Name, err)
			return report, err
		}
		if result.Status == common.StatusSkipped {
			r.log.Debugf("phase %q already satisfied, skipped", p.Name)
		}
	}
	return report, nil
}

func (r *PhaseRunner) runOne(ctx context.Context, p Phase) (PhaseResult, error) {
	if p.Precheck != nil {
		done, err := p.Precheck(ctx)
		if err != nil {
			failed := wrapPhaseErr(err, p.Name)
			return PhaseResult{Name: p.Name, Status: common.StatusFailed, Err: failed}, failed
		}
		if done {
			return PhaseResult{Name: p.Name, Status: common.StatusSkipped}, nil
		}
	}
	if err := p.Run(ctx); err != nil {
		failed := wrapPhaseErr(err, p.Name)
		return PhaseResult{Name: p.Name, Status: common.StatusFailed, Err: failed}, failed
	}
	return PhaseResult{Name: p.Name, Status: common.StatusSuccess}, nil
}

// wrapPhaseErr tags err with the phase name. Precondition and timeout kinds
// pass through unchanged so callers can still classify them.
func wrapPhaseErr(err error, phase string) error {
	switch errors.KindOf(err) {
	case errors.KindPreconditionFailed, errors.KindTimeout, errors.KindUserCancelled:
		return err
	}
	return errors.Wrap(err, errors.KindPhaseFailed, "phase %q", phase)
}
