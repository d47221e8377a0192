package orchestrator

import (
	"fmt"
	"time"

	"github.com/eurostake/staking-sync-service/internal/observability/metrics"
	"github.com/eurostake/staking-sync-service/internal/types"
	"github.com/eurostake/staking-sync-service/internal/utils"
)

// transition advances the record along the step state machine,
// rejecting transitions the machine does not define.
func (r *StepRecord) transition(to types.StepStatus) error {
	if !utils.Contains(types.QualifiedPreviousStates(to), r.Status) {
		return fmt.Errorf(
			"invalid step transition from %s to %s at step %d",
			r.Status.ToString(), to.ToString(), r.Index,
		)
	}
	r.Status = to
	return nil
}

// terminate moves the record into a terminal status and records the
// submit-to-terminal duration. A step that already reached a terminal
// status keeps it.
func (r *StepRecord) terminate(status types.StepStatus) {
	if r.Status.IsTerminal() {
		return
	}
	r.Status = status
	if !r.submittedAt.IsZero() {
		metrics.ObserveStepFinalization(
			r.Kind.ToString(), status.ToString(), time.Since(r.submittedAt),
		)
	}
}
