package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/clients/ledger"
	"github.com/eurostake/staking-sync-service/internal/clients/wallet"
	"github.com/eurostake/staking-sync-service/internal/config"
	"github.com/eurostake/staking-sync-service/internal/invoker"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// Step is one ordered transaction of a user-level operation. The
// parameter is pre-encoded against the target's schema; the energy
// limit is a fixed configured ceiling, never estimated.
type Step struct {
	Target           types.ContractAddress
	ReceiveName      string
	Kind             types.PayloadKind
	Amount           uint64
	EncodedParameter []byte
	EnergyLimit      uint64
}

// StepRecord tracks one step through its state machine.
type StepRecord struct {
	Index       int
	Kind        types.PayloadKind
	ReceiveName string
	Status      types.StepStatus
	TxID        types.TransactionID
	Reason      types.RevertReason
	EnergyUsed  uint64
	submittedAt time.Time
}

// Outcome of a fully finalized operation.
type Outcome struct {
	OperationID string
	FinalTxID   types.TransactionID
	Steps       []StepRecord
}

// OperationRecord is the inspectable state of one orchestrated
// operation. Records are discarded a configured retention after all
// steps reach a terminal status.
type OperationRecord struct {
	ID    string
	Steps []StepRecord
}

// PostCommitHook runs once after an operation fully finalizes, delayed
// by the configured grace window. It is never run for ambiguous
// (timed out) outcomes.
type PostCommitHook func(ctx context.Context)

// Orchestrator executes ordered multi-step operations: each step is
// signed through the wallet capability, submitted, and awaited for
// finalization before the next step starts. Steps are never reordered
// or run concurrently, and nothing is retried implicitly: a blind
// retry of a signed submission risks double-submission.
type Orchestrator struct {
	ledger              ledger.Client
	wallet              wallet.Client
	cfg                 *config.TransactionConfig
	finalizationTimeout time.Duration
	postCommit          PostCommitHook

	mu         sync.Mutex
	operations map[string]*OperationRecord
}

func New(
	ledgerClient ledger.Client,
	walletClient wallet.Client,
	txCfg *config.TransactionConfig,
	finalizationTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		ledger:              ledgerClient,
		wallet:              walletClient,
		cfg:                 txCfg,
		finalizationTimeout: finalizationTimeout,
		operations:          make(map[string]*OperationRecord),
	}
}

// SetPostCommitHook registers the hook run after fully successful
// operations. Typically wired to the state store's refresh.
func (o *Orchestrator) SetPostCommitHook(hook PostCommitHook) {
	o.postCommit = hook
}

// Operation returns a copy of the record for a recent operation id.
func (o *Orchestrator) Operation(id string) (*OperationRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	op, ok := o.operations[id]
	if !ok {
		return nil, false
	}
	out := &OperationRecord{ID: op.ID, Steps: make([]StepRecord, len(op.Steps))}
	copy(out.Steps, op.Steps)
	return out, true
}

// Execute runs the ordered steps strictly sequentially and returns the
// final step's transaction id. The first non-finalizing step aborts
// the operation: a failure before anything committed carries that
// step's own error, while a definitive failure after one or more
// finalized steps is reported as PARTIAL_FAILURE so the caller can
// re-issue only the failed step. A timed out wait is reported as
// TIMED_OUT and must not be read as failure.
func (o *Orchestrator) Execute(ctx context.Context, steps []Step) (*Outcome, *types.Error) {
	if len(steps) == 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.ValidationError, "operation has no steps",
		)
	}

	sender, err := o.wallet.ConnectedAccount(ctx)
	if err != nil {
		return nil, err
	}

	op := o.newOperation(steps)
	logger := log.Ctx(ctx).With().Str("operationId", op.ID).Logger()

	var finalized []types.TransactionID
	for i := range steps {
		record := &op.Steps[i]
		stepErr := o.runStep(logger.WithContext(ctx), sender, &steps[i], record)
		o.storeRecord(op, i, record)
		if stepErr == nil {
			finalized = append(finalized, record.TxID)
			continue
		}

		o.finishOperation(op)
		if stepErr.ErrorCode == types.TimedOut {
			// Ambiguous outcome: the step may still finalize. Never
			// collapse this into a failure, partial or otherwise.
			return nil, types.NewErrorWithMsg(
				http.StatusRequestTimeout, types.TimedOut,
				fmt.Sprintf("step %d (%s) finalization wait abandoned; re-query state before retrying", i, record.ReceiveName),
			)
		}
		if len(finalized) > 0 {
			// Earlier steps are irreversibly committed; re-issuing only
			// the failed step is the recovery path.
			return nil, types.NewPartialFailureError(&types.PartialFailureError{
				FailedStepIndex: i,
				Reason:          record.Reason,
				FinalizedTxIDs:  finalized,
				Cause:           stepErr,
			})
		}
		return nil, stepErr
	}

	o.finishOperation(op)
	o.schedulePostCommit(ctx, op.ID)

	outcome := &Outcome{
		OperationID: op.ID,
		FinalTxID:   op.Steps[len(op.Steps)-1].TxID,
		Steps:       append([]StepRecord(nil), op.Steps...),
	}
	return outcome, nil
}

// RetryStep re-issues exactly one step of a partially committed
// operation. It is a deliberate caller action, never automatic.
func (o *Orchestrator) RetryStep(ctx context.Context, step Step) (*Outcome, *types.Error) {
	return o.Execute(ctx, []Step{step})
}

func (o *Orchestrator) runStep(
	ctx context.Context, sender types.AccountAddress, step *Step, record *StepRecord,
) *types.Error {
	logger := log.Ctx(ctx).With().
		Int("stepIndex", record.Index).
		Str("receiveName", step.ReceiveName).
		Logger()

	txID, err := o.wallet.SignAndSend(ctx, &wallet.SignRequest{
		Sender:      sender,
		Target:      step.Target,
		ReceiveName: step.ReceiveName,
		Amount:      step.Amount,
		Parameter:   step.EncodedParameter,
		EnergyLimit: step.EnergyLimit,
	})
	if err != nil {
		if err.ErrorCode == types.UserRejected {
			logger.Info().Msg("signing declined, step canceled")
		} else {
			logger.Error().Err(err).Msg("failed to sign and submit step")
		}
		return err
	}

	if terr := record.transition(types.StepSigned); terr != nil {
		return types.NewInternalServiceError(terr)
	}
	if terr := record.transition(types.StepSubmitted); terr != nil {
		return types.NewInternalServiceError(terr)
	}
	record.TxID = txID
	record.submittedAt = time.Now()
	logger.Info().Str("txId", txID.String()).Msg("step submitted, awaiting finalization")

	result, waitErr := o.ledger.WaitForFinalization(ctx, txID, o.finalizationTimeout)
	if waitErr != nil {
		if waitErr.ErrorCode == types.TimedOut {
			record.terminate(types.StepTimedOut)
			logger.Warn().Str("txId", txID.String()).
				Msg("finalization wait abandoned; transaction not retracted")
			return waitErr
		}
		// The wait itself failed before the bound elapsed; the outcome
		// is as unknown as a timeout, report it the same way.
		record.terminate(types.StepTimedOut)
		logger.Error().Err(waitErr).Str("txId", txID.String()).
			Msg("finalization wait failed; outcome unknown")
		return types.NewError(http.StatusRequestTimeout, types.TimedOut, waitErr)
	}

	if result.Status == ledger.FinalizationRejected {
		record.Reason = invoker.MapRevert(result.RejectCode, result.RejectReason)
		record.terminate(types.StepRejected)
		logger.Warn().
			Str("txId", txID.String()).
			Str("reason", record.Reason.String()).
			Msg("step rejected at finalization")
		return types.NewRevertError(record.Reason, result.RejectReason)
	}

	record.EnergyUsed = result.EnergyUsed
	record.terminate(types.StepFinalized)
	logger.Info().Str("txId", txID.String()).Msg("step finalized")
	return nil
}

func (o *Orchestrator) newOperation(steps []Step) *OperationRecord {
	op := &OperationRecord{
		ID:    uuid.NewString(),
		Steps: make([]StepRecord, len(steps)),
	}
	for i := range steps {
		op.Steps[i] = StepRecord{
			Index:       i,
			Kind:        steps[i].Kind,
			ReceiveName: steps[i].ReceiveName,
			Status:      types.StepBuilt,
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations[op.ID] = op
	return op
}

func (o *Orchestrator) storeRecord(op *OperationRecord, index int, record *StepRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	op.Steps[index] = *record
}

// finishOperation schedules the record for discard once retention
// elapses.
func (o *Orchestrator) finishOperation(op *OperationRecord) {
	id := op.ID
	time.AfterFunc(o.cfg.RecordRetention, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.operations, id)
	})
}

// schedulePostCommit runs the registered hook after the configured
// grace window, detached from the request context so an early caller
// exit does not skip the refresh.
func (o *Orchestrator) schedulePostCommit(ctx context.Context, operationID string) {
	if o.postCommit == nil {
		return
	}
	hookCtx := context.WithoutCancel(ctx)
	time.AfterFunc(o.cfg.RefreshGrace, func() {
		log.Ctx(hookCtx).Debug().
			Str("operationId", operationID).
			Msg("running post-commit refresh hook")
		o.postCommit(hookCtx)
	})
}
