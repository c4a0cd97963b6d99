package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// CycleReport summarizes one coordinator cycle for telemetry/logging. It is
// returned even on cycles that submit nothing, so callers can distinguish
// "idle, no opportunity" from "ran and profited" from "ran and failed".
type CycleReport struct {
	StartedAt     time.Time
	OpportunityID string
	Submitted     bool
	Signature     Signature
	BalanceBefore uint64
	BalanceAfter  uint64
	BalanceDelta  int64
	Err           error
}

// maxBackoff caps the exponential backoff growth from repeated submission
// failures so a persistent outage never stalls the coordinator indefinitely.
const maxBackoff = 2 * time.Minute

// ArbitrageCoordinator runs the full discover/refresh/scan/plan/submit loop.
// It owns no transport of its own: every network or signing
// effect goes through the injected ChainClient/Signer.
type ArbitrageCoordinator struct {
	log       *logrus.Logger
	client    ChainClient
	signer    Signer
	catalogue *PoolCatalogue
	scanner   *OpportunityScanner
	planner   *ExecutionPlanner

	// balanceAccount is the token account whose balance is sampled before
	// and after every cycle to report realized profit independent of the
	// scanner's own (pre-trade) estimate.
	balanceAccount PoolAddress

	idleBackoff  time.Duration
	cycleCadence time.Duration

	failureStreak int
}

// NewArbitrageCoordinator wires the full pipeline together.
func NewArbitrageCoordinator(
	log *logrus.Logger,
	client ChainClient,
	signer Signer,
	catalogue *PoolCatalogue,
	scanner *OpportunityScanner,
	planner *ExecutionPlanner,
	balanceAccount PoolAddress,
	idleBackoff, cycleCadence time.Duration,
) *ArbitrageCoordinator {
	return &ArbitrageCoordinator{
		log:            log,
		client:         client,
		signer:         signer,
		catalogue:      catalogue,
		scanner:        scanner,
		planner:        planner,
		balanceAccount: balanceAccount,
		idleBackoff:    idleBackoff,
		cycleCadence:   cycleCadence,
	}
}

// Run executes cycles until ctx is canceled. It checks ctx before each
// cycle, after the cycle's balance read, after its refresh and before
// planning, and while sleeping, so a cancellation lands promptly rather than
// waiting for a full cycle or sleep to elapse; once a plan is built, signing
// and submission run to completion.
func (c *ArbitrageCoordinator) Run(ctx context.Context, onCycle func(CycleReport)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		report := c.runCycle(ctx)
		if onCycle != nil {
			onCycle(report)
		}

		var sleep time.Duration
		switch {
		case report.Err != nil:
			c.failureStreak++
			sleep = c.backoffFor(c.failureStreak)
			c.log.WithError(report.Err).WithField("failure_streak", c.failureStreak).Warn("cycle failed, backing off")
		case !report.Submitted:
			c.failureStreak = 0
			sleep = c.idleBackoff
		default:
			c.failureStreak = 0
			sleep = c.cycleCadence
			c.log.WithFields(logrus.Fields{
				"opportunity": report.OpportunityID,
				"balance_delta": report.BalanceDelta,
			}).Info("cycle submitted a trade")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// backoffFor computes the exponential backoff for the nth consecutive
// failure, capped at maxBackoff.
func (c *ArbitrageCoordinator) backoffFor(streak int) time.Duration {
	backoff := c.idleBackoff
	for i := 0; i < streak && backoff < maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// runCycle executes exactly one iteration of the coordinator's loop body:
// sample balance, refresh the catalogue, scan, plan and submit the best
// opportunity if one clears the profit filter, then sample balance again.
func (c *ArbitrageCoordinator) runCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: time.Now()}

	balanceBefore, err := c.client.GetTokenAccountBalance(ctx, c.balanceAccount)
	if err != nil {
		report.Err = &ExecutionError{Kind: ExecutionPrecheck, Err: err}
		return report
	}
	report.BalanceBefore = balanceBefore

	if err := ctx.Err(); err != nil {
		report.Err = err
		return report
	}

	if _, err := c.catalogue.Refresh(ctx, false); err != nil {
		report.Err = err
		return report
	}

	if err := ctx.Err(); err != nil {
		report.Err = err
		return report
	}

	snapshot := c.catalogue.Snapshot()
	opportunities := c.scanner.Scan(snapshot)
	if len(opportunities) == 0 {
		return report
	}
	best := opportunities[0]
	report.OpportunityID = best.Id

	if err := ctx.Err(); err != nil {
		report.Err = err
		return report
	}

	plan, err := c.planner.Plan(ctx, c.signer.Wallet(), best)
	if err != nil {
		report.Err = err
		return report
	}

	recent, err := c.client.GetRecentBlockId(ctx)
	if err != nil {
		report.Err = &ExecutionError{Kind: ExecutionPrecheck, Err: err}
		return report
	}

	signed, err := c.signer.Sign(ctx, plan, recent)
	if err != nil {
		report.Err = &ExecutionError{Kind: ExecutionPrecheck, Err: err}
		return report
	}

	sig, err := c.client.SubmitSigned(ctx, signed)
	if err != nil {
		report.Err = &ExecutionError{Kind: ExecutionSubmissionRejected, Err: err}
		return report
	}
	report.Submitted = true
	report.Signature = sig

	balanceAfter, err := c.client.GetTokenAccountBalance(ctx, c.balanceAccount)
	if err != nil {
		report.Err = &ExecutionError{Kind: ExecutionPostConditionFailed, Err: err}
		return report
	}
	report.BalanceAfter = balanceAfter
	report.BalanceDelta = int64(balanceAfter) - int64(balanceBefore)

	return report
}
