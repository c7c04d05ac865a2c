package worker

import (
	"context"
	"sync"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/miner"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
)

// roundOperations handles running the rounds.
func (w *Worker) roundOperations() {
	w.evHandler("worker: roundOperations: G started")
	defer w.evHandler("worker: roundOperations: G completed")

	for {
		select {
		case <-w.startRound:
			if !w.isShutdown() {
				w.runRound()
			}
		case <-w.shut:
			w.evHandler("worker: roundOperations: received shut signal")
			return
		}
	}
}

// runRound drives every miner of the active round through its pipeline and
// waits for all of them to finish.
func (w *Worker) runRound() {
	r := w.state.ActiveRound()
	if r == nil || r.ID == w.lastRoundID {
		w.evHandler("worker: runRound: MINING: no new round to run")
		return
	}
	w.lastRoundID = r.ID

	w.evHandler("worker: runRound: MINING: started: round[%s]", r.ID)
	defer w.evHandler("worker: runRound: MINING: completed: round[%s]", r.ID)

	// Drain the cancel round channel before starting.
	select {
	case <-w.cancelRound:
		w.evHandler("worker: runRound: MINING: drained cancel channel")
	default:
	}

	// Create a context so the round can be cancelled.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// This G exists to cancel the round.
	go func() {
		defer cancel()

		select {
		case <-w.cancelRound:
			w.evHandler("worker: runRound: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runRound: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	results := make([]miner.Result, len(r.Miners))

	var wg sync.WaitGroup
	wg.Add(len(r.Miners))

	for i, mc := range r.Miners {
		go func(i int, mc race.MinerConfig) {
			defer wg.Done()
			results[i] = w.runPipeline(ctx, r, mc)
		}(i, mc)
	}

	wg.Wait()

	w.state.CompleteRound(r, results)

	if r.Outcome() == race.OutcomeWon {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runConfirmations(r)
		}()
	}
}

// runPipeline takes one miner through the stages of the round.
func (w *Worker) runPipeline(ctx context.Context, r *state.Round, mc race.MinerConfig) miner.Result {
	id := mc.Identity
	res := miner.Result{Identity: id, Outcome: miner.Cancelled}

	if !w.runStage(ctx, r, id, race.StageInit, w.timing.Init) || !w.pause(ctx, w.timing.InitGap) {
		return res
	}

	if !w.runStage(ctx, r, id, race.StagePackage, w.timing.Package) || !w.pause(ctx, w.timing.PackageGap) {
		return res
	}

	w.setStep(r, id, race.StageSearch, race.StepRunning)

	res = miner.Search(ctx, miner.Config{
		Identity:      id,
		Header:        r.HeaderFor(id),
		MaxNonce:      r.MaxNonce,
		Speed:         mc.SpeedTier,
		YieldInterval: w.state.YieldInterval(),
		Race:          r,
		EvHandler:     w.evHandler,
	})

	switch res.Outcome {
	case miner.Won:
		w.setStep(r, id, race.StageSearch, race.StepDone)

		if _, err := w.state.CommitWinner(r, res); err != nil {
			w.evHandler("worker: runPipeline: MINING: ERROR: miner[%s]: %s", id, err)
			return res
		}

		w.runWinnerBroadcast(ctx, r, id)

	case miner.Lost:
		status := race.StepFailed
		if res.Found() {
			status = race.StepDone
		}
		w.setStep(r, id, race.StageSearch, status)

		w.runLoserBroadcast(ctx, r, id)

	default:
		w.setStep(r, id, race.StageSearch, race.StepFailed)
	}

	return res
}

// runWinnerBroadcast announces the mined block and syncs the winner.
func (w *Worker) runWinnerBroadcast(ctx context.Context, r *state.Round, id string) {
	if !w.pause(ctx, w.timing.BroadcastGap) {
		return
	}

	if !w.runStage(ctx, r, id, race.StageBroadcast, w.timing.WinnerBroadcast) || !w.pause(ctx, w.timing.WinnerSync) {
		return
	}

	w.setStep(r, id, race.StageSync, race.StepDone)
}

// runLoserBroadcast fails the broadcast of a miner that lost the race and
// syncs the winning block from the network.
func (w *Worker) runLoserBroadcast(ctx context.Context, r *state.Round, id string) {
	if !w.pause(ctx, w.timing.BroadcastGap) {
		return
	}

	w.setStep(r, id, race.StageBroadcast, race.StepRunning)
	if !w.pause(ctx, w.timing.LoserBroadcast) {
		return
	}
	w.setStep(r, id, race.StageBroadcast, race.StepFailed)

	w.setStep(r, id, race.StageSync, race.StepRunning)
	if !w.pause(ctx, w.jitter(w.timing.LoserSync, w.timing.LoserSyncSpread)) {
		return
	}
	w.setStep(r, id, race.StageSync, race.StepDone)
}

// runConfirmations counts the blocks the simulated network builds on top of
// the block the round appended.
func (w *Worker) runConfirmations(r *state.Round) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()

		select {
		case <-w.shut:
		case <-ctx.Done():
		}
	}()

	if !w.pause(ctx, w.timing.ConfirmationDelay) {
		return
	}

	for n := 1; n <= w.timing.Confirmations; n++ {
		if !w.pause(ctx, w.timing.ConfirmationInterval) {
			return
		}

		r.SetConfirmations(n)
		w.evHandler("viewer: round[%s]: confirmations[%d]", r.ID, n)
	}
}

// =============================================================================

// runStage runs a simulated stage, reporting false if the round was
// cancelled before the stage completed.
func (w *Worker) runStage(ctx context.Context, r *state.Round, id string, stage race.Stage, d time.Duration) bool {
	w.setStep(r, id, stage, race.StepRunning)

	if !w.pause(ctx, d) {
		return false
	}

	w.setStep(r, id, stage, race.StepDone)
	return true
}

// setStep records a status change and makes it visible to viewers.
func (w *Worker) setStep(r *state.Round, id string, stage race.Stage, status race.StepStatus) {
	if r.SetStep(id, stage, status) {
		w.evHandler("viewer: round[%s]: miner[%s]: stage[%s]: status[%s]", r.ID, id, stage, status)
	}
}
