// Package worker runs the mining rounds for the node: one pipeline per miner
// through init, package, search, broadcast and sync, and the simulated
// confirmations of a mined block.
package worker

import (
	"sync"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/state"
)

// Timing represents the pauses that make up the simulated parts of a round.
// A zero Timing runs every simulated stage without pausing.
type Timing struct {
	Init                 time.Duration
	InitGap              time.Duration
	Package              time.Duration
	PackageGap           time.Duration
	BroadcastGap         time.Duration
	WinnerBroadcast      time.Duration
	WinnerSync           time.Duration
	LoserBroadcast       time.Duration
	LoserSync            time.Duration
	LoserSyncSpread      time.Duration
	ConfirmationDelay    time.Duration
	ConfirmationInterval time.Duration
	Confirmations        int
}

// DefaultTiming returns the pauses the node runs with.
func DefaultTiming() Timing {
	return Timing{
		Init:                 500 * time.Millisecond,
		InitGap:              300 * time.Millisecond,
		Package:              time.Second,
		PackageGap:           500 * time.Millisecond,
		BroadcastGap:         200 * time.Millisecond,
		WinnerBroadcast:      800 * time.Millisecond,
		WinnerSync:           300 * time.Millisecond,
		LoserBroadcast:       500 * time.Millisecond,
		LoserSync:            800 * time.Millisecond,
		LoserSyncSpread:      800 * time.Millisecond,
		ConfirmationDelay:    2 * time.Second,
		ConfirmationInterval: 800 * time.Millisecond,
		Confirmations:        6,
	}
}

// =============================================================================

// Worker manages the round workflows for the node.
type Worker struct {
	state       *state.State
	timing      Timing
	wg          sync.WaitGroup
	shut        chan struct{}
	startRound  chan bool
	cancelRound chan bool
	evHandler   state.EventHandler
	lastRoundID string
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, timing Timing, evHandler state.EventHandler) {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	w := Worker{
		state:       st,
		timing:      timing,
		shut:        make(chan struct{}),
		startRound:  make(chan bool, 1),
		cancelRound: make(chan bool, 1),
		evHandler:   evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.roundOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel round")
	w.SignalCancelRound()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartRound starts a round. If there is already a signal pending in
// the channel, just return since the latest round will be picked up.
func (w *Worker) SignalStartRound() {
	select {
	case w.startRound <- true:
	default:
	}
	w.evHandler("worker: SignalStartRound: round signaled")
}

// SignalCancelRound signals the G executing the runRound function to stop
// every miner pipeline immediately.
func (w *Worker) SignalCancelRound() {
	select {
	case w.cancelRound <- true:
	default:
	}
	w.evHandler("worker: SignalCancelRound: MINING: CANCEL: signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
