package state_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/genesis"
	"github.com/watoukuang/demochain/foundation/blockchain/miner"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/signature"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/blockchain/worker"
)

func newState(t *testing.T, maxNonce uint64, timing worker.Timing) *state.State {
	t.Helper()

	ev := func(v string, args ...any) {
		t.Log(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Genesis:  genesis.Default(),
		MaxNonce: maxNonce,
		DefaultMiners: []race.MinerConfig{
			{Identity: "A", SpeedTier: miner.TierBasic},
			{Identity: "B", SpeedTier: miner.TierStandard},
			{Identity: "C", SpeedTier: miner.TierTurbo},
		},
		EvHandler: ev,
	})
	require.NoError(t, err)

	worker.Run(st, timing, ev)
	t.Cleanup(st.Shutdown)

	return st
}

func waitRound(t *testing.T, st *state.State) *state.Round {
	t.Helper()

	r := st.ActiveRound()
	require.NotNil(t, r)

	select {
	case <-r.Done():
	case <-time.After(30 * time.Second):
		t.Fatalf("round %s did not finish", r.ID)
	}

	return r
}

func assertSettled(t *testing.T, snap race.Snapshot) {
	t.Helper()

	for _, ms := range snap.Miners {
		for _, step := range ms.Steps {
			assert.True(t, step.Status.Terminal(), "miner %s stage %s is %s", ms.Identity, step.Stage, step.Status)
		}
	}
}

// =============================================================================

func TestDifficultyZeroSingleMiner(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{Confirmations: 6})

	info, err := st.StartRound(state.RoundRequest{
		Payload:    "x",
		Miners:     []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic}},
		Difficulty: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.Height)
	assert.Equal(t, genesis.Hash, info.PrevHash)

	waitRound(t, st)

	snap := st.Snapshot()
	require.NotNil(t, snap.Winner)
	assert.Equal(t, "A", *snap.Winner)
	assert.Equal(t, race.OutcomeWon, snap.Outcome)
	assert.Equal(t, 2, snap.ChainLength)
	assert.Equal(t, uint64(3), snap.NextHeight)

	for _, step := range snap.Miners[0].Steps {
		assert.Equal(t, race.StepDone, step.Status, "stage %s", step.Stage)
	}
	assert.Equal(t, race.SyncSynced, snap.Miners[0].Sync)

	blocks := st.Blocks()
	require.Len(t, blocks, 2)

	b := blocks[1]
	assert.Equal(t, genesis.Hash, b.Header.PrevHash)
	assert.Equal(t, uint64(0), b.Header.Nonce)
	assert.Equal(t, "A", b.Miner)
	assert.Equal(t, b.Header.Hash(), b.Hash)
	require.NotNil(t, b.Reward)
	assert.Equal(t, "50 Demo", b.Reward.String())
	assert.Equal(t, []database.Transfer{{From: "x", To: "-", Amount: "-"}}, b.Transfers)

	for _, v := range st.VerifyChain() {
		assert.True(t, v.Valid, "block %d: %s", v.Height, v.Reason)
	}

	assert.Eventually(t, func() bool {
		return st.Snapshot().Confirmations == 6
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExhaustion(t *testing.T) {
	st := newState(t, 1_000, worker.Timing{})

	_, err := st.StartRound(state.RoundRequest{
		Payload:    "x",
		Miners:     []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic}},
		Difficulty: 7,
	})
	require.NoError(t, err)

	waitRound(t, st)

	snap := st.Snapshot()
	assert.Equal(t, race.OutcomeExhausted, snap.Outcome)
	assert.Equal(t, state.ErrNoBlockFound.Error(), snap.Error)
	assert.Nil(t, snap.Winner)
	assert.Equal(t, 1, snap.ChainLength)
	assert.Equal(t, race.Progress{Nonce: 1_000, Percent: 100}, snap.Miners[0].Progress)
	assert.Equal(t, race.StepFailed, snap.Miners[0].Steps[race.StageSearch].Status)
	assertSettled(t, snap)
}

func TestPausedMinerDoesNotAdvance(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{Init: 200 * time.Millisecond})

	_, err := st.StartRound(state.RoundRequest{
		Payload:    "x",
		Difficulty: 2,
	})
	require.NoError(t, err)
	require.NoError(t, st.PauseMiner("C"))

	r := waitRound(t, st)

	snap := st.Snapshot()
	require.NotNil(t, snap.Winner)
	assert.Contains(t, []string{"A", "B"}, *snap.Winner)
	assert.Equal(t, race.OutcomeWon, snap.Outcome)
	assert.Equal(t, 2, snap.ChainLength)

	paused := snap.Miners[2]
	require.Equal(t, "C", paused.Identity)
	assert.False(t, paused.Paused, "a finished round lifts every pause")
	assert.False(t, snap.Paused)
	assert.Equal(t, uint64(0), paused.Progress.Nonce)
	assert.Equal(t, race.StepFailed, paused.Steps[race.StageSearch].Status)
	assert.Equal(t, race.StepFailed, paused.Steps[race.StageBroadcast].Status)
	assert.Equal(t, race.StepDone, paused.Steps[race.StageSync].Status)
	assert.Equal(t, race.SyncSynced, paused.Sync)
	assertSettled(t, snap)

	assert.ErrorIs(t, st.PauseMiner("C"), state.ErrNoRound)
	assert.Equal(t, r.Winner(), st.Blocks()[1].Miner)
}

func TestStop(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{Init: 200 * time.Millisecond})

	_, err := st.StartRound(state.RoundRequest{
		Payload:    "x",
		Difficulty: 7,
	})
	require.NoError(t, err)
	require.NoError(t, st.Stop())

	waitRound(t, st)

	snap := st.Snapshot()
	assert.Equal(t, race.OutcomeStopped, snap.Outcome)
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.Winner)
	assert.Equal(t, 1, snap.ChainLength)
	assertSettled(t, snap)

	assert.ErrorIs(t, st.Stop(), state.ErrNoRound)
	assert.ErrorIs(t, st.Pause(), state.ErrNoRound)
	assert.ErrorIs(t, st.Resume(), state.ErrNoRound)
}

func TestPauseResumeRound(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{Init: 100 * time.Millisecond})

	_, err := st.StartRound(state.RoundRequest{
		Payload:    "x",
		Difficulty: 1,
	})
	require.NoError(t, err)
	require.NoError(t, st.Pause())

	time.Sleep(300 * time.Millisecond)

	snap := st.Snapshot()
	assert.True(t, snap.Paused)
	assert.Equal(t, race.OutcomeRunning, snap.Outcome)
	for _, ms := range snap.Miners {
		assert.Equal(t, uint64(0), ms.Progress.Nonce, "miner %s", ms.Identity)
	}

	require.NoError(t, st.Resume())
	waitRound(t, st)

	assert.Equal(t, race.OutcomeWon, st.Snapshot().Outcome)
}

func TestResetChainIdempotent(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{})

	_, err := st.StartRound(state.RoundRequest{Payload: "x", Difficulty: 1})
	require.NoError(t, err)
	waitRound(t, st)
	require.Equal(t, 2, st.Snapshot().ChainLength)

	for i := 0; i < 3; i++ {
		st.ResetChain()

		blocks := st.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, genesis.Hash, blocks[0].Hash)

		snap := st.Snapshot()
		assert.Equal(t, race.OutcomeIdle, snap.Outcome)
		assert.Equal(t, uint64(2), snap.NextHeight)
	}

	info, err := st.StartRound(state.RoundRequest{Payload: "again", Difficulty: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.Height)
	waitRound(t, st)
	assert.Equal(t, 2, st.Snapshot().ChainLength)
}

func TestConsecutiveRoundsLink(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{})

	for i := 0; i < 3; i++ {
		_, err := st.StartRound(state.RoundRequest{Payload: fmt.Sprintf("round %d", i), Difficulty: 2})
		require.NoError(t, err)
		waitRound(t, st)
	}

	blocks := st.Blocks()
	require.Len(t, blocks, 4)

	for i := 1; i < len(blocks); i++ {
		assert.Equal(t, uint64(i+1), blocks[i].Header.Height)
		assert.Equal(t, blocks[i-1].Hash, blocks[i].Header.PrevHash)
		assert.True(t, database.IsHashSolved(2, blocks[i].Hash))
	}
}

func TestCoinbaseRound(t *testing.T) {
	st := newState(t, 500_000, worker.Timing{})

	miners := []race.MinerConfig{
		{Identity: "A", SpeedTier: miner.TierBasic, RewardAddress: "addrA"},
		{Identity: "B", SpeedTier: miner.TierTurbo, RewardAddress: "addrB"},
	}
	transfers := []database.Transfer{{From: "alice", To: "bob", Amount: "10 Demo"}}

	_, err := st.StartRound(state.RoundRequest{
		Transfers:  transfers,
		Miners:     miners,
		Difficulty: 1,
		Coinbase:   true,
		Reward:     25,
	})
	require.NoError(t, err)
	waitRound(t, st)

	blocks := st.Blocks()
	require.Len(t, blocks, 2)

	b := blocks[1]
	addr := map[string]string{"A": "addrA", "B": "addrB"}[b.Miner]

	require.Len(t, b.Transfers, 2)
	assert.Equal(t, database.Transfer{From: database.CoinbaseSender, To: addr, Amount: "25 Demo"}, b.Transfers[0])
	assert.Equal(t, transfers[0], b.Transfers[1])

	payload, err := database.EncodeTransfers(b.Transfers)
	require.NoError(t, err)
	assert.Equal(t, payload, b.Header.Payload)
}

func TestCoinbaseRoundKeepsPayload(t *testing.T) {
	var mu sync.Mutex
	var events []string
	ev := func(v string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, fmt.Sprintf(v, args...))
	}

	gen := genesis.Default()
	st, err := state.New(state.Config{
		Genesis:       gen,
		MaxNonce:      500_000,
		DefaultMiners: []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic, RewardAddress: "addrA"}},
		EvHandler:     ev,
	})
	require.NoError(t, err)

	worker.Run(st, worker.Timing{}, ev)
	t.Cleanup(st.Shutdown)

	_, err = st.StartRound(state.RoundRequest{
		Payload:    "Alice->Bob:10",
		Difficulty: 1,
		Coinbase:   true,
	})
	require.NoError(t, err)
	waitRound(t, st)

	blocks := st.Blocks()
	require.Len(t, blocks, 2)

	b := blocks[1]
	assert.Equal(t, "A", b.Miner, "coinbase blocks still record the miner identity")

	reward := database.Reward{Amount: gen.MiningReward, Coin: gen.Coin}
	exp := []database.Transfer{
		database.NewCoinbaseTransfer("addrA", reward),
		{From: "Alice", To: "Bob", Amount: "10"},
	}
	require.Equal(t, exp, b.Transfers)

	payload, err := database.EncodeTransfers(exp)
	require.NoError(t, err)
	assert.Equal(t, payload, b.Header.Payload)

	fingerprint := signature.HashValue(database.ParseTransfers("Alice->Bob:10"))

	mu.Lock()
	defer mu.Unlock()

	var found bool
	for _, e := range events {
		if strings.HasPrefix(e, "state: StartRound:") && strings.Contains(e, "payload["+fingerprint+"]") {
			found = true
		}
	}
	assert.True(t, found, "the start event should carry the payload fingerprint")
}

func TestStartRoundPreconditions(t *testing.T) {
	tests := []struct {
		name string
		req  state.RoundRequest
	}{
		{
			name: "missing payload",
			req:  state.RoundRequest{Payload: "   "},
		},
		{
			name: "duplicate miner",
			req: state.RoundRequest{Payload: "x", Miners: []race.MinerConfig{
				{Identity: "A", SpeedTier: miner.TierBasic},
				{Identity: "A", SpeedTier: miner.TierTurbo},
			}},
		},
		{
			name: "empty identity",
			req:  state.RoundRequest{Payload: "x", Miners: []race.MinerConfig{{SpeedTier: miner.TierBasic}}},
		},
		{
			name: "invalid speed tier",
			req:  state.RoundRequest{Payload: "x", Miners: []race.MinerConfig{{Identity: "A", SpeedTier: 9}}},
		},
		{
			name: "missing reward address",
			req: state.RoundRequest{Coinbase: true, Miners: []race.MinerConfig{
				{Identity: "A", SpeedTier: miner.TierBasic, RewardAddress: "addrA"},
				{Identity: "B", SpeedTier: miner.TierBasic},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			w := state.NewMockWorker(ctrl)
			w.EXPECT().SignalStartRound().Times(0)

			st, err := state.New(state.Config{
				DefaultMiners: []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic}},
			})
			require.NoError(t, err)
			st.Worker = w

			_, err = st.StartRound(tt.req)
			require.ErrorIs(t, err, state.ErrPrecondition)

			assert.Equal(t, race.OutcomeIdle, st.Snapshot().Outcome)
			assert.Equal(t, 1, st.Snapshot().ChainLength)
		})
	}
}

func TestStartRoundWhileInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	w := state.NewMockWorker(ctrl)
	w.EXPECT().SignalStartRound().Times(1)
	w.EXPECT().SignalCancelRound().Times(1)

	st, err := state.New(state.Config{
		DefaultMiners: []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic}},
	})
	require.NoError(t, err)
	st.Worker = w

	_, err = st.StartRound(state.RoundRequest{Payload: "x", Difficulty: 3})
	require.NoError(t, err)

	_, err = st.StartRound(state.RoundRequest{Payload: "y", Difficulty: 3})
	require.ErrorIs(t, err, state.ErrRoundInProgress)

	require.NoError(t, st.Pause())
	require.ErrorIs(t, st.PauseMiner("Z"), state.ErrPrecondition)

	require.NoError(t, st.Stop())
	assert.Equal(t, race.OutcomeStopped, st.Snapshot().Outcome)
}

func TestStaleCommitRefused(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	w := state.NewMockWorker(ctrl)
	w.EXPECT().SignalStartRound().AnyTimes()
	w.EXPECT().SignalCancelRound().AnyTimes()

	m := state.NewMockMetrics(ctrl)
	m.EXPECT().ObserveReset().Times(1)
	m.EXPECT().ObserveAppend(gomock.Any()).Times(0)

	st, err := state.New(state.Config{
		DefaultMiners: []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierBasic}},
		Metrics:       m,
	})
	require.NoError(t, err)
	st.Worker = w

	_, err = st.StartRound(state.RoundRequest{Payload: "x", Difficulty: 0})
	require.NoError(t, err)

	r := st.ActiveRound()
	require.True(t, r.Claim("A"))

	st.ResetChain()

	header := r.HeaderFor("A")
	_, err = st.CommitWinner(r, miner.Result{Identity: "A", Outcome: miner.Won, Won: true, Hash: header.Hash()})
	require.True(t, errors.Is(err, database.ErrInvariant), "got %v", err)
	assert.Equal(t, race.OutcomeFailed, r.Outcome())
	assert.Len(t, st.Blocks(), 1)
}

func TestMetricsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := state.NewMockMetrics(ctrl)
	m.EXPECT().ObserveAttempts("A", gomock.Any()).Times(1)
	m.EXPECT().ObserveAppend(nil).Times(1)
	m.EXPECT().ObserveRound(string(race.OutcomeWon), gomock.AssignableToTypeOf(time.Time{})).Times(1)

	st, err := state.New(state.Config{Metrics: m})
	require.NoError(t, err)

	worker.Run(st, worker.Timing{}, nil)
	t.Cleanup(st.Shutdown)

	_, err = st.StartRound(state.RoundRequest{
		Payload:    "x",
		Miners:     []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierTurbo}},
		Difficulty: 1,
	})
	require.NoError(t, err)

	waitRound(t, st)
}
