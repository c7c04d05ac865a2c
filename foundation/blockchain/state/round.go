package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/signature"
)

// Set of errors returned by the round controls.
var (
	ErrPrecondition    = errors.New("round precondition failed")
	ErrRoundInProgress = errors.New("round already in progress")
	ErrNoRound         = errors.New("no round in progress")
)

// precondition constructs an error for a round that can't be started.
func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// =============================================================================

// RoundRequest represents everything needed to start a mining round.
type RoundRequest struct {
	Payload    string
	Transfers  []database.Transfer
	Miners     []race.MinerConfig
	Difficulty int
	Coinbase   bool
	Reward     uint64
	Coin       string
}

// RoundInfo represents the frozen fields of a round that was started.
type RoundInfo struct {
	ID         string   `json:"id"`
	Height     uint64   `json:"height"`
	PrevHash   string   `json:"previous"`
	TimeStamp  uint64   `json:"timestamp"`
	Difficulty uint     `json:"difficulty"`
	MaxNonce   uint64   `json:"max_nonce"`
	Miners     []string `json:"miners"`
}

// Round is the round in flight. It extends the race state with the per
// miner block contents and the lifetime of the round.
type Round struct {
	*race.Round

	Reward    database.Reward
	Coinbase  bool
	headers   map[string]database.BlockHeader
	transfers map[string][]database.Transfer

	ctx    context.Context
	cancel context.CancelFunc

	done      chan struct{}
	doneOnce  sync.Once
	committed bool
}

// Context returns the context that is cancelled when the round is stopped,
// replaced or the node shuts down.
func (r *Round) Context() context.Context {
	return r.ctx
}

// HeaderFor returns the frozen header the specified miner searches. In coinbase
// rounds every miner commits its own reward address through the payload.
func (r *Round) HeaderFor(identity string) database.BlockHeader {
	if h, exists := r.headers[identity]; exists {
		return h
	}
	return r.Round.Header
}

// Transfers returns the transfers the specified miner packaged.
func (r *Round) Transfers(identity string) []database.Transfer {
	return r.transfers[identity]
}

// Done returns a channel that is closed once every miner pipeline of the
// round has finished.
func (r *Round) Done() <-chan struct{} {
	return r.done
}

// inFlight reports whether the miner pipelines are still running.
func (r *Round) inFlight() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// =============================================================================

// StartRound validates the request, freezes the next block fields and signals
// the worker to run the round. It returns as soon as the round is started.
func (s *State) StartRound(req RoundRequest) (RoundInfo, error) {
	if s.Worker == nil {
		return RoundInfo{}, errors.New("no worker registered to run rounds")
	}

	if len(req.Miners) == 0 {
		req.Miners = s.DefaultMiners()
	}

	if err := s.validateRound(req); err != nil {
		return RoundInfo{}, err
	}

	if req.Reward == 0 {
		req.Reward = s.genesis.MiningReward
	}
	if req.Coin == "" {
		req.Coin = s.genesis.Coin
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != nil && s.round.inFlight() {
		return RoundInfo{}, fmt.Errorf("%w: %s", ErrRoundInProgress, s.round.ID)
	}

	// Confirmations of the previous round are still ticking.
	if s.round != nil {
		s.round.cancel()
	}

	tip := s.db.Tip()

	header := database.BlockHeader{
		Height:     tip.Header.Height + 1,
		PrevHash:   tip.Hash,
		TimeStamp:  uint64(time.Now().UTC().UnixMilli()),
		Payload:    req.Payload,
		Difficulty: database.ClampDifficulty(req.Difficulty),
	}

	reward := database.Reward{Amount: req.Reward, Coin: req.Coin}

	headers := make(map[string]database.BlockHeader, len(req.Miners))
	transfers := make(map[string][]database.Transfer, len(req.Miners))

	packaged := req.Transfers
	if len(packaged) == 0 && strings.TrimSpace(req.Payload) != "" {
		packaged = database.ParseTransfers(req.Payload)
	}

	for _, mc := range req.Miners {
		h := header
		trans := req.Transfers

		switch {
		case req.Coinbase:
			trans = append([]database.Transfer{database.NewCoinbaseTransfer(mc.RewardAddress, reward)}, packaged...)
			payload, err := database.EncodeTransfers(trans)
			if err != nil {
				return RoundInfo{}, fmt.Errorf("encode transfers for miner %q: %w", mc.Identity, err)
			}
			h.Payload = payload

		case strings.TrimSpace(req.Payload) == "":
			payload, err := database.EncodeTransfers(trans)
			if err != nil {
				return RoundInfo{}, fmt.Errorf("encode transfers: %w", err)
			}
			h.Payload = payload

		case len(trans) == 0:
			trans = packaged
		}

		headers[mc.Identity] = h
		transfers[mc.Identity] = trans
	}

	ctx, cancel := context.WithCancel(context.Background())

	round := Round{
		Round:     race.New(uuid.NewString(), header, s.maxNonce, req.Miners),
		Reward:    reward,
		Coinbase:  req.Coinbase,
		headers:   headers,
		transfers: transfers,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.round = &round

	s.evHandler("state: StartRound: round[%s]: height[%d]: difficulty[%d]: miners[%d]: coinbase[%v]: payload[%s]", round.ID, header.Height, header.Difficulty, len(req.Miners), req.Coinbase, signature.HashValue(packaged))

	s.Worker.SignalStartRound()

	info := RoundInfo{
		ID:         round.ID,
		Height:     header.Height,
		PrevHash:   header.PrevHash,
		TimeStamp:  header.TimeStamp,
		Difficulty: header.Difficulty,
		MaxNonce:   s.maxNonce,
		Miners:     make([]string, len(req.Miners)),
	}
	for i, mc := range req.Miners {
		info.Miners[i] = mc.Identity
	}

	return info, nil
}

// validateRound checks the request before anything about the round is frozen.
func (s *State) validateRound(req RoundRequest) error {
	if len(req.Miners) == 0 {
		return precondition("at least one miner is required")
	}

	if !req.Coinbase && strings.TrimSpace(req.Payload) == "" && len(req.Transfers) == 0 {
		return precondition("payload or transfers are required")
	}

	seen := make(map[string]bool, len(req.Miners))
	for _, mc := range req.Miners {
		id := strings.TrimSpace(mc.Identity)
		switch {
		case id == "":
			return precondition("miner identity is required")
		case seen[id]:
			return precondition("miner %q is configured twice", id)
		case !mc.SpeedTier.Valid():
			return precondition("miner %q has invalid speed tier %d", id, mc.SpeedTier)
		case req.Coinbase && strings.TrimSpace(mc.RewardAddress) == "":
			return precondition("miner %q has no reward address", id)
		}
		seen[id] = true
	}

	return nil
}

// =============================================================================

// Pause suspends every miner of the round in flight.
func (s *State) Pause() error {
	r, err := s.inFlightRound()
	if err != nil {
		return err
	}

	r.Pause()
	s.evHandler("state: Pause: round[%s]", r.ID)

	return nil
}

// Resume releases the round wide pause.
func (s *State) Resume() error {
	r, err := s.inFlightRound()
	if err != nil {
		return err
	}

	r.Resume()
	s.evHandler("state: Resume: round[%s]", r.ID)

	return nil
}

// PauseMiner suspends a single miner of the round in flight.
func (s *State) PauseMiner(identity string) error {
	r, err := s.inFlightRound()
	if err != nil {
		return err
	}

	if err := r.PauseMiner(identity); err != nil {
		return fmt.Errorf("%w: %s", ErrPrecondition, err)
	}
	s.evHandler("state: PauseMiner: round[%s]: miner[%s]", r.ID, identity)

	return nil
}

// ResumeMiner releases the pause of a single miner.
func (s *State) ResumeMiner(identity string) error {
	r, err := s.inFlightRound()
	if err != nil {
		return err
	}

	if err := r.ResumeMiner(identity); err != nil {
		return fmt.Errorf("%w: %s", ErrPrecondition, err)
	}
	s.evHandler("state: ResumeMiner: round[%s]: miner[%s]", r.ID, identity)

	return nil
}

// Stop cancels the round in flight. Miners observe the cancellation at their
// next yield point. A round that has not been won ends as stopped and
// nothing is appended to the chain.
func (s *State) Stop() error {
	s.mu.Lock()
	r := s.round
	s.mu.Unlock()

	if r == nil {
		return ErrNoRound
	}

	// Confirmations are cancelled even if the pipelines are done.
	defer r.cancel()

	if !r.inFlight() {
		return ErrNoRound
	}

	// A winner that claimed before the halt still gets its block appended.
	r.Halt()
	if !r.HasWinner() {
		r.Finish(race.OutcomeStopped, nil)
	}
	s.Worker.SignalCancelRound()

	s.evHandler("state: Stop: round[%s]: outcome[%s]", r.ID, r.Outcome())

	return nil
}

// ResetChain stops any round in flight and takes the chain back to holding
// only the genesis block. Calling it repeatedly has the same effect as
// calling it once.
func (s *State) ResetChain() {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.db.Reset()
	s.round = nil
	s.metrics.ObserveReset()

	s.evHandler("state: ResetChain: chain reset to genesis[%s]", s.genesis.Hash)
}

// ActiveRound returns the most recently started round, nil if none or the
// chain was reset since.
func (s *State) ActiveRound() *Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.round
}

// inFlightRound returns the round whose miner pipelines are still running.
func (s *State) inFlightRound() (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil || !s.round.inFlight() {
		return nil, ErrNoRound
	}

	return s.round, nil
}
