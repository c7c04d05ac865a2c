package race

import "github.com/watoukuang/demochain/foundation/blockchain/miner"

// Stage represents one step of the pipeline every miner runs through.
type Stage int

// Set of stages in the order a miner runs them.
const (
	StageInit Stage = iota
	StagePackage
	StageSearch
	StageBroadcast
	StageSync
)

// NumStages is the number of stages in the pipeline.
const NumStages = 5

var stageNames = [NumStages]string{"init", "package", "search", "broadcast", "sync"}

// String implements the fmt.Stringer interface.
func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return "unknown"
	}
	return stageNames[s]
}

// StepStatus represents the status of one stage for one miner.
type StepStatus string

// Set of step statuses.
const (
	StepWaiting StepStatus = "waiting"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// rank orders the statuses so transitions never regress.
func (s StepStatus) rank() int {
	switch s {
	case StepRunning:
		return 1
	case StepDone, StepFailed:
		return 2
	default:
		return 0
	}
}

// Terminal reports whether the status can't change anymore.
func (s StepStatus) Terminal() bool {
	return s.rank() == 2
}

// SyncStatus represents the simulated network sync of a miner.
type SyncStatus string

// Set of sync statuses.
const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
)

// Outcome represents how a round ended.
type Outcome string

// Set of round outcomes.
const (
	OutcomeIdle      Outcome = "idle"
	OutcomeRunning   Outcome = "running"
	OutcomeWon       Outcome = "won"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// =============================================================================

// MinerConfig represents the configuration of one virtual miner.
type MinerConfig struct {
	Identity      string          `json:"identity" validate:"required"`
	SpeedTier     miner.SpeedTier `json:"speed_tier" validate:"required,min=1,max=3"`
	RewardAddress string          `json:"reward_address,omitempty"`
}

// Progress represents how far a miner got into the nonce space.
type Progress struct {
	Nonce   uint64 `json:"nonce"`
	Percent int    `json:"percent"`
}

// Step represents the status of one stage in a snapshot.
type Step struct {
	Stage  string     `json:"stage"`
	Status StepStatus `json:"status"`
}

// MinerStatus represents the read model of one miner.
type MinerStatus struct {
	Identity      string          `json:"identity"`
	SpeedTier     miner.SpeedTier `json:"speed_tier"`
	RewardAddress string          `json:"reward_address,omitempty"`
	Steps         []Step          `json:"steps"`
	Progress      Progress        `json:"progress"`
	Sync          SyncStatus      `json:"sync"`
	Paused        bool            `json:"paused"`
}

// Snapshot is the read only view of the race that clients render.
type Snapshot struct {
	RoundID       string        `json:"round_id,omitempty"`
	Outcome       Outcome       `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	Paused        bool          `json:"paused"`
	ChainLength   int           `json:"chain_length"`
	NextHeight    uint64        `json:"next_height"`
	Difficulty    uint          `json:"difficulty"`
	Winner        *string       `json:"winner"`
	Miners        []MinerStatus `json:"miners"`
	Confirmations int           `json:"confirmations"`
}

// IdleSnapshot returns the snapshot reported before any round ran.
func IdleSnapshot(chainLength int) Snapshot {
	return Snapshot{
		Outcome:     OutcomeIdle,
		ChainLength: chainLength,
		NextHeight:  uint64(chainLength) + 1,
		Miners:      []MinerStatus{},
	}
}

// Percent returns the share of the nonce space covered, clamped to [0, 100].
func Percent(nonce, maxNonce uint64) int {
	if maxNonce == 0 {
		return 0
	}
	if nonce >= maxNonce {
		return 100
	}

	return int(float64(nonce) * 100 / float64(maxNonce))
}
