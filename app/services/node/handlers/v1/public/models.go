package public

import (
	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/nameservice"
)

type transfer struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// startRequest is the body accepted to start a round. Omitted miners fall
// back to the miners the node is configured with and an omitted difficulty
// falls back to the genesis difficulty.
type startRequest struct {
	Payload    string             `json:"payload"`
	Transfers  []transfer         `json:"transfers" validate:"dive"`
	Miners     []race.MinerConfig `json:"miners" validate:"dive"`
	Difficulty *int               `json:"difficulty"`
	Coinbase   bool               `json:"coinbase"`
	Reward     uint64             `json:"reward"`
	Coin       string             `json:"coin"`
}

func (req startRequest) toRoundRequest(defaultDifficulty uint) state.RoundRequest {
	difficulty := int(defaultDifficulty)
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}

	var trans []database.Transfer
	for _, tr := range req.Transfers {
		trans = append(trans, database.Transfer{From: tr.From, To: tr.To, Amount: tr.Amount})
	}

	return state.RoundRequest{
		Payload:    req.Payload,
		Transfers:  trans,
		Miners:     req.Miners,
		Difficulty: difficulty,
		Coinbase:   req.Coinbase,
		Reward:     req.Reward,
		Coin:       req.Coin,
	}
}

type status struct {
	Status string `json:"status"`
	Round  string `json:"round,omitempty"`
}

type namedTransfer struct {
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	ToName   string `json:"to_name,omitempty"`
	Amount   string `json:"amount"`
}

type block struct {
	Height     uint64          `json:"height"`
	Nonce      uint64          `json:"nonce"`
	PrevHash   string          `json:"previous"`
	TimeStamp  uint64          `json:"timestamp"`
	Data       string          `json:"data"`
	Difficulty uint            `json:"difficulty"`
	Hash       string          `json:"hash"`
	Miner      string          `json:"miner,omitempty"`
	Reward     string          `json:"reward,omitempty"`
	Transfers  []namedTransfer `json:"transfers"`
	Valid      bool            `json:"valid"`
}

// toBlocks converts the chain into the block cards clients render. A block
// is valid when its digest satisfies its difficulty.
func toBlocks(blocks []database.Block, ns *nameservice.NameService) []block {
	out := make([]block, len(blocks))
	for i, b := range blocks {
		out[i] = toBlock(b, ns)
	}
	return out
}

func toBlock(b database.Block, ns *nameservice.NameService) block {
	blk := block{
		Height:     b.Header.Height,
		Nonce:      b.Header.Nonce,
		PrevHash:   b.Header.PrevHash,
		TimeStamp:  b.Header.TimeStamp,
		Data:       b.Header.Payload,
		Difficulty: b.Header.Difficulty,
		Hash:       b.Hash,
		Miner:      b.Miner,
		Transfers:  make([]namedTransfer, len(b.Transfers)),
		Valid:      database.IsHashSolved(b.Header.Difficulty, b.Hash),
	}

	if b.Reward != nil {
		blk.Reward = b.Reward.String()
	}

	for i, tr := range b.Transfers {
		blk.Transfers[i] = namedTransfer{
			From:   tr.From,
			To:     tr.To,
			Amount: tr.Amount,
		}
		if name := ns.Lookup(tr.From); name != tr.From {
			blk.Transfers[i].FromName = name
		}
		if name := ns.Lookup(tr.To); name != tr.To {
			blk.Transfers[i].ToName = name
		}
	}

	return blk
}

type verification struct {
	Valid    bool               `json:"valid"`
	Verdicts []database.Verdict `json:"verdicts"`
}
