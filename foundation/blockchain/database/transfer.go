package database

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CoinbaseSender is the From value of the transfer that pays the miner.
const CoinbaseSender = "Coinbase"

// Transfer represents a value transfer recorded in a block payload.
type Transfer struct {
	From   string `json:"fm"`
	To     string `json:"to"`
	Amount string `json:"amt"`
}

// String implements the fmt.Stringer interface for logging.
func (tr Transfer) String() string {
	return fmt.Sprintf("%s->%s:%s", tr.From, tr.To, tr.Amount)
}

// Reward represents the award paid to the miner of a coinbase block.
type Reward struct {
	Amount uint64 `json:"amount"`
	Coin   string `json:"coin"`
}

// String returns the reward as amount and currency symbol.
func (r Reward) String() string {
	return fmt.Sprintf("%d %s", r.Amount, r.Coin)
}

// NewCoinbaseTransfer constructs the transfer that pays the reward to the
// specified address.
func NewCoinbaseTransfer(address string, reward Reward) Transfer {
	return Transfer{
		From:   CoinbaseSender,
		To:     address,
		Amount: reward.String(),
	}
}

// =============================================================================

// ParseTransfers reads one transfer per line in the form "from->to:amount".
// Lines that don't follow the form are kept as notes in the From field.
func ParseTransfers(raw string) []Transfer {
	var transfers []Transfer

	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		from, rest, ok := strings.Cut(line, "->")
		if ok {
			to, amount, ok := strings.Cut(rest, ":")
			from, to, amount = strings.TrimSpace(from), strings.TrimSpace(to), strings.TrimSpace(amount)
			if ok && from != "" && to != "" && amount != "" && !strings.Contains(from, "-") {
				transfers = append(transfers, Transfer{From: from, To: to, Amount: amount})
				continue
			}
		}

		transfers = append(transfers, Transfer{From: line, To: "-", Amount: "-"})
	}

	return transfers
}

// EncodeTransfers returns the JSON form of the transfers used as a block
// payload.
func EncodeTransfers(transfers []Transfer) (string, error) {
	if transfers == nil {
		transfers = []Transfer{}
	}

	data, err := json.Marshal(transfers)
	if err != nil {
		return "", fmt.Errorf("encoding transfers: %w", err)
	}

	return string(data), nil
}
