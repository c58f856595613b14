// Package genesis maintains access to the genesis file and the protocol
// constants every node on a network must share.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"
)

// Protocol constants that form the compatibility surface of the network.
const (
	NetworkID             = "skuchain-main"
	ProtocolVersion       = 1
	TransactionVersion    = 1
	SecondsPerBlockGoal   = 15
	DifficultyUpdateCycle = 10
	MiningReward          = 100

	// MaximumTarget is the easiest acceptable proof of work. Every block hash
	// must be numerically less than or equal to MaximumTarget / difficulty.
	MaximumTarget = "0000FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"
)

// fees is the fixed per-action fee schedule, keyed by action name.
var fees = map[string]int64{
	"TransferToken":  1,
	"TransferSupply": 1,
	"DestroySupply":  1,
	"CreateSupply":   1,
	"CreateSku":      5,
	"ChangeSku":      5,
	"ClaimCoinbase":  0,
}

// date is the timestamp recorded in the genesis block header.
var date = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// =============================================================================

// Genesis represents the genesis file.
type Genesis struct {
	Date                  time.Time        `json:"date"`
	NetworkID             string           `json:"network_id"`              // Magic number placed in every block header.
	ProtocolVersion       uint32           `json:"protocol_version"`        // Block header version.
	TransactionVersion    uint32           `json:"transaction_version"`     // Version every transaction must carry.
	SecondsPerBlockGoal   int64            `json:"seconds_per_block_goal"`  // Desired time between blocks.
	DifficultyUpdateCycle int64            `json:"difficulty_update_cycle"` // Number of blocks per difficulty window.
	MaximumTarget         string           `json:"maximum_target"`          // Hex encoded 256 bit target at difficulty 1.
	MiningReward          int64            `json:"mining_reward"`           // Tokens minted by the coinbase of each block.
	Fees                  map[string]int64 `json:"fees"`                    // Fee per transaction action.
	Balances              map[string]int64 `json:"balances"`                // Token balances by public key before block 1.
}

// Default returns the genesis information for the main network.
func Default() Genesis {
	f := make(map[string]int64, len(fees))
	for action, fee := range fees {
		f[action] = fee
	}

	return Genesis{
		Date:                  date,
		NetworkID:             NetworkID,
		ProtocolVersion:       ProtocolVersion,
		TransactionVersion:    TransactionVersion,
		SecondsPerBlockGoal:   SecondsPerBlockGoal,
		DifficultyUpdateCycle: DifficultyUpdateCycle,
		MaximumTarget:         MaximumTarget,
		MiningReward:          MiningReward,
		Fees:                  f,
		Balances:              make(map[string]int64),
	}
}

// Load opens and consumes the genesis file. Values missing from the file
// keep their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the protocol values can run a node. The block header
// version must be one this code knows how to mine and verify.
func (g Genesis) Validate() error {
	switch {
	case g.ProtocolVersion != ProtocolVersion:
		return fmt.Errorf("unsupported protocol version %d, exp %d", g.ProtocolVersion, ProtocolVersion)
	case g.SecondsPerBlockGoal <= 0:
		return fmt.Errorf("invalid seconds per block goal %d", g.SecondsPerBlockGoal)
	case g.DifficultyUpdateCycle <= 0:
		return fmt.Errorf("invalid difficulty update cycle %d", g.DifficultyUpdateCycle)
	}

	if _, err := g.Target(); err != nil {
		return err
	}

	return nil
}

// Target returns the maximum target as an integer.
func (g Genesis) Target() (*big.Int, error) {
	target, ok := new(big.Int).SetString(g.MaximumTarget, 16)
	if !ok || target.Sign() <= 0 {
		return nil, fmt.Errorf("invalid maximum target %q", g.MaximumTarget)
	}

	return target, nil
}

// Fee returns the fee required for the named action.
func (g Genesis) Fee(action string) (int64, bool) {
	fee, exists := g.Fees[action]
	return fee, exists
}
