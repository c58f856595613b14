// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee  = "fee"
	StrategyHash = "hash"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:  feeSelect,
	StrategyHash: hashSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// signer and selects howMany of them in an order based on the functions
// strategy. The map may be modified by the function.
type Func func(transactions map[string][]*database.Tx, howMany int) []*database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byFee provides sorting support by the transaction fee value, falling
// back to the hash so the order is stable.
type byFee []*database.Tx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that pay the most.
func (bf byFee) Less(i, j int) bool {
	if bf[i].Fee() != bf[j].Fee() {
		return bf[i].Fee() > bf[j].Fee()
	}
	return bf[i].Hash() < bf[j].Hash()
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
