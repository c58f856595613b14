// Package difficulty calculates the mining difficulty and proof of work
// target for any height of a chain.
package difficulty

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
)

// CalculationError is returned when the chain history or the parameters are
// not enough to calculate a difficulty.
type CalculationError struct {
	Height int
	Err    error
}

// Error implements the error interface.
func (ce *CalculationError) Error() string {
	return fmt.Sprintf("difficulty for height %d: %s", ce.Height, ce.Err)
}

// Unwrap provides support for errors.Is and errors.As.
func (ce *CalculationError) Unwrap() error {
	return ce.Err
}

// IsCalculationError checks if an error of type CalculationError exists.
func IsCalculationError(err error) bool {
	var ce *CalculationError
	return errors.As(err, &ce)
}

// =============================================================================

// Update is a read only view over the window of blocks the difficulty was
// last adjusted from.
type Update struct {
	BeginHeight int
	EndHeight   int
	Begin       *database.Block
	End         *database.Block
}

// ElapsedSeconds returns the time between the timestamps of the first and
// last block of the window. Timestamps mark when mining of a block started,
// so the time spent mining the last block is not included.
func (u Update) ElapsedSeconds() int64 {
	return u.End.Header().TimeStamp - u.Begin.Header().TimeStamp
}

// PreviousUpdateInfo returns the last complete window before the window
// holding the specified height.
func PreviousUpdateInfo(chain database.Chain, height int, cycle int64) (Update, error) {
	if cycle <= 0 {
		return Update{}, &CalculationError{Height: height, Err: fmt.Errorf("invalid update cycle %d", cycle)}
	}

	window := int64(height) / cycle
	if height < 0 || window == 0 {
		return Update{}, &CalculationError{Height: height, Err: errors.New("no difficulty update before this height")}
	}

	return update(chain, height, window, cycle)
}

// CalculateDifficulty returns the difficulty of the block at the specified
// height. Difficulty starts at 1 and is adjusted once per window of cycle
// blocks by how far the previous window was from the goal time. It never
// drops below 1.
func CalculateDifficulty(chain database.Chain, height int, version uint32, goal int64, cycle int64) (*big.Rat, error) {
	switch {
	case version != genesis.ProtocolVersion:
		return nil, &CalculationError{Height: height, Err: fmt.Errorf("unknown protocol version %d", version)}
	case height < 0:
		return nil, &CalculationError{Height: height, Err: errors.New("negative height")}
	case goal <= 0:
		return nil, &CalculationError{Height: height, Err: fmt.Errorf("invalid seconds per block goal %d", goal)}
	case cycle <= 0:
		return nil, &CalculationError{Height: height, Err: fmt.Errorf("invalid update cycle %d", cycle)}
	}

	one := big.NewRat(1, 1)
	expected := big.NewRat(goal*cycle, 1)

	difficulty := new(big.Rat).Set(one)
	for window := int64(1); window <= int64(height)/cycle; window++ {
		u, err := update(chain, height, window, cycle)
		if err != nil {
			return nil, err
		}

		adjustment := one
		if elapsed := u.ElapsedSeconds(); elapsed > 0 {
			adjustment = new(big.Rat).Quo(expected, big.NewRat(elapsed, 1))
		}

		difficulty.Mul(difficulty, adjustment)
		if difficulty.Cmp(one) < 0 {
			difficulty.Set(one)
		}
	}

	return difficulty, nil
}

// update returns the window that ends right before the specified window
// starts.
func update(chain database.Chain, height int, window int64, cycle int64) (Update, error) {
	begin := int((window - 1) * cycle)
	end := int(window*cycle - 1)

	first, ok := chain.At(begin)
	if !ok {
		return Update{}, &CalculationError{Height: height, Err: fmt.Errorf("missing block %d", begin)}
	}

	last, ok := chain.At(end)
	if !ok {
		return Update{}, &CalculationError{Height: height, Err: fmt.Errorf("missing block %d", end)}
	}

	u := Update{
		BeginHeight: begin,
		EndHeight:   end,
		Begin:       first,
		End:         last,
	}

	return u, nil
}

// =============================================================================

// Target returns the largest hash value acceptable at the difficulty,
// maxTarget / difficulty rounded down.
func Target(maxTarget *big.Int, difficulty *big.Rat) *big.Int {
	n := new(big.Int).Mul(maxTarget, difficulty.Denom())
	return n.Quo(n, difficulty.Num())
}

// HashMeetsTarget reports whether the hex hash, read as an unsigned
// integer, is less than or equal to the target.
func HashMeetsTarget(hash string, target *big.Int) bool {
	h, ok := new(big.Int).SetString(hash, 16)
	if !ok || h.Sign() < 0 {
		return false
	}

	return h.Cmp(target) <= 0
}
