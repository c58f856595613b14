package difficulty

import (
	"math/big"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
)

// Calculator calculates difficulty with the protocol values of a network.
type Calculator struct {
	version   uint32
	goal      int64
	cycle     int64
	maxTarget *big.Int
}

// New constructs a calculator from the genesis information. A genesis with
// an unsupported protocol version is rejected here rather than on every
// calculation.
func New(gen genesis.Genesis) (*Calculator, error) {
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	maxTarget, err := gen.Target()
	if err != nil {
		return nil, err
	}

	c := Calculator{
		version:   gen.ProtocolVersion,
		goal:      gen.SecondsPerBlockGoal,
		cycle:     gen.DifficultyUpdateCycle,
		maxTarget: maxTarget,
	}

	return &c, nil
}

// Current returns the difficulty of the next block to be added.
func (c *Calculator) Current(chain database.Chain) (*big.Rat, error) {
	return c.ForHeight(chain, chain.Len())
}

// ForHeight returns the difficulty of the block at the specified height.
func (c *Calculator) ForHeight(chain database.Chain, height int) (*big.Rat, error) {
	return CalculateDifficulty(chain, height, c.version, c.goal, c.cycle)
}

// PreviousUpdate returns the window the next block's difficulty was
// adjusted from.
func (c *Calculator) PreviousUpdate(chain database.Chain) (Update, error) {
	return PreviousUpdateInfo(chain, chain.Len(), c.cycle)
}

// PreviousUpdateForHeight returns the window the difficulty at the height
// was adjusted from.
func (c *Calculator) PreviousUpdateForHeight(chain database.Chain, height int) (Update, error) {
	return PreviousUpdateInfo(chain, height, c.cycle)
}

// Target returns the proof of work target for a difficulty.
func (c *Calculator) Target(difficulty *big.Rat) *big.Int {
	return Target(c.maxTarget, difficulty)
}

// TargetForHeight returns the proof of work target of the block at the
// specified height.
func (c *Calculator) TargetForHeight(chain database.Chain, height int) (*big.Int, error) {
	difficulty, err := c.ForHeight(chain, height)
	if err != nil {
		return nil, err
	}

	return c.Target(difficulty), nil
}

// CurrentTarget returns the proof of work target of the next block.
func (c *Calculator) CurrentTarget(chain database.Chain) (*big.Int, error) {
	return c.TargetForHeight(chain, chain.Len())
}
