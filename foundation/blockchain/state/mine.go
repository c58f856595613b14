package state

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/skuchain/foundation/timestamp"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. Mining works on a snapshot of the
// chain, the result is validated again under the chain lock before it is
// appended.
func (s *State) MineNewBlock(ctx context.Context) (*database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return nil, ErrNoTransactions
	}

	snap := s.chain.Snapshot()
	height := snap.Len()

	target, err := s.calc.TargetForHeight(snap, height)
	if err != nil {
		return nil, err
	}

	coinbase, err := s.newCoinbase(height)
	if err != nil {
		return nil, err
	}

	trans, err := s.pickTransactions(coinbase)
	if err != nil {
		return nil, err
	}

	root, err := database.MerkleRoot(trans)
	if err != nil {
		return nil, err
	}

	ts := timestamp.Now()
	if tipTS := snap.Tip().Header().TimeStamp; ts < tipTS {
		ts = tipTS
	}

	candidate := database.NewCandidate(database.CandidateArgs{
		MagicNumber:   s.genesis.NetworkID,
		Version:       s.genesis.ProtocolVersion,
		MerkleRoot:    root,
		TimeStamp:     ts,
		PrevBlockHash: snap.Tip().Hash(),
		Trans:         trans,
	})

	s.evHandler("viewer: MINING: perform POW: height[%d] txs[%d] target[%064X]", height, len(trans), target)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := s.performPOW(ctx, candidate, target)
	if err != nil {
		return nil, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	err = s.chain.Update(func(w *database.Writer) error {
		return s.appendBlock(w, block)
	})
	if err != nil {
		return nil, err
	}

	return block, nil
}

// newCoinbase builds the transaction paying the mining reward to this node.
// The height goes in the data so every coinbase has its own hash.
func (s *State) newCoinbase(height int) (*database.Tx, error) {
	fee, _ := s.genesis.Fee(database.ClaimCoinbase.String())

	st := database.StateTx{
		Recipient: s.minerPub,
		Amount:    s.genesis.MiningReward,
	}

	tx := database.NewTx(s.genesis.TransactionVersion, database.ClaimCoinbase, strconv.Itoa(height), fee, st)
	if err := database.FinalizeTx(tx, s.minerKey); err != nil {
		return nil, fmt.Errorf("coinbase: %w", err)
	}

	return tx, nil
}

// pickTransactions selects mempool transactions to follow the coinbase,
// skipping any that no longer apply on top of the ones before them. Skipped
// transactions that no longer apply to the tip are removed from the mempool.
func (s *State) pickTransactions(coinbase *database.Tx) ([]*database.Tx, error) {
	picked, err := s.mempool.Pick(s.maxTxPerBlock - 1)
	if err != nil {
		return nil, err
	}

	sheet := s.sheet.Clone()
	if err := s.checkTx(sheet, "", 0, s.minerPub, coinbase); err != nil {
		return nil, err
	}

	trans := []*database.Tx{coinbase}
	for _, tx := range picked {

		// SKU references created in this block don't exist yet, so checking
		// against an empty block hash is the same as checking the final one.
		if err := s.checkTx(sheet, "", len(trans), s.minerPub, tx); err != nil {
			s.evHandler("state: MineNewBlock: MINING: skipping tx[%s]: %s", tx, err)

			// A transaction that fails on the tip alone can never be mined.
			if err := s.checkTx(s.sheet.Clone(), "", 1, s.minerPub, tx); err != nil {
				s.mempool.Remove(tx)
				s.evHandler("state: MineNewBlock: MINING: evicted tx[%s]: %s", tx, err)
			}
			continue
		}
		trans = append(trans, tx)
	}

	if len(trans) == 1 {
		return nil, ErrNoTransactions
	}

	return trans, nil
}

// performPOW increments the nonce until the block hash meets the target.
func (s *State) performPOW(ctx context.Context, candidate *database.Candidate, target *big.Int) (*database.Block, error) {
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			s.evHandler("viewer: MINING: running: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			s.evHandler("state: MineNewBlock: MINING: CANCELLED")
			return nil, ctx.Err()
		}

		hash, err := candidate.CalculateHash()
		if err != nil {
			return nil, err
		}

		if difficulty.HashMeetsTarget(hash, target) {
			s.evHandler("viewer: MINING: SOLVED: block[%s] attempts[%d]", hash, attempts)
			return database.FinalizeBlockWithHash(candidate, hash, s.minerKey)
		}

		if err := candidate.IncrementNonce(); err != nil {
			return nil, err
		}
	}
}
