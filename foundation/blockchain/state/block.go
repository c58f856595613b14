package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/skuchain/foundation/blockchain/balance"
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ardanlabs/skuchain/foundation/timestamp"
)

// maxFutureDrift is how far ahead of this node's clock a block timestamp
// may be.
const maxFutureDrift = 2 * time.Hour

// ProcessProposedBlock takes a block received from a peer, validates it
// against the current tip and target, and if that passes, appends it to
// the chain.
func (s *State) ProcessProposedBlock(block *database.Block) Verdict {
	s.evHandler("state: ProcessProposedBlock: started : block[%s]", block)
	defer s.evHandler("state: ProcessProposedBlock: completed")

	err := s.chain.Update(func(w *database.Writer) error {
		return s.appendBlock(w, block)
	})
	if err != nil {
		s.evHandler("state: ProcessProposedBlock: REJECTED: %s", err)
		return rejected(err)
	}

	// A mining operation in progress is working on a stale tip.
	if s.Worker != nil {
		s.Worker.SignalCancelMining()
		if s.mempool.Count() > 0 {
			s.Worker.SignalStartMining()
		}
	}

	return accepted()
}

// appendBlock validates the block against the chain seen by the writer and
// appends it. The writer holds the chain lock, so reading the difficulty
// window, validating, and appending happen as one step.
func (s *State) appendBlock(w *database.Writer, block *database.Block) error {
	snap := w.Snapshot()

	sheet, err := s.validateBlock(snap, block)
	if err != nil {
		return err
	}

	if err := w.Append(block); err != nil {
		return err
	}
	s.sheet.Replace(sheet)

	s.evHandler("viewer: block added: height[%d] block[%s] txs[%d]", snap.Len(), block.Hash(), block.TxCount())

	for _, tx := range block.Transactions() {
		if s.mempool.Remove(tx) {
			s.evHandler("state: appendBlock: tx[%s] removed from mempool", tx)
		}
	}

	// A failed write is caught up by the next successful one.
	if err := s.storage.Update(w.Snapshot()); err != nil {
		s.evHandler("state: appendBlock: WARNING: storing chain: %s", err)
	}

	return nil
}

// validateBlock checks the block can become the next block of the chain
// and returns the balance sheet after applying it.
func (s *State) validateBlock(snap database.Snapshot, block *database.Block) (*balance.Sheet, error) {
	if block == nil {
		return nil, database.ErrNilBlock
	}

	if !block.IsFinalized() {
		return nil, database.RejectBlock(block, database.ErrNotFinalized)
	}

	hash, err := block.CalculateHash()
	if err != nil {
		return nil, database.RejectBlock(block, err)
	}

	if hash != block.Hash() {
		return nil, database.RejectBlock(block, fmt.Errorf("hash mismatch, got %s, exp %s", block.Hash(), hash))
	}

	header := block.Header()

	if header.MagicNumber != snap.NetID() {
		return nil, database.RejectBlock(block, fmt.Errorf("wrong network, got %q, exp %q", header.MagicNumber, snap.NetID()))
	}

	if header.Version != s.genesis.ProtocolVersion {
		return nil, database.RejectBlock(block, fmt.Errorf("wrong protocol version, got %d, exp %d", header.Version, s.genesis.ProtocolVersion))
	}

	// A missing difficulty window is not the block's fault.
	target, err := s.calc.TargetForHeight(snap, snap.Len())
	if err != nil {
		return nil, err
	}

	if !difficulty.HashMeetsTarget(hash, target) {
		return nil, database.RejectBlock(block, fmt.Errorf("hash %s does not meet target %064X", hash, target))
	}

	coinbase, ok := block.Coinbase()
	if !ok {
		return nil, database.RejectBlock(block, errors.New("first transaction must be a coinbase"))
	}

	if !signature.SignatureIsValid(header.Signature, hash, coinbase.Signer()) {
		return nil, database.RejectBlock(block, errors.New("block is not signed by the miner"))
	}

	tip := snap.Tip()

	if header.PrevBlockHash != tip.Hash() {
		return nil, database.RejectBlock(block, fmt.Errorf("previous hash mismatch, got %s, exp %s", header.PrevBlockHash, tip.Hash()))
	}

	if header.TimeStamp < tip.Header().TimeStamp {
		return nil, database.RejectBlock(block, fmt.Errorf("timestamp %d is before the tip %d", header.TimeStamp, tip.Header().TimeStamp))
	}

	if limit := timestamp.FromTime(time.Now().Add(maxFutureDrift)); header.TimeStamp > limit {
		return nil, database.RejectBlock(block, fmt.Errorf("timestamp %d is too far in the future", header.TimeStamp))
	}

	if block.TxCount() > s.maxTxPerBlock {
		return nil, database.RejectBlock(block, fmt.Errorf("too many transactions, got %d, max %d", block.TxCount(), s.maxTxPerBlock))
	}

	root, err := database.MerkleRoot(block.Transactions())
	if err != nil {
		return nil, database.RejectBlock(block, err)
	}

	if root != header.MerkleRoot {
		return nil, database.RejectBlock(block, fmt.Errorf("merkle root mismatch, got %s, exp %s", header.MerkleRoot, root))
	}

	// Each transaction is checked against the balances left by the ones
	// before it in the same block.
	sheet := s.sheet.Clone()
	miner := coinbase.Signer()
	for i, tx := range block.Transactions() {
		if err := s.checkTx(sheet, block.Hash(), i, miner, tx); err != nil {
			return nil, database.RejectBlock(block, fmt.Errorf("tx %d: %w", i, err))
		}
	}

	return sheet, nil
}
