package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveMinerPublicKey returns the public key mining rewards are paid to.
func (s *State) RetrieveMinerPublicKey() string {
	return s.minerPub
}

// RetrieveChain returns a consistent view of the chain.
func (s *State) RetrieveChain() database.Snapshot {
	return s.chain.Snapshot()
}

// RetrieveLatestBlock returns the current latest block.
func (s *State) RetrieveLatestBlock() *database.Block {
	return s.chain.Tip()
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []*database.Tx {
	return s.mempool.All()
}

// =============================================================================

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBalance returns the token balance of the public key.
func (s *State) QueryBalance(publicKey string) int64 {
	return s.sheet.Balance(publicKey)
}

// QuerySupply returns how much of the SKU the public key holds.
func (s *State) QuerySupply(holder string, ref database.SkuRef) int64 {
	return s.sheet.Supply(holder, ref)
}

// QueryHoldings returns the supply of every SKU the public key holds.
func (s *State) QueryHoldings(holder string) map[database.SkuRef]int64 {
	return s.sheet.Holdings(holder)
}

// QuerySku returns the SKU created by the transaction at the reference.
func (s *State) QuerySku(ref database.SkuRef) (database.Sku, bool) {
	return s.sheet.Sku(ref)
}

// QuerySkus returns every registered SKU.
func (s *State) QuerySkus() []database.Sku {
	return s.sheet.Skus()
}

// QueryBlockByHash returns the stored block with the specified hash.
func (s *State) QueryBlockByHash(hash string) (*database.Block, error) {
	return s.storage.BlockByHash(hash)
}

// QueryNextBlock returns the stored block that follows the block with the
// specified hash.
func (s *State) QueryNextBlock(prevHash string) (*database.Block, error) {
	return s.storage.BlockByPreviousHash(prevHash)
}

// QueryDifficulty returns the difficulty and target of the block at the
// specified height.
func (s *State) QueryDifficulty(height int) (*big.Rat, *big.Int, error) {
	d, err := s.calc.ForHeight(s.chain.Snapshot(), height)
	if err != nil {
		return nil, nil, err
	}

	return d, s.calc.Target(d), nil
}

// QueryCurrentDifficulty returns the difficulty and target of the next
// block.
func (s *State) QueryCurrentDifficulty() (*big.Rat, *big.Int, error) {
	snap := s.chain.Snapshot()

	d, err := s.calc.Current(snap)
	if err != nil {
		return nil, nil, err
	}

	return d, s.calc.Target(d), nil
}

// QueryPreviousUpdate returns the window the difficulty at the height was
// adjusted from.
func (s *State) QueryPreviousUpdate(height int) (difficulty.Update, error) {
	return s.calc.PreviousUpdateForHeight(s.chain.Snapshot(), height)
}

// QueryMerkleProof returns the proof the transaction is part of the block.
func (s *State) QueryMerkleProof(blockHash string, txHash string) ([]string, []int64, error) {
	_, block, ok := s.chain.Snapshot().Find(blockHash)
	if !ok {
		return nil, nil, fmt.Errorf("block %s not found", blockHash)
	}

	return block.MerkleProof(txHash)
}
