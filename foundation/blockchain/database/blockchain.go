// Package database defines the blocks and transactions of the chain, the
// canonical byte layouts they are hashed and signed over, and the chain
// container that orders them.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// Chain is a read only view of an ordered sequence of blocks. The block at
// height i, for i > 0, links to the hash of the block at height i-1.
type Chain interface {
	NetID() string
	Len() int
	At(height int) (*Block, bool)
}

// =============================================================================

// Snapshot is a consistent view of a blockchain at a point in time. Blocks
// appended to the chain later are not visible through it.
type Snapshot struct {
	netID  string
	blocks []*Block
}

// NetID returns the network the chain belongs to.
func (s Snapshot) NetID() string {
	return s.netID
}

// Len returns the number of blocks, including genesis.
func (s Snapshot) Len() int {
	return len(s.blocks)
}

// Height returns the height of the tip.
func (s Snapshot) Height() int {
	return len(s.blocks) - 1
}

// At returns the block at the specified height.
func (s Snapshot) At(height int) (*Block, bool) {
	if height < 0 || height >= len(s.blocks) {
		return nil, false
	}
	return s.blocks[height], true
}

// Tip returns the most recent block.
func (s Snapshot) Tip() *Block {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Blocks returns the blocks in height order.
func (s Snapshot) Blocks() []*Block {
	blocks := make([]*Block, len(s.blocks))
	copy(blocks, s.blocks)
	return blocks
}

// Find locates a block by hash.
func (s Snapshot) Find(hash string) (int, *Block, bool) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i].Hash() == hash {
			return i, s.blocks[i], true
		}
	}
	return 0, nil, false
}

// =============================================================================

// Blockchain is the ordered chain of blocks for a network. Blocks are only
// ever appended, and only while holding the write lock through Update.
type Blockchain struct {
	mu     sync.RWMutex
	netID  string
	blocks []*Block
}

// NewBlockchain constructs a chain holding only the genesis block.
func NewBlockchain(netID string, genesis *Block) (*Blockchain, error) {
	if genesis == nil {
		return nil, ErrNilBlock
	}

	if genesis.Header().PrevBlockHash != "" {
		return nil, errors.New("genesis block can't link to a previous block")
	}

	bc := Blockchain{
		netID:  netID,
		blocks: []*Block{genesis},
	}

	return &bc, nil
}

// LoadBlockchain constructs a chain from blocks read from storage. Only the
// linkage between blocks is checked here.
func LoadBlockchain(netID string, blocks []*Block) (*Blockchain, error) {
	if len(blocks) == 0 {
		return nil, errors.New("chain requires a genesis block")
	}

	bc, err := NewBlockchain(netID, blocks[0])
	if err != nil {
		return nil, err
	}

	for i, block := range blocks[1:] {
		if err := linkTo(bc.blocks[i], block); err != nil {
			return nil, fmt.Errorf("height %d: %w", i+1, err)
		}
		bc.blocks = append(bc.blocks, block)
	}

	return bc, nil
}

// NetID returns the network the chain belongs to.
func (bc *Blockchain) NetID() string {
	return bc.netID
}

// Snapshot returns a consistent view of the chain as it is now.
func (bc *Blockchain) Snapshot() Snapshot {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.snapshot()
}

// Len returns the number of blocks, including genesis.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return len(bc.blocks)
}

// At returns the block at the specified height. Reads spanning several
// blocks should use a Snapshot instead.
func (bc *Blockchain) At(height int) (*Block, bool) {
	return bc.Snapshot().At(height)
}

// Tip returns the most recent block.
func (bc *Blockchain) Tip() *Block {
	return bc.Snapshot().Tip()
}

// Update runs the function while holding the exclusive chain lock. Reading
// the chain, validating against it, and appending to it inside a single
// Update is atomic with respect to every other reader and writer.
func (bc *Blockchain) Update(fn func(w *Writer) error) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	w := Writer{bc: bc}
	return fn(&w)
}

// snapshot caps the capacity so later appends never write into memory
// the snapshot can see.
func (bc *Blockchain) snapshot() Snapshot {
	n := len(bc.blocks)
	return Snapshot{netID: bc.netID, blocks: bc.blocks[:n:n]}
}

// =============================================================================

// Writer provides chain access to the function given to Update.
type Writer struct {
	bc *Blockchain
}

// Snapshot returns the chain including anything appended so far by this
// writer.
func (w *Writer) Snapshot() Snapshot {
	return w.bc.snapshot()
}

// Append adds a finalized block linking to the current tip.
func (w *Writer) Append(block *Block) error {
	if err := linkTo(w.bc.blocks[len(w.bc.blocks)-1], block); err != nil {
		return err
	}

	w.bc.blocks = append(w.bc.blocks, block)
	return nil
}

// linkTo checks the block can follow the previous block.
func linkTo(prev *Block, block *Block) error {
	if block == nil {
		return ErrNilBlock
	}

	if !block.IsFinalized() {
		return RejectBlock(block, ErrNotFinalized)
	}

	if got := block.Header().PrevBlockHash; got != prev.Hash() {
		return RejectBlock(block, fmt.Errorf("previous hash mismatch, got %s, exp %s", got, prev.Hash()))
	}

	return nil
}
