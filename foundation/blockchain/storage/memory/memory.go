// Package memory implements the ability to read and write chains to memory
// using a slice per network.
package memory

import (
	"sync"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"
)

// Memory represents the repository implementation for reading and storing
// chains in memory. This implements the storage.Repository interface.
type Memory struct {
	mu     sync.RWMutex
	chains map[string][]*database.Block
	byHash map[string]*database.Block
	byPrev map[string]*database.Block
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		chains: make(map[string][]*database.Block),
		byHash: make(map[string]*database.Block),
		byPrev: make(map[string]*database.Block),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// ChainByNetID returns the stored chain for the network.
func (m *Memory) ChainByNetID(netID string) (*database.Blockchain, error) {
	m.mu.RLock()
	blocks := m.chains[netID]
	m.mu.RUnlock()

	if len(blocks) == 0 {
		return nil, storage.ErrNotFound
	}

	return database.LoadBlockchain(netID, blocks)
}

// BlockByHash returns the block with the specified hash.
func (m *Memory) BlockByHash(hash string) (*database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, exists := m.byHash[hash]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return block, nil
}

// BlockByPreviousHash returns the block that follows the block with the
// specified hash.
func (m *Memory) BlockByPreviousHash(prevHash string) (*database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, exists := m.byPrev[prevHash]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return block, nil
}

// Update stores the blocks of the chain that are not stored yet.
func (m *Memory) Update(chain database.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.chains[chain.NetID()]

	hashAt := func(height int) (string, error) {
		return stored[height].Hash(), nil
	}

	blocks, err := storage.Pending(chain, len(stored), hashAt)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		stored = append(stored, block)
		m.byHash[block.Hash()] = block
		if prev := block.Header().PrevBlockHash; prev != "" {
			m.byPrev[prev] = block
		}
	}
	m.chains[chain.NetID()] = stored

	return nil
}
