// Package disk implements the ability to read and write chains to disk,
// each block in its own file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"
)

// Disk represents the repository implementation for reading and storing
// blocks in their own separate files on disk, one folder per network. This
// implements the storage.Repository interface.
type Disk struct {
	dbPath string
	mu     sync.RWMutex
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// ChainByNetID reads every block of the network in height order.
func (d *Disk) ChainByNetID(netID string) (*database.Blockchain, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	blocks, err := d.readChain(netID)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, storage.ErrNotFound
	}

	return database.LoadBlockchain(netID, blocks)
}

// BlockByHash scans the stored chains for the block with the hash.
func (d *Disk) BlockByHash(hash string) (*database.Block, error) {
	return d.find(func(block *database.Block) bool {
		return block.Hash() == hash
	})
}

// BlockByPreviousHash scans the stored chains for the block that follows
// the block with the specified hash.
func (d *Disk) BlockByPreviousHash(prevHash string) (*database.Block, error) {
	return d.find(func(block *database.Block) bool {
		return prevHash != "" && block.Header().PrevBlockHash == prevHash
	})
}

// Update writes the blocks of the chain that are not on disk yet.
func (d *Disk) Update(chain database.Chain) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	netID := chain.NetID()
	if err := os.MkdirAll(d.netPath(netID), 0755); err != nil {
		return err
	}

	stored, err := d.count(netID)
	if err != nil {
		return err
	}

	hashAt := func(height int) (string, error) {
		block, err := d.read(netID, height)
		if err != nil {
			return "", err
		}
		return block.Hash(), nil
	}

	blocks, err := storage.Pending(chain, stored, hashAt)
	if err != nil {
		return err
	}

	for i, block := range blocks {
		if err := d.write(netID, stored+i, block); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================

// write stores the block in a file labeled with the block height.
func (d *Disk) write(netID string, height int, block *database.Block) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}

	// Create a new file for this block and name it based on the height.
	f, err := os.OpenFile(d.blockPath(netID, height), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Write the new block to disk.
	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

// read decodes the block stored for the specified height.
func (d *Disk) read(netID string, height int) (*database.Block, error) {
	f, err := os.Open(d.blockPath(netID, height))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var block database.Block
	if err := json.NewDecoder(f).Decode(&block); err != nil {
		return nil, fmt.Errorf("decoding block %d: %w", height, err)
	}

	return &block, nil
}

// readChain reads blocks from height zero until a file is missing.
func (d *Disk) readChain(netID string) ([]*database.Block, error) {
	var blocks []*database.Block
	for height := 0; ; height++ {
		block, err := d.read(netID, height)
		if errors.Is(err, fs.ErrNotExist) {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
}

// count returns how many blocks are stored for the network.
func (d *Disk) count(netID string) (int, error) {
	for height := 0; ; height++ {
		_, err := os.Stat(d.blockPath(netID, height))
		if errors.Is(err, fs.ErrNotExist) {
			return height, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// find walks every stored chain looking for a matching block.
func (d *Disk) find(match func(block *database.Block) bool) (*database.Block, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		blocks, err := d.readChain(entry.Name())
		if err != nil {
			return nil, err
		}

		for _, block := range blocks {
			if match(block) {
				return block, nil
			}
		}
	}

	return nil, storage.ErrNotFound
}

// netPath forms the path to the folder of the network.
func (d *Disk) netPath(netID string) string {
	return filepath.Join(d.dbPath, netID)
}

// blockPath forms the path to the specified block.
func (d *Disk) blockPath(netID string, height int) string {
	return filepath.Join(d.netPath(netID), fmt.Sprintf("%s.json", strconv.Itoa(height)))
}
