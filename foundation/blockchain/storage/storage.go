// Package storage defines the contract for persisting chains of blocks and
// the support shared by its implementations.
package storage

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
)

// ErrNotFound is returned when a chain or block is not stored.
var ErrNotFound = errors.New("not found")

// Repository represents the behavior required to be implemented by any
// package providing support for storing and reading chains. Lookups are
// authoritative and are not cached by callers.
type Repository interface {
	ChainByNetID(netID string) (*database.Blockchain, error)
	BlockByHash(hash string) (*database.Block, error)
	BlockByPreviousHash(prevHash string) (*database.Block, error)
	Update(chain database.Chain) error
	Close() error
}

// Pending returns the blocks of the chain at or past the stored height. A
// stored block that differs from the chain at the same height is an error,
// the chain has forked from what was stored.
func Pending(chain database.Chain, stored int, hashAt func(height int) (string, error)) ([]*database.Block, error) {
	if stored > chain.Len() {
		return nil, fmt.Errorf("stored chain has %d blocks, chain has %d", stored, chain.Len())
	}

	if stored > 0 {
		hash, err := hashAt(stored - 1)
		if err != nil {
			return nil, err
		}

		block, _ := chain.At(stored - 1)
		if block.Hash() != hash {
			return nil, fmt.Errorf("stored block %d is %s, chain has %s", stored-1, hash, block.Hash())
		}
	}

	blocks := make([]*database.Block, 0, chain.Len()-stored)
	for height := stored; height < chain.Len(); height++ {
		block, ok := chain.At(height)
		if !ok {
			return nil, fmt.Errorf("missing block %d", height)
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}
