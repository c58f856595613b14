// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/balance"
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/skuchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/skuchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
}

// =============================================================================

// Verdict is the outcome of offering a block or transaction to the node.
// A rejection is part of normal processing, the networking layer decides
// what to do with the peer that sent it.
type Verdict struct {
	Accepted bool
	Reason   string
	Err      error
}

func accepted() Verdict {
	return Verdict{Accepted: true}
}

func rejected(err error) Verdict {
	return Verdict{Reason: err.Error(), Err: err}
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerPrivateKey string
	Genesis         genesis.Genesis
	Storage         storage.Repository
	SelectStrategy  string
	MaxTxPerBlock   int
	EvHandler       EventHandler
}

// State manages the blockchain.
type State struct {
	minerKey      string
	minerPub      string
	maxTxPerBlock int
	evHandler     EventHandler

	genesis genesis.Genesis
	calc    *difficulty.Calculator
	chain   *database.Blockchain
	sheet   *balance.Sheet
	mempool *mempool.Mempool
	storage storage.Repository

	Worker Worker
}

// New constructs a new blockchain for data management. The stored chain
// for the network is loaded and every block is validated again. A new
// chain holding only the genesis block is stored when none exists.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage repository is required")
	}

	if cfg.MaxTxPerBlock < 2 {
		return nil, fmt.Errorf("max transactions per block must leave room for the coinbase, got %d", cfg.MaxTxPerBlock)
	}

	minerPub, err := signature.PublicKeyFromPrivate(cfg.MinerPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("miner key: %w", err)
	}

	calc, err := difficulty.New(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	genBlock := database.NewGenesisBlock(cfg.Genesis)
	chain, err := database.NewBlockchain(cfg.Genesis.NetworkID, genBlock)
	if err != nil {
		return nil, err
	}

	state := State{
		minerKey:      cfg.MinerPrivateKey,
		minerPub:      minerPub,
		maxTxPerBlock: cfg.MaxTxPerBlock,
		evHandler:     ev,

		genesis: cfg.Genesis,
		calc:    calc,
		chain:   chain,
		sheet:   balance.NewSheet(cfg.Genesis.Balances),
		storage: cfg.Storage,
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFee
	}

	// Construct a mempool with the specified select strategy.
	state.mempool, err = mempool.NewWithStrategy(state.validateTx, strategy)
	if err != nil {
		return nil, err
	}

	if err := state.load(genBlock); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// load replays the stored chain through block validation.
func (s *State) load(genBlock *database.Block) error {
	stored, err := s.storage.ChainByNetID(s.genesis.NetworkID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.evHandler("state: load: storing new chain: genesis[%s]", genBlock.Hash())
		return s.storage.Update(s.chain.Snapshot())

	case err != nil:
		return fmt.Errorf("loading chain: %w", err)
	}

	snap := stored.Snapshot()
	if first, _ := snap.At(0); first.Hash() != genBlock.Hash() {
		return fmt.Errorf("stored genesis %s does not match %s", first.Hash(), genBlock.Hash())
	}

	s.evHandler("state: load: validating stored chain: blocks[%d]", snap.Len())

	for height := 1; height < snap.Len(); height++ {
		block, _ := snap.At(height)

		err := s.chain.Update(func(w *database.Writer) error {
			return s.appendBlock(w, block)
		})
		if err != nil {
			return fmt.Errorf("stored block %d: %w", height, err)
		}
	}

	return nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure everything is persisted before closing.
	if err := s.storage.Update(s.chain.Snapshot()); err != nil {
		s.evHandler("state: shutdown: WARNING: %s", err)
	}

	return s.storage.Close()
}

// Truncate clears the mempool.
func (s *State) Truncate() {
	s.mempool.Truncate()
}
