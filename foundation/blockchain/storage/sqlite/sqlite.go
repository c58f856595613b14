// Package sqlite implements the ability to read and write chains to a
// sqlite database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"

	// Registers the sqlite3 driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

// schema creates the blocks table. Blocks are stored as JSON with the
// columns needed for lookups alongside.
const schema = `
create table if not exists blocks (
	net_id    text not null,
	height    integer not null,
	hash      text not null,
	prev_hash text not null,
	data      blob not null,
	primary key (net_id, height)
);
create index if not exists idx_blocks_hash on blocks (hash);
create index if not exists idx_blocks_prev_hash on blocks (prev_hash);
`

// SQLite represents the repository implementation for reading and storing
// blocks in a sqlite database. This implements the storage.Repository
// interface.
type SQLite struct {
	db *sql.DB
}

// New opens the database at the path and makes sure the schema exists.
// Use ":memory:" for a database that lives only as long as the process.
func New(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps an in memory database shared and writes
	// serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ChainByNetID reads every block of the network in height order.
func (s *SQLite) ChainByNetID(netID string) (*database.Blockchain, error) {
	rows, err := s.db.Query("select data from blocks where net_id = ? order by height", netID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*database.Block
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		block, err := decode(data)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, storage.ErrNotFound
	}

	return database.LoadBlockchain(netID, blocks)
}

// BlockByHash returns the block with the specified hash.
func (s *SQLite) BlockByHash(hash string) (*database.Block, error) {
	return s.queryBlock("select data from blocks where hash = ? limit 1", hash)
}

// BlockByPreviousHash returns the block that follows the block with the
// specified hash.
func (s *SQLite) BlockByPreviousHash(prevHash string) (*database.Block, error) {
	if prevHash == "" {
		return nil, storage.ErrNotFound
	}
	return s.queryBlock("select data from blocks where prev_hash = ? limit 1", prevHash)
}

// Update stores the blocks of the chain that are not stored yet in a
// single database transaction.
func (s *SQLite) Update(chain database.Chain) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	netID := chain.NetID()

	var stored int
	if err := tx.QueryRow("select count(*) from blocks where net_id = ?", netID).Scan(&stored); err != nil {
		return err
	}

	hashAt := func(height int) (string, error) {
		var hash string
		err := tx.QueryRow("select hash from blocks where net_id = ? and height = ?", netID, height).Scan(&hash)
		return hash, err
	}

	blocks, err := storage.Pending(chain, stored, hashAt)
	if err != nil {
		return err
	}

	for i, block := range blocks {
		data, err := json.Marshal(block)
		if err != nil {
			return err
		}

		const q = "insert into blocks (net_id, height, hash, prev_hash, data) values (?, ?, ?, ?, ?)"
		if _, err := tx.Exec(q, netID, stored+i, block.Hash(), block.Header().PrevBlockHash, data); err != nil {
			return fmt.Errorf("inserting block %d: %w", stored+i, err)
		}
	}

	return tx.Commit()
}

// =============================================================================

func (s *SQLite) queryBlock(query string, arg string) (*database.Block, error) {
	var data []byte
	if err := s.db.QueryRow(query, arg).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return decode(data)
}

func decode(data []byte) (*database.Block, error) {
	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	return &block, nil
}
