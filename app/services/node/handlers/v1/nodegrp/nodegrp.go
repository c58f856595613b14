// Package nodegrp maintains the group of handlers for node access.
package nodegrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ardanlabs/skuchain/business/web/errs"
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/state"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"
	"github.com/ardanlabs/skuchain/foundation/events"
	"github.com/ardanlabs/skuchain/foundation/nameservice"
	"github.com/ardanlabs/skuchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Acquire()
	defer h.Evts.Release(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction offers a signed transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tran database.Tx
	if err := web.Decode(r, &tran); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tran.Hash(), "action", tran.Action(), "signer", tran.Signer())

	verdict := h.State.SubmitTransaction(&tran)
	if !verdict.Accepted {
		return errs.NewTrusted(verdict.Err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   tran.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	verdict := h.State.ProcessProposedBlock(&block)
	if !verdict.Accepted {
		return errs.NewTrusted(verdict.Err, http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
		Hash   string `json:"hash"`
	}{
		Status: "accepted",
		Hash:   block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.RetrieveMempool()

	trans := make([]tx, len(pool))
	for i, tran := range pool {
		trans[i] = toTx(h.NS, tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()

	d, target, err := h.State.QueryCurrentDifficulty()
	if err != nil {
		return err
	}

	miner := h.State.RetrieveMinerPublicKey()

	st := status{
		NetworkID:       chain.NetID(),
		Height:          chain.Height(),
		LatestBlockHash: chain.Tip().Hash(),
		Uncommitted:     h.State.QueryMempoolLength(),
		Miner:           miner,
		MinerName:       h.NS.Lookup(miner),
		Difficulty:      d.RatString(),
		Target:          fmt.Sprintf("%064X", target),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Difficulty returns the difficulty and target for the block at the height.
func (h Handlers) Difficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.Atoi(web.Param(r, "height"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	d, target, err := h.State.QueryDifficulty(height)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := difficulty{
		Height:     height,
		Difficulty: d.RatString(),
		Target:     fmt.Sprintf("%064X", target),
	}

	if upd, err := h.State.QueryPreviousUpdate(height); err == nil {
		resp.BeginHeight = upd.BeginHeight
		resp.EndHeight = upd.EndHeight
		resp.Elapsed = upd.ElapsedSeconds()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Account returns the token balance and SKU holdings of a public key.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	publicKey := web.Param(r, "key")

	holdings := h.State.QueryHoldings(publicKey)

	act := account{
		PublicKey: publicKey,
		Name:      h.NS.Lookup(publicKey),
		Balance:   h.State.QueryBalance(publicKey),
		Holdings:  make([]holding, 0, len(holdings)),
	}
	for ref, amount := range holdings {
		act.Holdings = append(act.Holdings, holding{Sku: ref.String(), Amount: amount})
	}
	sort.Slice(act.Holdings, func(i, j int) bool {
		return act.Holdings[i].Sku < act.Holdings[j].Sku
	})

	return web.Respond(ctx, w, act, http.StatusOK)
}

// Skus returns every registered SKU.
func (h Handlers) Skus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QuerySkus(), http.StatusOK)
}

// BlockByHash returns a stored block.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryBlockByHash(web.Param(r, "hash"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// NextBlock returns the stored block that follows the block with the hash.
func (h Handlers) NextBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.QueryNextBlock(web.Param(r, "hash"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Proof returns the merkle proof a transaction is part of a block.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blockHash := web.Param(r, "block")
	txHash := web.Param(r, "tx")

	hashes, order, err := h.State.QueryMerkleProof(blockHash, txHash)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	resp := proof{
		BlockHash: blockHash,
		TxHash:    txHash,
		Hashes:    hashes,
		Order:     order,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
