// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/skuchain/app/services/node/handlers/v1/nodegrp"
	"github.com/ardanlabs/skuchain/foundation/blockchain/state"
	"github.com/ardanlabs/skuchain/foundation/events"
	"github.com/ardanlabs/skuchain/foundation/nameservice"
	"github.com/ardanlabs/skuchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	ngh := nodegrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", ngh.Events)
	app.Handle(http.MethodGet, version, "/genesis", ngh.Genesis)
	app.Handle(http.MethodPost, version, "/tx/submit", ngh.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/tx/pool", ngh.Mempool)
	app.Handle(http.MethodPost, version, "/block/propose", ngh.ProposeBlock)
	app.Handle(http.MethodGet, version, "/block/:hash", ngh.BlockByHash)
	app.Handle(http.MethodGet, version, "/block/:hash/next", ngh.NextBlock)
	app.Handle(http.MethodGet, version, "/proof/:block/:tx", ngh.Proof)
	app.Handle(http.MethodGet, version, "/chain/status", ngh.Status)
	app.Handle(http.MethodGet, version, "/chain/difficulty/:height", ngh.Difficulty)
	app.Handle(http.MethodGet, version, "/accounts/:key", ngh.Account)
	app.Handle(http.MethodGet, version, "/skus", ngh.Skus)
}
