// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/watoukuang/demochain/app/services/node/handlers/v1/public"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/events"
	"github.com/watoukuang/demochain/foundation/nameservice"
	"github.com/watoukuang/demochain/foundation/web"
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

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/list/:height", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/chain/verify", pbl.Verify)
	app.Handle(http.MethodPost, version, "/chain/reset", pbl.ResetChain)
	app.Handle(http.MethodPost, version, "/round/start", pbl.StartRound)
	app.Handle(http.MethodPost, version, "/round/pause", pbl.Pause)
	app.Handle(http.MethodPost, version, "/round/pause/:miner", pbl.PauseMiner)
	app.Handle(http.MethodPost, version, "/round/resume", pbl.Resume)
	app.Handle(http.MethodPost, version, "/round/resume/:miner", pbl.ResumeMiner)
	app.Handle(http.MethodPost, version, "/round/stop", pbl.Stop)
}
