// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/watoukuang/demochain/business/web/errs"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/events"
	"github.com/watoukuang/demochain/foundation/nameservice"
	"github.com/watoukuang/demochain/foundation/web"
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
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

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

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Status returns the read model of the chain and the most recent round.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Snapshot(), http.StatusOK)
}

// Blocks returns the chain, or the single block at the specified height.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	param := web.Param(r, "height")
	if param == "" {
		return web.Respond(ctx, w, toBlocks(h.State.Blocks(), h.NS), http.StatusOK)
	}

	height, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height %q", param), http.StatusBadRequest)
	}

	b, err := h.State.BlockAt(height)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, toBlock(b, h.NS), http.StatusOK)
}

// Verify checks every block of the chain.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := verification{
		Valid:    true,
		Verdicts: h.State.VerifyChain(),
	}
	for _, verdict := range resp.Verdicts {
		if !verdict.Valid {
			resp.Valid = false
			break
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ResetChain stops any round and takes the chain back to the genesis block.
func (h Handlers) ResetChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.ResetChain()

	return web.Respond(ctx, w, status{Status: "chain reset"}, http.StatusOK)
}

// =============================================================================

// StartRound starts a mining round with the specified miners and payload.
func (h Handlers) StartRound(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req startRequest
	if err := web.Decode(r, &req); err != nil {
		if web.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	rr := req.toRoundRequest(h.State.Genesis().Difficulty)
	if rr.Coinbase {
		h.resolveRewardAddresses(&rr)
	}

	info, err := h.State.StartRound(rr)
	if err != nil {
		return errs.FromRound(err)
	}

	h.Log.Infow("start round", "traceid", v.TraceID, "round", info.ID, "height", info.Height, "difficulty", info.Difficulty, "miners", strings.Join(info.Miners, ","))

	return web.Respond(ctx, w, info, http.StatusCreated)
}

// resolveRewardAddresses fills in the reward address of miners that have a
// key registered under their identity in the name service.
func (h Handlers) resolveRewardAddresses(rr *state.RoundRequest) {
	if len(rr.Miners) == 0 {
		rr.Miners = h.State.DefaultMiners()
	}

	for i, mc := range rr.Miners {
		if mc.RewardAddress != "" {
			continue
		}
		if address, exists := h.NS.Address(mc.Identity); exists {
			rr.Miners[i].RewardAddress = address
		}
	}
}

// Pause suspends every miner of the round in flight.
func (h Handlers) Pause(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Pause(); err != nil {
		return errs.FromRound(err)
	}

	return h.respondRound(ctx, w, "paused")
}

// Resume releases the pause of the round in flight.
func (h Handlers) Resume(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Resume(); err != nil {
		return errs.FromRound(err)
	}

	return h.respondRound(ctx, w, "resumed")
}

// PauseMiner suspends a single miner of the round in flight.
func (h Handlers) PauseMiner(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	identity := web.Param(r, "miner")

	if err := h.State.PauseMiner(identity); err != nil {
		return errs.FromRound(err)
	}

	return h.respondRound(ctx, w, fmt.Sprintf("miner %s paused", identity))
}

// ResumeMiner releases the pause of a single miner.
func (h Handlers) ResumeMiner(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	identity := web.Param(r, "miner")

	if err := h.State.ResumeMiner(identity); err != nil {
		return errs.FromRound(err)
	}

	return h.respondRound(ctx, w, fmt.Sprintf("miner %s resumed", identity))
}

// Stop cancels the round in flight.
func (h Handlers) Stop(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Stop(); err != nil {
		return errs.FromRound(err)
	}

	return h.respondRound(ctx, w, "stopped")
}

func (h Handlers) respondRound(ctx context.Context, w http.ResponseWriter, msg string) error {
	resp := status{Status: msg}
	if r := h.State.ActiveRound(); r != nil {
		resp.Round = r.ID
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
