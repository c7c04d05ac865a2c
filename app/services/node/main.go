package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/watoukuang/demochain/app/services/node/handlers"
	"github.com/watoukuang/demochain/foundation/blockchain/genesis"
	"github.com/watoukuang/demochain/foundation/blockchain/metrics"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/blockchain/worker"
	"github.com/watoukuang/demochain/foundation/events"
	"github.com/watoukuang/demochain/foundation/logger"
	"github.com/watoukuang/demochain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		Genesis struct {
			Path string `conf:"default:zblock/genesis.json"`
		}
		Mining struct {
			MaxNonce      uint64        `conf:"default:500000"`
			YieldInterval time.Duration `conf:"default:100ms"`
			Miners        []string      `conf:"default:A:1;B:2;C:3"`
			Instant       bool          `conf:"default:false,help:skip the simulated stage pauses"`
		}
		Events struct {
			Buffer int `conf:"default:256"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work race node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`     _                                _           _       `)
	fmt.Println(`  __| | ___ _ __ ___   ___   ___| |__   __ _(_)_ __  `)
	fmt.Println(` / _' |/ _ \ '_ ' _ \ / _ \ / __| '_ \ / _' | | '_ \ `)
	fmt.Println(`| (_| |  __/ | | | | | (_) | (__| | | | (_| | | | | |`)
	fmt.Println(` \__,_|\___|_| |_| |_|\___/ \___|_| |_|\__,_|_|_| |_|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for reward addresses.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.Genesis.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Infow("startup", "status", "genesis file not found, using defaults", "path", cfg.Genesis.Path)
		gen = genesis.Default()
	case err != nil:
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	miners, err := race.ParseMiners(cfg.Mining.Miners)
	if err != nil {
		return fmt.Errorf("parsing miners: %w", err)
	}

	// Miners named after a key in the name service get paid to that key's
	// address in coinbase rounds.
	for i, mc := range miners {
		if mc.RewardAddress != "" {
			continue
		}
		if address, exists := ns.Address(mc.Identity); exists {
			miners[i].RewardAddress = address
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The viewer lines are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New(cfg.Events.Buffer)
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, "viewer:") {
			evts.Send(s)
		}
	}

	// The state value represents the blockchain node and manages the chain
	// and the round in flight.
	state, err := state.New(state.Config{
		Genesis:       gen,
		MaxNonce:      cfg.Mining.MaxNonce,
		YieldInterval: cfg.Mining.YieldInterval,
		DefaultMiners: miners,
		Metrics:       metrics.NewRace(),
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	timing := worker.DefaultTiming()
	if cfg.Mining.Instant {
		timing = worker.Timing{Confirmations: timing.Confirmations}
	}

	// The worker package runs the rounds. The worker will register itself
	// with the state.
	worker.Run(state, timing, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		State:      state,
		NS:         ns,
		Evts:       evts,
		CorsOrigin: cfg.Web.CorsOrigin,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
