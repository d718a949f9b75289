package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/arbitr/internal/config"
	"github.com/mark3labs/arbitr/internal/coord"
	"github.com/mark3labs/arbitr/internal/ledger"
	natspkg "github.com/mark3labs/arbitr/internal/nats"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// runtime bundles the embedded broker, ledger store and coordinator that
// every command needs. The broker holds an exclusive lock on the data
// directory, so one process serves a ledger at a time.
type runtime struct {
	cfg         *config.Config
	ns          *server.Server
	nc          *nats.Conn
	store       *ledger.Store
	coordinator *coord.Coordinator
	session     string
}

// openRuntime starts the embedded broker over the configured data directory
// and loads the session's coordinator. sessionFlag overrides the configured
// session name.
func openRuntime(ctx context.Context, sessionFlag string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	name := sessionFlag
	if name == "" {
		name = cfg.Session
	}
	if name == "" {
		if !config.Exists() {
			return nil, fmt.Errorf("no session name: pass --session, or run 'arbitr setup --project' to create a config")
		}
		return nil, fmt.Errorf("no session name: pass --session or set it in arbitr.yml")
	}
	session, err := coord.NormalizeSession(name)
	if err != nil {
		return nil, err
	}

	ns, err := natspkg.StartEmbeddedNATS(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
	}

	nc, err := natspkg.ConnectInProcess(ns)
	if err != nil {
		ns.Shutdown()
		return nil, err
	}

	js, err := natspkg.CreateJetStream(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	stream, err := natspkg.SetupStream(ctx, js)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("failed to setup stream: %w", err)
	}

	store := ledger.NewStore(js, stream)
	coordinator, err := coord.New(ctx, store, session)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	return &runtime{
		cfg:         cfg,
		ns:          ns,
		nc:          nc,
		store:       store,
		coordinator: coordinator,
		session:     session,
	}, nil
}

// Close drains the connection and shuts the broker down.
func (r *runtime) Close() error {
	return natspkg.Shutdown(r.nc, r.ns)
}
