package main

import (
	"fmt"

	"github.com/evidenceworks/consensus/internal/config"
	"github.com/evidenceworks/consensus/internal/engine"
	"github.com/evidenceworks/consensus/internal/events"
	"github.com/evidenceworks/consensus/internal/logging"
	"github.com/evidenceworks/consensus/internal/policy"
	"github.com/evidenceworks/consensus/internal/store"
)

// openEngine builds the engine from environment configuration. The returned
// close function must be called when the command finishes.
func openEngine() (*engine.Engine, func() error, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, nil, err
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	pol := policy.Default()
	if cfg.PolicyPath != "" {
		pol, err = policy.Load(cfg.PolicyPath)
		if err != nil {
			return nil, nil, err
		}
	}

	s, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	e, err := engine.New(s, pol, events.NewLogBus(logging.New("events")))
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return e, s.Close, nil
}
