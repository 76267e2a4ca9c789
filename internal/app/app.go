// Package app assembles the complaint engine from configuration. The HTTP
// server, the admin CLI and the MCP server share it.
package app

import (
	"fmt"

	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/connectivity"
	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/remote"
	"incluverse/backend/internal/storage"

	log "github.com/sirupsen/logrus"
)

// App is a wired, not yet loaded, complaint engine.
type App struct {
	Config    *config.Config
	Store     storage.KVStore
	Remote    remote.Authority
	Signal    *connectivity.Signal
	Prober    *connectivity.Prober // nil without PROBE_URL
	Localizer *localization.Localizer
	Service   *complaint.Service
}

// New opens storage and the remote authority selected by cfg and builds the
// service around them. pub may be nil.
func New(cfg *config.Config, pub complaint.Publisher) (*App, error) {
	store, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	authority, err := remote.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, store, authority, pub)
}

// NewWithStore is New with storage and remote supplied by the caller.
func NewWithStore(cfg *config.Config, store storage.KVStore, authority remote.Authority, pub complaint.Publisher) (*App, error) {
	loc, err := newLocalizer(cfg.LocalizationDir)
	if err != nil {
		return nil, err
	}

	signal := connectivity.NewSignal(cfg.StartOnline)
	var prober *connectivity.Prober
	if cfg.ProbeURL != "" {
		prober = connectivity.NewProber(cfg.ProbeURL, config.DefaultProbeInterval, config.ProbeTimeout, signal)
	}

	svc := complaint.NewService(store, authority, signal, complaint.Options{
		Key:       cfg.StorageKey,
		Policy:    complaint.ParsePolicy(cfg.StatusPolicy),
		Localizer: loc,
		Publisher: pub,
	})

	log.WithFields(log.Fields{
		"storage": cfg.StorageDriver,
		"remote":  cfg.RemoteMode,
		"policy":  cfg.StatusPolicy,
		"probe":   cfg.ProbeURL != "",
	}).Info("complaint engine configured")

	return &App{
		Config:    cfg,
		Store:     store,
		Remote:    authority,
		Signal:    signal,
		Prober:    prober,
		Localizer: loc,
		Service:   svc,
	}, nil
}

func newLocalizer(dir string) (*localization.Localizer, error) {
	if dir == "" {
		return localization.NewDefaultLocalizer()
	}
	loc, err := localization.NewLocalizer(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load locales from %s: %w", dir, err)
	}
	return loc, nil
}
