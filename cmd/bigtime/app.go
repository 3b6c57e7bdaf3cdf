package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/config"
	"github.com/bigtime/bigtime/internal/logging"
	"github.com/bigtime/bigtime/internal/store"
	"github.com/bigtime/bigtime/internal/sync"
)

const deviceIDKey = "device_id"

// app bundles the pieces every command needs: config, store, logger.
type app struct {
	cfg *config.Config
	db  *store.DB
	log *slog.Logger
}

// openApp loads configuration, opens the database, and ensures the schema
// and device id exist.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFile)
	slog.SetDefault(log)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureDeviceID(ctx, cfg, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &app{cfg: cfg, db: db, log: log}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
}

// engine builds a sync engine, or returns an error when the client has no
// server configured yet.
func (a *app) engine() (*sync.Engine, error) {
	if !a.cfg.Configured() {
		return nil, fmt.Errorf("sync is not configured: set server_url and api_key in %s", cfgPath)
	}
	client := api.NewClient(a.cfg.ServerURL, a.cfg.APIKey, a.cfg.HTTPTimeout)
	return sync.NewEngine(a.db, client, a.cfg.DeviceID, a.log), nil
}

// ensureDeviceID resolves the device id: config wins, then the stored
// setting, then a freshly generated one persisted for next time.
func ensureDeviceID(ctx context.Context, cfg *config.Config, db *store.DB) error {
	if cfg.DeviceID != "" {
		return nil
	}
	stored, err := db.GetSetting(ctx, deviceIDKey, "")
	if err != nil {
		return err
	}
	if stored != "" {
		cfg.DeviceID = stored
		return nil
	}
	cfg.DeviceID = config.GenerateDeviceID()
	return db.SetSetting(ctx, deviceIDKey, cfg.DeviceID)
}
