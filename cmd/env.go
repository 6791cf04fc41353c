package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/db"
	"github.com/sells-group/revenue-intel/internal/settings"
	sfpkg "github.com/sells-group/revenue-intel/pkg/salesforce"
)

// initPool connects to the configured Postgres store.
func initPool(ctx context.Context) (db.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("database URL is required (REVINTEL_STORE_DATABASE_URL)")
	}
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// initDefaults loads the scoring defaults, optionally overlaid from a YAML
// file. A broken file degrades to the compiled-in defaults.
func initDefaults() settings.Settings {
	if cfg.Scoring.DefaultsPath == "" {
		return settings.Default()
	}
	s, err := settings.LoadFile(cfg.Scoring.DefaultsPath)
	if err != nil {
		zap.L().Warn("using compiled-in scoring defaults", zap.Error(err))
	}
	return s
}

// initSalesforce builds the JWT-authenticated Salesforce client.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (REVINTEL_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RPS)), nil
}
