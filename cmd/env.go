package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/credverify/internal/pipeline"
	"github.com/sells-group/credverify/internal/policy"
	"github.com/sells-group/credverify/internal/store"
	"github.com/sells-group/credverify/internal/verify"
	"github.com/sells-group/credverify/pkg/npi"
	"github.com/sells-group/credverify/pkg/statelicense"
)

// initStore opens the configured persistence backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initVerifyStep wires the registry clients, cache, policies, and verifier
// into the pipeline verification step.
func initVerifyStep() (*pipeline.Verify, error) {
	registry := npi.NewClient(
		npi.WithBaseURL(cfg.NPI.BaseURL),
		npi.WithRateLimit(cfg.NPI.RateLimit),
		npi.WithTimeout(cfg.Verify.Timeout()),
	)
	board := statelicense.NewClient(
		cfg.StateLicense.Endpoint,
		cfg.StateLicense.APIKey,
		statelicense.WithTimeout(cfg.Verify.Timeout()),
	)
	if !board.Configured() {
		zap.L().Debug("state license API not configured, license lookups will be skipped")
	}

	cache := verify.NewMemoryCache(cfg.Verify.CacheTTL())
	verifier := verify.New(registry, board, cache,
		verify.WithTimeout(cfg.Verify.Timeout()),
	)

	policies := policy.Default()
	if cfg.Verify.PolicyDir != "" {
		loaded, err := policy.LoadDir(cfg.Verify.PolicyDir)
		if err != nil {
			return nil, err
		}
		policies = loaded
	}

	return pipeline.NewVerify(verifier, policies,
		pipeline.WithEnabled(cfg.Verify.Enabled),
		pipeline.WithThreshold(cfg.Verify.ConfidenceThreshold),
		pipeline.WithConcurrency(cfg.Verify.Concurrency),
	), nil
}
