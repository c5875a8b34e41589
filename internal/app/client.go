package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/myskoda/internal/config"
	"github.com/samvad-hq/myskoda/internal/logger"
	"github.com/samvad-hq/myskoda/internal/storage"
	"github.com/samvad-hq/myskoda/pkg/auth"
	"github.com/samvad-hq/myskoda/pkg/httpclient"
	"github.com/samvad-hq/myskoda/pkg/myskoda"
)

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.SnapshotTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// Authorization prefers the configured access token and falls back to the
// token saved with `myskoda token set`.
func Authorization(cfg *config.Config, store storage.Store) auth.Provider {
	chain := auth.Chain{}
	if cfg.AccessToken != "" {
		chain = append(chain, auth.Static(cfg.AccessToken))
	}
	if store != nil {
		chain = append(chain, auth.NewStored(store, cfg.TokenKey))
	}
	return chain
}

// NewClient builds the MySkoda REST client from config.
func NewClient(cfg *config.Config, store storage.Store, log logger.Logger) (*myskoda.RestAPI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	transport := httpclient.NewRestyClient(httpclient.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.AppName,
	})
	api, err := myskoda.NewRestAPI(transport, Authorization(cfg, store),
		myskoda.WithBaseURL(cfg.APIBaseURL),
		myskoda.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init myskoda client: %w", err)
	}
	return api, nil
}

// SaveToken persists token under the configured key. The expiry comes from
// ttl when positive, else from the JWT exp claim, else from token_ttl_seconds.
func SaveToken(_ context.Context, cfg *config.Config, store storage.Store, token string, ttl time.Duration, now time.Time) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, fmt.Errorf("token must not be empty")
	}

	expiresAt, source := now.Add(ttl), "flag"
	if ttl <= 0 {
		if exp, ok, err := auth.ExpiryFromJWT(token); err == nil && ok {
			expiresAt, source = exp, "jwt"
		} else {
			expiresAt, source = now.Add(cfg.TokenTTL), "default"
		}
	}

	if err := store.SaveToken(cfg.TokenKey, token, expiresAt); err != nil {
		if errors.Is(err, storage.ErrNotPersistent) {
			return time.Time{}, fmt.Errorf("token set requires storage_type=bbolt (got %q): %w", cfg.StorageType, err)
		}
		return time.Time{}, fmt.Errorf("save token: %w", err)
	}
	logger.InfoObj("access token stored", "token_meta", map[string]any{
		"key":           cfg.TokenKey,
		"token":         logger.Redact(token),
		"expires_at":    expiresAt.UTC().Format(time.RFC3339),
		"expiry_source": source,
	})
	return expiresAt, nil
}
