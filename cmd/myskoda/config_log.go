package main

import (
	"github.com/samvad-hq/myskoda/internal/config"
	"github.com/samvad-hq/myskoda/internal/logger"
)

// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.AccessToken != "" {
		out.AccessToken = logger.Redact(out.AccessToken)
	}
	return out
}
