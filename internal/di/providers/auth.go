package providers

import (
	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/ratelimit"
)

// TokenKey wraps the token signing key bytes.
type TokenKey []byte

// ProvideTokenKey derives the key from SECRET, or loads or generates one in
// the data directory.
func ProvideTokenKey(i do.Injector) (TokenKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.Secret != "" {
		log.Info("Authentication key derived from configured secret",
			"token_format", cfg.Auth.TokenFormat,
			"access_token_duration", cfg.Auth.AccessTokenDuration,
		)
		if cfg.Auth.TokenFormat == auth.FormatPaseto {
			return TokenKey(auth.KeyFromSecret(cfg.Auth.Secret)), nil
		}
		return TokenKey(cfg.Auth.Secret), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Database.DataPath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"token_format", cfg.Auth.TokenFormat,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return TokenKey(key), nil
}

// ProvideTokenIssuer provides the JWT or PASETO token issuer.
func ProvideTokenIssuer(i do.Injector) (auth.TokenIssuer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[TokenKey](i)

	return auth.NewTokenIssuer(cfg.Auth.TokenFormat, key, cfg.Auth.AccessTokenDuration)
}

// ProvideRateLimiter provides the per-client limiter for login and
// registration. A limit of zero disables it.
func ProvideRateLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if cfg.Auth.RateLimit <= 0 {
		return nil, nil
	}
	return ratelimit.New(cfg.Auth.RateLimit, cfg.Auth.RateBurst), nil
}
