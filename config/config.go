package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds everything the gate server needs to start. Values come from
// the environment; anything unset falls back to a development default.
type Config struct {
	AppName    string
	ListenAddr string

	// RedisURL selects the persistent backends. Empty means in-memory
	// stores, which only make sense for a single instance.
	RedisURL string

	// EthRPCURL and GatingContract configure the on-chain ownership
	// oracle. When either is empty a static allowlist from
	// GatingAllowlist is used instead.
	EthRPCURL       string
	GatingContract  string
	GatingStandard  string // "erc721" or "erc20"
	GatingMinTokens decimal.Decimal
	GatingDecimals  int32
	GatingAllowlist []string

	ChallengeTTL time.Duration
	ExchangeTTL  time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration

	NonceRateLimit  int
	NonceRateWindow time.Duration

	HoldingsCheckInterval time.Duration

	// SigningKeyPEM is a PKCS#8 PEM-encoded P-256 key for session JWTs.
	// Empty generates an ephemeral key, which invalidates all sessions on
	// restart.
	SigningKeyPEM string
}

// FromEnv builds a Config from WALLETGATE_* environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppName:               getenv("WALLETGATE_APP_NAME", "Healing Buds"),
		ListenAddr:            getenv("WALLETGATE_LISTEN_ADDR", ":9000"),
		RedisURL:              os.Getenv("WALLETGATE_REDIS_URL"),
		EthRPCURL:             os.Getenv("WALLETGATE_ETH_RPC_URL"),
		GatingContract:        os.Getenv("WALLETGATE_GATING_CONTRACT"),
		GatingStandard:        getenv("WALLETGATE_GATING_STANDARD", "erc721"),
		SigningKeyPEM:         os.Getenv("WALLETGATE_SIGNING_KEY_PEM"),
		GatingMinTokens:       decimal.NewFromInt(1),
		ChallengeTTL:          5 * time.Minute,
		ExchangeTTL:           2 * time.Minute,
		AccessTTL:             5 * time.Minute,
		RefreshTTL:            5 * 24 * time.Hour,
		NonceRateLimit:        10,
		NonceRateWindow:       time.Minute,
		HoldingsCheckInterval: 10 * time.Minute,
	}

	if raw := os.Getenv("WALLETGATE_GATING_ALLOWLIST"); raw != "" {
		for _, address := range strings.Split(raw, ",") {
			if address = strings.TrimSpace(address); address != "" {
				cfg.GatingAllowlist = append(cfg.GatingAllowlist, address)
			}
		}
	}

	var err error
	if raw := os.Getenv("WALLETGATE_GATING_MIN_TOKENS"); raw != "" {
		cfg.GatingMinTokens, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WALLETGATE_GATING_MIN_TOKENS: %w", err)
		}
	}
	if raw := os.Getenv("WALLETGATE_GATING_DECIMALS"); raw != "" {
		decimals, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid WALLETGATE_GATING_DECIMALS: %w", err)
		}
		cfg.GatingDecimals = int32(decimals)
	}
	if raw := os.Getenv("WALLETGATE_NONCE_RATE_LIMIT"); raw != "" {
		cfg.NonceRateLimit, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WALLETGATE_NONCE_RATE_LIMIT: %w", err)
		}
	}

	for _, key := range []struct {
		name string
		dst  *time.Duration
	}{
		{"WALLETGATE_CHALLENGE_TTL", &cfg.ChallengeTTL},
		{"WALLETGATE_EXCHANGE_TTL", &cfg.ExchangeTTL},
		{"WALLETGATE_ACCESS_TTL", &cfg.AccessTTL},
		{"WALLETGATE_REFRESH_TTL", &cfg.RefreshTTL},
		{"WALLETGATE_NONCE_RATE_WINDOW", &cfg.NonceRateWindow},
		{"WALLETGATE_HOLDINGS_CHECK_INTERVAL", &cfg.HoldingsCheckInterval},
	} {
		if raw := os.Getenv(key.name); raw != "" {
			*key.dst, err = time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key.name, err)
			}
		}
	}

	return cfg, nil
}

// SigningKey returns the configured session signing key, generating an
// ephemeral one when none is set.
func (c *Config) SigningKey() (*ecdsa.PrivateKey, error) {
	if c.SigningKeyPEM == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	block, _ := pem.Decode([]byte(c.SigningKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("signing key is not valid PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is not an ECDSA key")
	}
	return key, nil
}

func getenv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
