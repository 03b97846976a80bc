package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/healingbudsglobal/walletgate/adapters/eth"
	"github.com/healingbudsglobal/walletgate/adapters/events"
	"github.com/healingbudsglobal/walletgate/adapters/metrics"
	"github.com/healingbudsglobal/walletgate/adapters/oracle"
	"github.com/healingbudsglobal/walletgate/adapters/ratelimit"
	"github.com/healingbudsglobal/walletgate/adapters/store"
	"github.com/healingbudsglobal/walletgate/adapters/tokenizer"
	"github.com/healingbudsglobal/walletgate/config"
	"github.com/healingbudsglobal/walletgate/ports"
	"github.com/healingbudsglobal/walletgate/service"
	transport "github.com/healingbudsglobal/walletgate/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	signKey, err := cfg.SigningKey()
	if err != nil {
		return err
	}
	if cfg.SigningKeyPEM == "" {
		logger.Warn("using ephemeral signing key, sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := service.Deps{
		Verifier:  eth.PersonalSignVerifier{},
		Tokenizer: tokenizer.NewJWTTokenizer(signKey),
	}

	var gcChallenges *store.MemoryChallengeStore

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return err
		}

		deps.Challenges = store.NewRedisChallengeStore(redisClient)
		deps.Exchanges = store.NewRedisExchangeStore(redisClient)
		deps.Identities = store.NewRedisIdentityStore(redisClient)
		deps.Revocations = store.NewRedisRevocationStore(redisClient)
		deps.Limiter = ratelimit.NewRedisLimiter(redisClient, cfg.NonceRateLimit, cfg.NonceRateWindow)
		deps.EventPub = events.NewWatermillPublisher(publisher)
	} else {
		logger.Warn("no redis configured, using in-memory stores")

		gcChallenges = store.NewMemoryChallengeStore()
		deps.Challenges = gcChallenges
		deps.Exchanges = store.NewMemoryExchangeStore()
		deps.Identities = store.NewMemoryIdentityStore()
		deps.Revocations = store.NewMemoryRevocationStore()
		deps.Limiter = ratelimit.NewMemoryLimiter(cfg.NonceRateLimit, cfg.NonceRateWindow)
		deps.EventPub = events.NewWatermillPublisher(localPublisher())
	}

	deps.Oracle, err = buildOracle(cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()

	authService := service.NewAuthService(cfg.AppName, deps,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithTTLs(cfg.ChallengeTTL, cfg.ExchangeTTL, cfg.AccessTTL, cfg.RefreshTTL),
	)

	gate := service.NewGate(deps.Identities,
		service.WithGateLogger(logger),
		service.WithGateMetrics(m),
	)

	refresher := service.NewRefresher(deps.Identities, deps.Oracle, authService, deps.EventPub, cfg.HoldingsCheckInterval, logger)
	go refresher.Run(ctx)

	if gcChallenges != nil {
		go expiredChallengeGC(ctx, gcChallenges, logger)
	}

	router := transport.SetupRouter(transport.RouterConfig{
		AuthService: authService,
		Gate:        gate,
		AccessTTL:   cfg.AccessTTL,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildOracle(cfg *config.Config, logger *slog.Logger) (ports.OwnershipOracle, error) {
	if cfg.EthRPCURL == "" || cfg.GatingContract == "" {
		logger.Warn("no chain endpoint configured, using static allowlist oracle", "allowlist_size", len(cfg.GatingAllowlist))
		return oracle.NewStaticOracle(cfg.GatingAllowlist...), nil
	}

	ethClient, err := ethclient.Dial(cfg.EthRPCURL)
	if err != nil {
		return nil, err
	}

	return oracle.NewChainOracle(
		ethClient,
		common.HexToAddress(cfg.GatingContract),
		oracle.AssetStandard(cfg.GatingStandard),
		cfg.GatingMinTokens,
		cfg.GatingDecimals,
	)
}

// localPublisher is the single-instance stand-in for the Redis stream.
func localPublisher() message.Publisher {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
}

// expiredChallengeGC sweeps consumed and expired challenges out of the
// in-memory store. The Redis store expires keys itself.
func expiredChallengeGC(ctx context.Context, challenges *store.MemoryChallengeStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := challenges.DeleteExpired(ctx, time.Now()); err != nil {
				logger.Error("challenge sweep failed", "error", err)
			}
		}
	}
}
