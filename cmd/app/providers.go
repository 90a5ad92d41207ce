package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
	"github.com/yanqian/qnabot/internal/infra/answerstore"
	"github.com/yanqian/qnabot/internal/infra/channelauth"
	"github.com/yanqian/qnabot/internal/infra/config"
	"github.com/yanqian/qnabot/internal/infra/missrepo"
	"github.com/yanqian/qnabot/internal/infra/qnamaker"
)

func provideEndpointConfig(cfg *config.Config) qnabot.EndpointConfig {
	return qnabot.EndpointConfig{
		KnowledgeBaseID: cfg.QnA.KnowledgeBaseID,
		AuthKey:         cfg.QnA.AuthKey,
		HostURL:         cfg.QnA.EndpointHostName,
	}
}

func provideQnAClient(cfg *config.Config, endpoint qnabot.EndpointConfig) *qnamaker.Client {
	return qnamaker.NewClient(endpoint, cfg.QnA.Timeout)
}

func provideBotConfig(cfg *config.Config) qnabot.Config {
	return qnabot.Config{
		Policy:         qnabot.SelectionPolicy(cfg.Bot.SelectionPolicy),
		Top:            cfg.QnA.Top,
		ScoreThreshold: cfg.QnA.ScoreThreshold,
		WelcomeText:    cfg.Bot.WelcomeText,
		NoAnswerText:   cfg.Bot.NoAnswerText,
		PromptText:     cfg.Bot.PromptText,
		CacheTTL:       cfg.Bot.CacheTTL,
		TopTrending:    cfg.Bot.TopTrending,
	}
}

func provideAnswerStore(cfg *config.Config, logger *slog.Logger) (qnabot.Store, func()) {
	noop := func() {}
	if !cfg.Insights.Redis.Enabled {
		return answerstore.NewMemoryStore(), noop
	}
	opt, err := buildValkeyOptions(cfg.Insights.Redis.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return answerstore.NewMemoryStore(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return answerstore.NewMemoryStore(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return answerstore.NewMemoryStore(), noop
	}
	logger.Info("answer valkey store enabled", "addr", cfg.Insights.Redis.Addr)
	return answerstore.NewValkeyStore(client, cfg.Insights.Redis.Prefix), client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideMissRepository(cfg *config.Config, logger *slog.Logger) (qnabot.MissRepository, func()) {
	noop := func() {}
	fallback := missrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Insights.Postgres.DSN)
	if dsn == "" {
		logger.Info("insights postgres dsn not set, using memory miss log")
		return fallback, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory miss log", "error", err)
		return fallback, noop
	}
	if cfg.Insights.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Insights.Postgres.MaxConns
	}
	if cfg.Insights.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Insights.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory miss log", "error", err)
		return fallback, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory miss log", "error", err)
		pool.Close()
		return fallback, noop
	}
	repo := missrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create miss log schema, using memory miss log", "error", err)
		pool.Close()
		return fallback, noop
	}
	logger.Info("insights postgres miss log enabled")
	return repo, pool.Close
}

func provideChannelVerifier(cfg *config.Config, logger *slog.Logger) (channelauth.Verifier, func()) {
	switch channelauth.Mode(cfg.ChannelAuth.Mode) {
	case channelauth.ModeBotFramework:
		ctx, cancel := context.WithCancel(context.Background())
		logger.Info("bot framework channel auth enabled", "app_id", cfg.ChannelAuth.AppID)
		return channelauth.NewBotFrameworkVerifier(ctx, cfg.ChannelAuth.AppID, cfg.ChannelAuth.Issuer, cfg.ChannelAuth.JWKSURL), cancel
	case channelauth.ModeSecret:
		logger.Warn("shared secret channel auth enabled, use only with local channels")
		return channelauth.NewSecretVerifier(cfg.ChannelAuth.Secret, cfg.ChannelAuth.AppID), func() {}
	default:
		logger.Warn("channel auth disabled")
		return nil, func() {}
	}
}
