package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/notion2jira/internal/credential"
	"github.com/nhle/notion2jira/internal/jira"
	"github.com/nhle/notion2jira/internal/mapping"
	"github.com/nhle/notion2jira/internal/model"
	"github.com/nhle/notion2jira/internal/notion"
	"github.com/nhle/notion2jira/internal/queue"
	"github.com/nhle/notion2jira/internal/store"
	syncsvc "github.com/nhle/notion2jira/internal/sync"
	"github.com/nhle/notion2jira/internal/version"
)

const healthLogInterval = time.Minute

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*configPath, logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	resolveSecrets(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := connectWithRetry(ctx, logger, "redis", func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	kv, err := openStore(cfg, rdb)
	if err != nil {
		return err
	}
	defer kv.Close()

	jiraClient := jira.NewClient(
		cfg.Jira.BaseURL, cfg.Jira.Username, cfg.Jira.Password,
		time.Duration(cfg.Jira.TimeoutSec)*time.Second, cfg.Jira.MaxRetries,
	)
	if err := connectWithRetry(ctx, logger, "jira", func() error {
		me, err := jiraClient.Myself(ctx)
		if err == nil {
			logger.Info("jira connection validated", "user", me.Name)
		}
		return err
	}); err != nil {
		return fmt.Errorf("validating jira connection: %w", err)
	}

	notionClient := notion.NewClient(
		cfg.Notion.Token, cfg.Notion.Version,
		time.Duration(cfg.Notion.TimeoutSec)*time.Second,
	)

	versions, err := version.NewMapper(cfg.Mapping.VersionTablePath, cfg.Jira.DefaultVersionID, logger)
	if err != nil {
		return err
	}
	if err := versions.Watch(ctx); err != nil {
		logger.Warn("version table watch unavailable", "error", err)
	}
	if live, err := jiraClient.ProjectVersions(ctx, cfg.Jira.ProjectKey); err != nil {
		logger.Warn("refreshing versions from jira", "error", err)
	} else if err := versions.RefreshFromJira(live); err != nil {
		logger.Warn("persisting refreshed version table", "error", err)
	}

	pageNames := version.NewPageNameCache(
		notionClient,
		cfg.Mapping.VersionLocalPath, cfg.Mapping.VersionCachePath,
		time.Duration(cfg.Mapping.VersionCacheTTLHours)*time.Hour,
		logger,
	)

	mapper := mapping.NewMapper(
		cfg.Mapping, cfg.Jira,
		versions, pageNames,
		mapping.NewReporterCache(jiraClient, logger),
		logger,
	)

	policy := syncsvc.RetryPolicy{
		MaxAttempts: cfg.Sync.MaxRetries,
		BaseDelay:   time.Duration(cfg.Sync.RetryDelaySec) * time.Second,
		MaxDelay:    time.Duration(cfg.Sync.RetryMaxDelaySec) * time.Second,
	}

	service := syncsvc.NewService(
		*cfg,
		jiraClient, notionClient, mapper,
		store.NewMappingStore(kv),
		queue.NewRedisQueue(rdb), kv,
		policy, logger,
	)

	go logHealth(ctx, service, logger)

	logger.Info("notion2jira started",
		"queue", cfg.Sync.QueueName,
		"project_key", cfg.Jira.ProjectKey,
		"store_backend", cfg.Store.Backend,
	)

	err = service.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}
	return err
}

// resolveSecrets fills credential fields from env and the OS keyring
// when the config file leaves them blank.
func resolveSecrets(cfg *model.AppConfig) {
	cfg.Jira.Password = credential.Resolve(
		cfg.Jira.Password, "NOTION2JIRA_JIRA_PASSWORD", credential.KeyJiraPassword)
	cfg.Notion.Token = credential.Resolve(
		cfg.Notion.Token, "NOTION2JIRA_NOTION_TOKEN", credential.KeyNotionToken)
	cfg.Redis.Password = credential.Resolve(
		cfg.Redis.Password, "NOTION2JIRA_REDIS_PASSWORD", credential.KeyRedisPassword)
}

// openStore selects the mapping store backend.
func openStore(cfg *model.AppConfig, rdb *redis.Client) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return store.NewRedisStore(rdb), nil
	}
}

// connectWithRetry probes a dependency with exponential backoff until it
// answers or the startup window closes.
func connectWithRetry(ctx context.Context, logger *slog.Logger, name string, probe func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute

	return backoff.Retry(func() error {
		if err := probe(); err != nil {
			logger.Warn("dependency not ready, retrying", "dependency", name, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

// logHealth periodically emits the health snapshot.
func logHealth(ctx context.Context, service *syncsvc.Service, logger *slog.Logger) {
	ticker := time.NewTicker(healthLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := service.HealthCheck(ctx)
			status := health.Status
			logger.Info("health",
				"state", health.State,
				"issues", health.Issues,
				"backlog", health.Backlog,
				"processed", status.Processed,
				"succeeded", status.Succeeded,
				"failed", status.Failed,
			)
		}
	}
}
