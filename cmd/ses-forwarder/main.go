// Package main is the entry point for the SES forwarder Lambda.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mailbound/ses-forwarder/internal/config"
	"github.com/mailbound/ses-forwarder/internal/event"
	"github.com/mailbound/ses-forwarder/internal/pipeline"
	"github.com/mailbound/ses-forwarder/internal/provider"
	"github.com/mailbound/ses-forwarder/internal/provider/ses"
	"github.com/mailbound/ses-forwarder/internal/provider/stdout"
	"github.com/mailbound/ses-forwarder/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	localEvent := flag.String("local", "", "path to an event JSON file to run once locally instead of starting the Lambda runtime")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Select mail-transfer provider
	prov := selectProvider(ctx, cfg, *localEvent != "")

	// The S3 store is optional; without it, events must carry inline content.
	store := selectStore(ctx, cfg)

	p := pipeline.New(cfg, prov, store, slog.Default())

	slog.Info("starting ses-forwarder",
		"provider", prov.Name(),
		"mode", cfg.Forward.Mode,
		"to", cfg.Forward.ToEmail,
		"blacklist_rules", len(cfg.Forward.Blacklist),
	)

	if *localEvent != "" {
		if err := runLocal(ctx, p, *localEvent); err != nil {
			slog.Error("local run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(p.Handle)
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider chooses the mail-transfer backend. Local runs always print
// to stdout; otherwise the PROVIDER config decides, defaulting to SES.
func selectProvider(ctx context.Context, cfg *config.Config, local bool) provider.Provider {
	if local {
		slog.Info("using stdout provider for local run")
		return stdout.New()
	}

	switch cfg.Provider {
	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New()

	case "ses", "":
		if !cfg.SESConfigured() {
			slog.Error("SES provider selected but SES_REGION is required")
			os.Exit(1)
		}
		slog.Info("using AWS SES provider", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.ProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			slog.Error("failed to create SES provider", "error", err)
			os.Exit(1)
		}
		return p

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil
	}
}

// selectStore creates the S3 raw-email store when a bucket is configured.
func selectStore(ctx context.Context, cfg *config.Config) pipeline.RawFetcher {
	if !cfg.StorageConfigured() {
		return nil
	}
	store, err := storage.New(ctx, cfg.SES.Region)
	if err != nil {
		slog.Error("failed to create S3 store", "error", err)
		os.Exit(1)
	}
	slog.Info("using S3 raw-email store", "bucket", cfg.Storage.EmailBucket)
	return store
}

// runLocal processes a single event file through the pipeline and prints the
// normalized response.
func runLocal(ctx context.Context, p *pipeline.Pipeline, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event file: %w", err)
	}

	n, err := event.Decode(payload)
	if err != nil {
		return err
	}

	result, err := p.Process(ctx, n)
	if err != nil {
		return err
	}
	resp := result.Response()

	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
