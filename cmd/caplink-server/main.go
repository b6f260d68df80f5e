// caplink-server exposes a capability registry over the caplink HTTP
// protocol. Capabilities are registered at process start; the server
// then serves sessions until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/caplink-proto/caplink/internal/capability"
	"github.com/caplink-proto/caplink/internal/sample"
	"github.com/caplink-proto/caplink/internal/server"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("caplink-server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	viper.SetConfigName("caplink")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("caplink")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.name", "caplink demo server")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.cors_origins", []string{})
	viper.SetDefault("server.session_ttl", "10m")
	viper.SetDefault("sample.enabled", true)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	sessionTTL, err := time.ParseDuration(viper.GetString("server.session_ttl"))
	if err != nil {
		return fmt.Errorf("parse server.session_ttl: %w", err)
	}

	// Registration must complete before the first session opens; the
	// registry is read-only from then on.
	reg := capability.New()
	if viper.GetBool("sample.enabled") {
		if err := sample.Register(reg); err != nil {
			return fmt.Errorf("register sample capabilities: %w", err)
		}
		counts := reg.Counts()
		logger.Info("sample capability set registered",
			zap.Int("actions", counts["actions"]),
			zap.Int("resources", counts["resources"]),
			zap.Int("prompts", counts["prompts"]),
		)
	}

	srv := server.New(server.Config{
		Name:         viper.GetString("server.name"),
		Version:      version,
		Port:         viper.GetInt("server.port"),
		CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
		RateLimitRPS: viper.GetInt("server.rate_limit_rps"),
		SessionTTL:   sessionTTL,
	}, reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
