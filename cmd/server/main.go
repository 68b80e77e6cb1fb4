// Command server runs a single-instrument exchange on a Unix domain
// socket or TCP listener. Configuration comes from kestrel.yaml in the
// working directory and KESTREL_* environment variables.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"kestrel/internal/server"
)

func main() {
	viper.SetDefault("listen.network", "unix")
	viper.SetDefault("listen.address", "/tmp/kestrel.sock")
	viper.SetDefault("instrument", "KST-USD")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)

	viper.SetEnvPrefix("kestrel")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("kestrel")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fatalLogger := zerolog.New(os.Stderr)
			fatalLogger.Fatal().Err(err).Msg("read config")
		}
	}

	logger := newLogger()

	cfg := server.Config{
		Network:    viper.GetString("listen.network"),
		Address:    viper.GetString("listen.address"),
		Instrument: viper.GetString("instrument"),
	}
	if cfg.Network == "unix" {
		// A crashed run leaves the socket file behind.
		_ = os.Remove(cfg.Address)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if viper.GetBool("log.pretty") {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
