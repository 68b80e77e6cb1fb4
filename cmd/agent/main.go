// Command agent runs a fleet of patient trading agents against a running
// exchange server, giving the book organic two-sided flow.
package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"kestrel/internal/agent"
	"kestrel/internal/book"
	"kestrel/internal/client"
)

func main() {
	viper.SetDefault("server.network", "unix")
	viper.SetDefault("server.address", "/tmp/kestrel.sock")
	viper.SetDefault("agents", 4)
	viper.SetDefault("tick", "250ms")
	viper.SetDefault("placement_rate", 1.5)
	viper.SetDefault("cancellation_rate", 0.5)
	viper.SetDefault("order_size", "10")
	viper.SetDefault("reference_price", "100")
	viper.SetDefault("price_vol", 0.03)
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("kestrel")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("agents")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fatalLogger := zerolog.New(os.Stderr)
			fatalLogger.Fatal().Err(err).Msg("read config")
		}
	}

	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)

	orderSize, err := decimal.NewFromString(viper.GetString("order_size"))
	if err != nil {
		logger.Fatal().Err(err).Msg("bad order_size")
	}
	refPrice, err := decimal.NewFromString(viper.GetString("reference_price"))
	if err != nil {
		logger.Fatal().Err(err).Msg("bad reference_price")
	}
	cfg := agent.Config{
		PlacementRate:    viper.GetFloat64("placement_rate"),
		CancellationRate: viper.GetFloat64("cancellation_rate"),
		OrderSize:        orderSize,
		ReferencePrice:   refPrice,
		PriceVol:         viper.GetFloat64("price_vol"),
	}
	tick := viper.GetDuration("tick")
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < viper.GetInt("agents"); i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			log := logger.With().Uint64("agent", seed).Logger()
			if err := runAgent(ctx, cfg, tick, seed, log); err != nil {
				log.Error().Err(err).Msg("agent stopped")
			}
		}(uint64(i + 1))
	}
	wg.Wait()
}

func runAgent(ctx context.Context, cfg agent.Config, tick time.Duration, seed uint64, log zerolog.Logger) error {
	c, err := client.Dial(viper.GetString("server.network"), viper.GetString("server.address"), client.WithLogger(log))
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Subscribe(ctx); err != nil {
		return err
	}

	p := agent.NewPatient(cfg, rand.New(rand.NewPCG(seed, seed)), log,
		func(side book.Side, size, price decimal.Decimal) (uint64, bool, error) {
			var placed client.Placement
			var err error
			if side == book.Buy {
				placed, err = c.LimitBuy(ctx, size, price)
			} else {
				placed, err = c.LimitSell(ctx, size, price)
			}
			return placed.OrderID, placed.Posted, err
		},
		func(orderID uint64) (bool, error) {
			return c.Cancel(ctx, orderID)
		},
		c.Best,
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("active_orders", p.ActiveOrders()).Msg("agent exiting")
			return nil
		case <-ticker.C:
			if err := p.Act(); err != nil {
				return err
			}
		}
	}
}
