// Package main provides the bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	apiconnect "github.com/osa030/jukebot/internal/api/connect"
	apidiscord "github.com/osa030/jukebot/internal/api/discord"
	"github.com/osa030/jukebot/internal/app/filter"
	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/infra/config"
	"github.com/osa030/jukebot/internal/infra/discord"
	"github.com/osa030/jukebot/internal/infra/lavalink"
	"github.com/osa030/jukebot/internal/infra/logger"
	"github.com/osa030/jukebot/internal/infra/spotify"
)

// eventBuffer is the capacity of the playback event channel.
const eventBuffer = 256

var (
	app        = kingpin.New("jukebot-server", "jukebot Discord music bot")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	envFile    = app.Flag("env-file", "Path to .env file").Default(".env").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Missing .env files are ignored
	_ = godotenv.Load(*envFile)

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("loading config: path=%s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run wires the bot together and blocks until a shutdown signal arrives.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filters, err := filter.NewChainFromConfig(cfg.FilterSettings())
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	events := make(chan playback.Event, eventBuffer)

	bot, err := discord.New(discord.Config{
		Token:          cfg.Discord.Token,
		CommandGuildID: cfg.Discord.CommandGuildID,
	}, events)
	if err != nil {
		return err
	}
	if err := bot.Open(); err != nil {
		return err
	}
	defer bot.Close()

	userID, err := bot.UserID()
	if err != nil {
		return errors.Wrap(err, "failed to read bot user id")
	}

	nodes := make([]lavalink.NodeConfig, 0, len(cfg.Lavalink.Nodes))
	for _, n := range cfg.Lavalink.Nodes {
		nodes = append(nodes, lavalink.NodeConfig{
			Name:     n.Name,
			Address:  n.Address,
			Password: n.Password,
			Secure:   n.Secure,
		})
	}
	client, err := lavalink.NewClient(ctx, userID, nodes)
	if err != nil {
		return err
	}
	defer client.Close()

	binding := lavalink.NewBinding(client, bot, events, cfg.VoiceConnectTimeout())
	defer binding.Close()
	bot.SetVoiceForwarder(binding)

	opts := resolver.Options{CacheSize: cfg.Resolver.CacheSize}
	if cfg.SpotifyEnabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		opts.Spotify = spotifyClient
	}
	res, err := resolver.NewFromConfig(lavalink.NewCatalog(lavalink.BestNodeLoader{Client: client}, cfg.Resolver.SearchPrefix), opts)
	if err != nil {
		return errors.Wrap(err, "failed to create resolver")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	manager := session.NewManager(session.Config{
		IdleTimeout:       cfg.IdleTimeout(),
		QueueDisplayLimit: cfg.Session.QueueDisplayLimit,
	}, session.Deps{
		Connector: binding,
		Roster:    bot,
		Resolver:  res,
		Filters:   filters,
		Registry:  registry,
	})
	defer manager.Close()

	handler := apidiscord.NewHandler(apidiscord.Config{
		RateLimitPerSecond: cfg.RateLimit.PerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
	}, manager, bot, cfg)
	bot.SetInteractionHandler(handler)
	if err := bot.RegisterCommands(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.Admin.Token != "" {
		apiconnect.NewAdminService(manager).Register(mux,
			connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)))
	} else {
		zlog.Warn().Msg("admin token not configured, admin service disabled")
	}

	server := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		manager.Run(gctx, events)
		return nil
	})
	g.Go(func() error {
		zlog.Info().Msgf("starting http server: addr=%s", cfg.Admin.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("failed to shutdown http server: %v", err)
		}
		return nil
	})

	err = g.Wait()
	manager.Wait()
	zlog.Info().Msg("server stopped")
	return err
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
