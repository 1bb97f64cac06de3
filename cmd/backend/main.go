package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	configloader "github.com/foxseedlab/tsuyaku/external/config"
	"github.com/foxseedlab/tsuyaku/external/discord"
	eventsimpl "github.com/foxseedlab/tsuyaku/external/events"
	"github.com/foxseedlab/tsuyaku/external/httpapi"
	repositoryimpl "github.com/foxseedlab/tsuyaku/external/repository"
	speakerimpl "github.com/foxseedlab/tsuyaku/external/speaker"
	tokenimpl "github.com/foxseedlab/tsuyaku/external/token"
	transcriberimpl "github.com/foxseedlab/tsuyaku/external/transcriber"
	translatorimpl "github.com/foxseedlab/tsuyaku/external/translator"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/pipeline"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 10 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded",
		"env", cfg.Env,
		"transcript_source", cfg.TranscriptSource,
		"translator", cfg.Translator,
		"speaker", cfg.Speaker,
		"speaker_output", cfg.SpeakerOutput)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	run(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	tokenimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	translatorimpl.RegisterDI(injector)
	speakerimpl.RegisterDI(injector)
	events.RegisterDI(injector)
	eventsimpl.RegisterDI(injector)
	metrics.RegisterDI(injector)
	pipeline.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func mustInvoke[T any](injector do.Injector, what string) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		slog.Error("failed to resolve "+what, "error", err)
		os.Exit(1)
	}
	return v
}

func run(cfg *config.Config, injector do.Injector) {
	bus := mustInvoke[*events.Bus](injector, "event bus")
	p := mustInvoke[*pipeline.Pipeline](injector, "pipeline")
	controller := mustInvoke[*session.Controller](injector, "session controller")
	server := mustInvoke[*httpapi.Server](injector, "http server")
	hub := mustInvoke[*httpapi.Hub](injector, "websocket hub")
	kafka := mustInvoke[*eventsimpl.KafkaPublisher](injector, "kafka publisher")

	bus.Subscribe(kafka)
	bus.Subscribe(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dc discordpkg.Client
	if cfg.DiscordEnabled() {
		dc = mustInvoke[discordpkg.Client](injector, "discord client")
		startDiscord(ctx, cfg, dc, controller)
		if cfg.DiscordTextChannelID != "" {
			bus.Subscribe(mustInvoke[*discord.Announcer](injector, "discord announcer"))
		}
	}

	go bus.Run(ctx)
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		p.Run(ctx)
	}()
	server.Start()
	slog.Info("startup: ready", "http_addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if controller.Status().State == session.StateActive {
		if _, err := controller.Stop(shutdownCtx); err != nil {
			slog.Warn("failed to stop session during shutdown", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	cancel()
	<-pipelineDone

	if err := kafka.Close(); err != nil {
		slog.Error("kafka publisher close failed", "error", err)
	}
	if dc != nil {
		closeDiscord(cfg, injector, dc)
	}
	slog.Info("shutdown complete")
}

func startDiscord(ctx context.Context, cfg *config.Config, dc discordpkg.Client, controller *session.Controller) {
	connectCtx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(connectCtx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	defs := session.SlashCommandDefinitions()
	if err := dc.UpsertGuildSlashCommands(cfg.DiscordGuildID, defs); err != nil {
		slog.Error("failed to upsert slash commands", "error", err, "guild_id", cfg.DiscordGuildID)
		os.Exit(1)
	}
	dc.RegisterSlashCommandHandler(controller.HandleSlashCommand)

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "commands", names)
}

func closeDiscord(cfg *config.Config, injector do.Injector, dc discordpkg.Client) {
	if cfg.SpeakerOutput == config.SpeakerOutputDiscord {
		player, err := do.InvokeNamed[audio.Player](injector, audio.PlayerDiscord)
		if err == nil {
			if closer, ok := player.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil {
					slog.Error("discord voice output close failed", "error", err)
				}
			}
		}
	}
	if err := dc.Close(); err != nil {
		slog.Error("discord close failed", "error", err)
	}
}
