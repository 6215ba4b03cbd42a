package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/cmd/funkctl/internal/commands"
	"github.com/wolfeidau/funkctl/internal/config"
	"github.com/wolfeidau/funkctl/internal/logger"
	"github.com/wolfeidau/funkctl/internal/session"
	"github.com/wolfeidau/funkctl/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login     commands.LoginCmd     `cmd:"" help:"Log in and store the session token"`
		Logout    commands.LogoutCmd    `cmd:"" help:"End the session"`
		Verify    commands.VerifyCmd    `cmd:"" help:"Check the stored session"`
		Health    commands.HealthCmd    `cmd:"" help:"Check server health"`
		Dashboard commands.DashboardCmd `cmd:"" default:"withargs" help:"Run the interactive console"`
		Users     commands.UsersCmd     `cmd:"" help:"Manage users"`
		Channels  commands.ChannelsCmd  `cmd:"" help:"Show channels and send test tones"`
		Logs      commands.LogsCmd      `cmd:"" help:"Show the connection log"`
		Stats     commands.StatsCmd     `cmd:"" help:"Show traffic statistics"`
		Updates   commands.UpdatesCmd   `cmd:"" help:"Manage the client binary"`

		Server     string        `help:"Backend URL" default:"http://localhost:8000" env:"FUNKCTL_SERVER"`
		SessionDir string        `help:"Directory holding the session token" env:"FUNKCTL_SESSION_DIR"`
		CacheDir   string        `help:"Directory for the HTTP response cache" env:"FUNKCTL_CACHE_DIR"`
		Timeout    time.Duration `help:"HTTP request timeout" default:"30s" env:"FUNKCTL_TIMEOUT"`
		NoColor    bool          `help:"Disable coloured alerts" env:"NO_COLOR"`
		Debug      bool          `help:"Enable debug mode." env:"FUNKCTL_DEBUG"`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := kong.Parse(&cli,
		kong.Name("funkctl"),
		kong.Description("Operator console for the Funk channel platform."),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.Loader, config.DefaultPath),
		kong.BindTo(ctx, (*context.Context)(nil)))

	logger.Setup(cli.Debug)

	shutdown, err := telemetry.InitTelemetry(ctx, "funkctl", version)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize telemetry")
		shutdown = func(context.Context) error { return nil }
	}

	err = cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Server:     cli.Server,
		SessionDir: cli.SessionDir,
		CacheDir:   cli.CacheDir,
		Timeout:    cli.Timeout,
		NoColor:    cli.NoColor,
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("failed to flush telemetry")
	}
	cancel()
	stop()

	if errors.Is(err, commands.ErrReported) || errors.Is(err, session.ErrLoginRequired) {
		os.Exit(1)
	}
	cmd.FatalIfErrorf(err)
}
