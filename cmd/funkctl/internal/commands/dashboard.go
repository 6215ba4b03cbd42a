package commands

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/console"
	"github.com/wolfeidau/funkctl/internal/poller"
	"github.com/wolfeidau/funkctl/internal/session"
	"github.com/wolfeidau/funkctl/internal/users"
	"golang.org/x/sync/errgroup"
)

// DashboardCmd runs the interactive console.
type DashboardCmd struct {
	View     string        `help:"Initial view (${enum})" default:"dashboard" enum:"dashboard,users,channels,logs,stats,updates"`
	Interval time.Duration `help:"Refresh interval" default:"10s" env:"FUNKCTL_INTERVAL"`
	Limit    int           `help:"Connection log entries to load, at most 100" default:"100" env:"FUNKCTL_LIMIT"`
	NoClear  bool          `help:"Do not clear the terminal between redraws"`
	Once     bool          `help:"Print the view once and exit"`
}

func (c *DashboardCmd) Run(ctx context.Context, globals *Globals) error {
	view, err := poller.ParseView(c.View)
	if err != nil {
		return err
	}

	if c.Once {
		return snapshot(ctx, globals, view, c.Limit)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := console.NewScreen(globals.stdout(), !c.NoClear)
	e, err := globals.open(screen)
	if err != nil {
		return err
	}
	e.onRedirect = cancel

	if err := e.requireSession(ctx); err != nil {
		return err
	}

	repl := console.NewREPL(globals.stdin(), globals.stdout())
	con := console.New(e.client, e.alerts, screen, console.Config{
		LogLimit: c.Limit,
		Poller: []poller.Option{
			poller.WithInterval(c.Interval),
			poller.WithInitialView(view),
		},
		Users: []users.Option{users.WithConfirmer(repl)},
	})
	repl.Attach(con, e.guard.Logout)

	log.Debug().Str("view", string(view)).Dur("interval", c.Interval).Msg("starting dashboard")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return con.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return repl.Run(gctx)
	})

	err = g.Wait()
	if e.loginRequired() {
		return session.ErrLoginRequired
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
