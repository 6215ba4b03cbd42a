package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/console"
	"github.com/wolfeidau/funkctl/internal/models"
)

// LoginCmd obtains a session token and stores it.
type LoginCmd struct {
	Username string `help:"Admin username" required:"" env:"FUNKCTL_USERNAME"`
	Password string `help:"Admin password, read from stdin when empty" env:"FUNKCTL_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}

	password := c.Password
	if password == "" {
		fmt.Fprint(globals.stderr(), "Password: ")
		line, err := bufio.NewReader(globals.stdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if err := e.guard.Login(ctx, c.Username, password); err != nil {
		return fmt.Errorf("login failed: %s", client.DetailOr(err, err.Error()))
	}

	fmt.Fprintf(globals.stdout(), "Logged in as %s\n", c.Username)
	fmt.Fprintf(globals.stdout(), "Session saved to %s\n", e.store.Path())
	return nil
}

// LogoutCmd ends the session.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}

	e.guard.Logout(ctx)
	fmt.Fprintln(globals.stdout(), "Logged out")
	return nil
}

// VerifyCmd checks the stored session against the backend.
type VerifyCmd struct{}

func (c *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}

	if err := e.requireSession(ctx); err != nil {
		return err
	}

	fmt.Fprintln(globals.stdout(), "Session valid")
	return nil
}

var errUnhealthy = errors.New("server reported unhealthy")

// HealthCmd checks the unauthenticated health endpoint.
type HealthCmd struct {
	Wait        bool          `help:"Retry with backoff until the server is healthy"`
	WaitTimeout time.Duration `help:"Give up waiting after this long" default:"1m"`
}

func (c *HealthCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}

	check := func() (*models.Health, error) {
		h, err := e.client.Health(ctx)
		if err != nil {
			return nil, err
		}
		if !h.Healthy() {
			return nil, errUnhealthy
		}
		return h, nil
	}

	var h *models.Health
	if c.Wait {
		h, err = backoff.Retry(ctx, check,
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(c.WaitTimeout),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Debug().Err(err).Dur("next", next).Msg("server not healthy yet")
			}),
		)
	} else {
		h, err = check()
	}

	if err != nil {
		log.Debug().Err(err).Msg("health check failed")
		fmt.Fprintln(globals.stdout(), console.StatusOffline)
		return reported(err)
	}

	fmt.Fprintln(globals.stdout(), console.StatusOnline)
	if h.Database != "" {
		fmt.Fprintf(globals.stdout(), "Database: %s\n", h.Database)
	}
	return nil
}
