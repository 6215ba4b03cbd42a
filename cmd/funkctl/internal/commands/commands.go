package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/cmd/funkctl/internal/credentials"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/session"
	"github.com/wolfeidau/funkctl/internal/table"
)

// ErrReported marks a failure the operator has already been told about
// through an alert. main exits non-zero without printing it again.
var ErrReported = errors.New("error already reported")

type Globals struct {
	Debug      bool
	Version    string
	Server     string
	SessionDir string
	CacheDir   string
	Timeout    time.Duration
	NoColor    bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (g *Globals) stdin() io.Reader {
	if g.Stdin == nil {
		return os.Stdin
	}
	return g.Stdin
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// env is everything a command needs to talk to the backend.
type env struct {
	store   *credentials.Store
	session *session.Session
	client  *client.Client
	guard   *session.Guard
	alerts  *alert.Channel

	hint       sync.Once
	reason     atomic.Value
	onRedirect func()
}

// open builds the session, client and guard. Alerts go to sink, or to
// stderr when sink is nil.
func (g *Globals) open(sink alert.Sink) (*env, error) {
	store, err := credentials.NewStore(g.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	sess, err := session.Open(store)
	if err != nil {
		return nil, err
	}

	cfg := client.DefaultConfig()
	if g.Server != "" {
		cfg.ServerURL = g.Server
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	cfg.CacheDir = g.CacheDir

	e := &env{store: store, session: sess}

	c, err := client.New(cfg, sess, client.WithUnauthorizedHandler(func() {
		e.guard.Expire()
	}))
	if err != nil {
		return nil, err
	}
	e.client = c
	e.guard = session.NewGuard(sess, store, c, func(reason string) {
		e.redirect(g.stderr(), reason)
	})

	if sink == nil {
		sink = alert.NewWriterSink(g.stderr(), g.NoColor)
	}
	e.alerts = alert.New(sink)

	return e, nil
}

func (e *env) redirect(w io.Writer, reason string) {
	e.reason.Store(reason)
	log.Debug().Str("reason", reason).Msg("redirecting to login")

	if reason != session.ReasonLogout {
		e.hint.Do(func() {
			fmt.Fprintf(w, "Login required (%s), run: funkctl login --username <admin>\n", reason)
		})
	}
	if e.onRedirect != nil {
		e.onRedirect()
	}
}

// loginRequired reports whether the guard sent the operator to login for a
// reason other than an explicit logout.
func (e *env) loginRequired() bool {
	reason, ok := e.reason.Load().(string)
	return ok && reason != session.ReasonLogout
}

// requireSession verifies the stored token before any authorized call.
func (e *env) requireSession(ctx context.Context) error {
	if !e.guard.Verify(ctx) {
		return session.ErrLoginRequired
	}
	return nil
}

// reported wraps err as already alerted.
func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrReported, err)
}

func printer(w io.Writer) table.Renderer {
	return table.RendererFunc(func(t table.Table) {
		_, _ = t.WriteTo(w)
	})
}
