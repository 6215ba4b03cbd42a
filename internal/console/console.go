// Package console wires the dashboard views together: one load function per
// view registered with the poller, each rendering to the display and turning
// its own failures into alerts.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/channels"
	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/poller"
	"github.com/wolfeidau/funkctl/internal/table"
	"github.com/wolfeidau/funkctl/internal/upload"
	"github.com/wolfeidau/funkctl/internal/users"
	"golang.org/x/sync/errgroup"
)

// Health badges.
const (
	StatusOnline  = "● Server Online"
	StatusOffline = "● Server Offline"
)

// API is every backend call the console makes.
type API interface {
	users.API
	channels.ToneAPI
	upload.API
	ActiveUsers(ctx context.Context) (*models.ActiveUserList, error)
	ConnectionLogs(ctx context.Context, limit int) (*models.ConnectionLogList, error)
	ChannelUsage(ctx context.Context) (*models.ChannelUsageList, error)
	Traffic(ctx context.Context) (*models.TrafficStats, error)
	Health(ctx context.Context) (*models.Health, error)
}

// Config holds console settings.
type Config struct {
	LogLimit int
	Poller   []poller.Option
	Users    []users.Option
	Tones    []channels.ToneOption
}

// Console is the top level controller. It owns the dashboard state through
// its poller.
type Console struct {
	api      API
	alerts   alert.Notifier
	display  Display
	logLimit int

	poller  *poller.Poller
	users   *users.Controller
	tones   *channels.Tones
	uploads *upload.Pipeline

	mu       sync.Mutex
	form     *users.Form
	userRows table.Table
	channels []channels.Channel
	version  table.Table
}

// New creates the console and registers every view with its poller.
func New(api API, alerts alert.Notifier, display Display, cfg Config) *Console {
	c := &Console{
		api:      api,
		alerts:   alerts,
		display:  display,
		logLimit: cfg.LogLimit,
	}

	popts := append([]poller.Option{
		poller.WithErrorHandler(func(v poller.View, err error) {
			log.Debug().Err(err).Str("view", string(v)).Msg("view load failed")
		}),
	}, cfg.Poller...)
	c.poller = poller.New(popts...)

	uopts := append([]users.Option{
		users.WithEditTracker(c.poller),
		users.WithReload(func(ctx context.Context) {
			_ = c.poller.ShowView(ctx, poller.Users)
			display.SetActive(poller.Users)
		}),
	}, cfg.Users...)
	c.users = users.NewController(api, alerts, uopts...)

	topts := append([]channels.ToneOption{
		channels.WithStateChange(func(int, channels.ButtonState) { c.redrawChannels() }),
	}, cfg.Tones...)
	c.tones = channels.NewTones(api, alerts, topts...)

	c.uploads = upload.New(api, alerts,
		upload.WithProgress(func(upload.Progress) { c.redrawUpdates() }),
		upload.WithVersionRenderer(table.RendererFunc(func(t table.Table) {
			c.mu.Lock()
			c.version = t
			c.mu.Unlock()
			c.redrawUpdates()
		})),
	)

	c.poller.Register(poller.Dashboard, c.loadDashboard)
	c.poller.Register(poller.Users, c.loadUsers)
	c.poller.Register(poller.Channels, c.loadChannels)
	c.poller.Register(poller.Logs, c.loadLogs)
	c.poller.Register(poller.Stats, c.loadStats)
	c.poller.Register(poller.Updates, c.loadUpdates)

	return c
}

// Poller returns the scheduler driving the views.
func (c *Console) Poller() *poller.Poller { return c.poller }

// Users returns the user flows.
func (c *Console) Users() *users.Controller { return c.users }

// Tones returns the test tone buttons.
func (c *Console) Tones() *channels.Tones { return c.tones }

// Uploads returns the upload pipeline.
func (c *Console) Uploads() *upload.Pipeline { return c.uploads }

// Run checks server health, then refreshes the active view until ctx ends.
func (c *Console) Run(ctx context.Context) error {
	c.display.SetActive(c.poller.ActiveView())
	go c.CheckHealth(ctx)
	return c.poller.Run(ctx)
}

// ShowView switches the visible view and loads it.
func (c *Console) ShowView(ctx context.Context, v poller.View) error {
	if err := c.poller.ShowView(ctx, v); err != nil {
		return err
	}
	c.display.SetActive(v)
	return nil
}

// CheckHealth queries the backend and updates the status badge.
func (c *Console) CheckHealth(ctx context.Context) bool {
	h, err := c.api.Health(ctx)
	ok := err == nil && h.Healthy()
	if err != nil {
		log.Debug().Err(err).Msg("health check failed")
	}

	status := StatusOffline
	if ok {
		status = StatusOnline
	}
	c.display.SetStatus(status)
	return ok
}

// fail posts the view's load error alert.
func (c *Console) fail(v poller.View, err error) error {
	log.Error().Err(err).Str("view", string(v)).Msg("failed to load view")
	c.alerts.Notify(loadErrors[v], alert.Error)
	return err
}

func (c *Console) loadDashboard(ctx context.Context) (poller.RenderFunc, error) {
	var (
		active *models.ActiveUserList
		all    *models.UserList
		logs   *models.ConnectionLogList
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		active, err = c.api.ActiveUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		all, err = c.api.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		logs, err = c.api.ConnectionLogs(gctx, c.logLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.fail(poller.Dashboard, err)
	}

	data := DashboardData{ActiveUsers: active, TotalUsers: all.Count, ConnectionCount: logs.Count}
	return func() {
		c.display.Update(poller.Dashboard, DashboardTable(data).String())
	}, nil
}

func (c *Console) loadUsers(ctx context.Context) (poller.RenderFunc, error) {
	list, err := c.users.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	t := users.Table(list)
	return func() {
		c.mu.Lock()
		c.userRows = t
		c.mu.Unlock()
		c.redrawUsers()
	}, nil
}

func (c *Console) loadChannels(ctx context.Context) (poller.RenderFunc, error) {
	usage, err := c.api.ChannelUsage(ctx)
	if err != nil {
		return nil, c.fail(poller.Channels, err)
	}

	merged := channels.Merge(usage.ChannelUsage)
	return func() {
		c.mu.Lock()
		c.channels = merged
		c.mu.Unlock()
		c.redrawChannels()
	}, nil
}

func (c *Console) loadLogs(ctx context.Context) (poller.RenderFunc, error) {
	logs, err := c.api.ConnectionLogs(ctx, c.logLimit)
	if err != nil {
		return nil, c.fail(poller.Logs, err)
	}

	t := LogsTable(logs.Logs)
	return func() {
		c.display.Update(poller.Logs, t.String())
	}, nil
}

func (c *Console) loadStats(ctx context.Context) (poller.RenderFunc, error) {
	stats, err := c.api.Traffic(ctx)
	if err != nil {
		return nil, c.fail(poller.Stats, err)
	}

	t := TrafficTable(stats)
	return func() {
		c.display.Update(poller.Stats, t.String())
	}, nil
}

func (c *Console) loadUpdates(ctx context.Context) (poller.RenderFunc, error) {
	info, err := c.api.UpdateInfo(ctx)
	if err != nil {
		return nil, c.fail(poller.Updates, err)
	}

	t := upload.VersionTable(info)
	return func() {
		c.mu.Lock()
		c.version = t
		c.mu.Unlock()
		c.redrawUpdates()
	}, nil
}

// OpenForm shows f below the users table.
func (c *Console) OpenForm(f *users.Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
	c.redrawUsers()
}

// Form returns the open user form, if any.
func (c *Console) Form() *users.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// UpdateForm applies fn to the open user form and redraws it.
func (c *Console) UpdateForm(fn func(f *users.Form) error) error {
	c.mu.Lock()
	if c.form == nil {
		c.mu.Unlock()
		return errors.New("no form open, use new or edit <user>")
	}
	err := fn(c.form)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.redrawUsers()
	return nil
}

// CloseForm discards the open user form.
func (c *Console) CloseForm() {
	c.users.Close()
	c.OpenForm(nil)
}

func (c *Console) redrawUsers() {
	c.mu.Lock()
	t := c.userRows
	var form string
	if c.form != nil {
		form = c.form.String()
	}
	c.mu.Unlock()

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(t.String())
	}
	if form != "" {
		sb.WriteString("\n")
		sb.WriteString(form)
	}
	c.display.Update(poller.Users, sb.String())
}

func (c *Console) redrawChannels() {
	c.mu.Lock()
	merged := c.channels
	c.mu.Unlock()

	if merged == nil {
		return
	}
	c.display.Update(poller.Channels, channels.Table(merged, c.tones.State).String())
}

func (c *Console) redrawUpdates() {
	c.mu.Lock()
	t := c.version
	c.mu.Unlock()

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(t.String())
	}

	s := c.uploads.State()
	if s.ProgressActive {
		fmt.Fprintf(&sb, "\nUpload läuft: %s\n", s.Progress)
	}
	c.display.Update(poller.Updates, sb.String())
}
