// Package upload sends a client binary to the backend as a streamed
// multipart body with its version metadata in request headers.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/format"
	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/table"
	"github.com/wolfeidau/funkctl/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Suffix is the only accepted artifact extension.
const Suffix = ".exe"

// Header names carrying the metadata.
const (
	HeaderVersion   = "version"
	HeaderChangelog = "changelog"
)

// FieldName is the multipart field holding the artifact.
const FieldName = "file"

var (
	// ErrNoFile is returned when no artifact was selected or it is missing.
	ErrNoFile = errors.New("no file selected")

	// ErrInvalidFile is returned for artifacts without the .exe suffix.
	ErrInvalidFile = errors.New("only .exe files are allowed")

	// ErrNoVersion is returned when the version field is empty.
	ErrNoVersion = errors.New("version is required")

	// ErrInFlight is returned while the submit control is disabled.
	ErrInFlight = errors.New("upload already in progress")
)

// API is the part of the backend the pipeline uses.
type API interface {
	Stream(ctx context.Context, req client.StreamRequest, out any) error
	UpdateInfo(ctx context.Context) (*models.UpdateInfo, error)
}

// Form holds the operator's upload inputs.
type Form struct {
	Path      string
	Version   string
	Changelog string
}

// Progress is the state of the running upload.
type Progress struct {
	Sent    int64
	Total   int64
	Percent int
}

// String renders "42% (1.0 MiB / 2.4 MiB)".
func (p Progress) String() string {
	return fmt.Sprintf("%d%% (%s)", p.Percent, format.Progress(p.Sent, p.Total))
}

// ProgressFunc receives progress updates. Percent never decreases within
// one upload.
type ProgressFunc func(p Progress)

// State is a snapshot of the upload form.
type State struct {
	Form           Form
	SubmitEnabled  bool
	ProgressActive bool
	Progress       Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress registers fn for progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.onProgress = fn
	}
}

// WithVersionRenderer sets where version info is rendered.
func WithVersionRenderer(r table.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// Pipeline owns the upload form and runs at most one upload at a time.
type Pipeline struct {
	api        API
	alerts     alert.Notifier
	renderer   table.Renderer
	onProgress ProgressFunc
	metrics    *telemetry.Metrics

	mu    sync.Mutex
	state State
}

// New creates a pipeline with the submit control enabled.
func New(api API, alerts alert.Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:        api,
		alerts:     alerts,
		renderer:   table.Discard,
		onProgress: func(Progress) {},
		metrics:    telemetry.GetMetrics(),
		state:      State{SubmitEnabled: true},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a snapshot of the form.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetForm replaces the form inputs.
func (p *Pipeline) SetForm(f Form) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form = f
}

// Upload sets the form to f and submits it.
func (p *Pipeline) Upload(ctx context.Context, f Form) error {
	p.SetForm(f)
	return p.Submit(ctx)
}

// Submit validates and uploads the current form. The submit control is
// disabled while the upload runs and re-enabled on every outcome.
func (p *Pipeline) Submit(ctx context.Context) error {
	f := p.State().Form

	size, err := p.validate(f)
	if err != nil {
		return err
	}

	if err := p.begin(); err != nil {
		return err
	}
	defer p.finish()

	sent, err := p.send(ctx, f, size)

	outcome := "success"
	defer func() {
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		p.metrics.UploadsTotal.Add(ctx, 1, attrs)
		p.metrics.UploadBytesTotal.Add(ctx, sent, attrs)
	}()

	var he *client.HTTPError
	switch {
	case err == nil:
		log.Info().Str("version", f.Version).Int64("bytes", sent).Msg("client version uploaded")
		p.alerts.Notify(fmt.Sprintf("Version %s erfolgreich hochgeladen!", f.Version), alert.Success)
		p.reset()
		_, _ = p.LoadVersionInfo(ctx)
		return nil
	case errors.As(err, &he):
		outcome = "rejected"
		log.Error().Err(err).Int("status", he.StatusCode).Msg("upload rejected")
		p.alerts.Notify("Fehler beim Upload: "+client.DetailOr(err, "Unbekannter Fehler"), alert.Error)
	case client.IsTransport(err):
		outcome = "transport"
		log.Error().Err(err).Msg("upload failed")
		p.alerts.Notify("Netzwerkfehler beim Upload", alert.Error)
	default:
		outcome = "error"
		log.Error().Err(err).Msg("upload failed")
		p.alerts.Notify("Fehler beim Upload: "+err.Error(), alert.Error)
	}
	return err
}

func (p *Pipeline) validate(f Form) (int64, error) {
	if f.Path == "" {
		p.alerts.Notify("Bitte wähle eine EXE-Datei aus", alert.Warning)
		return 0, ErrNoFile
	}

	info, err := os.Stat(f.Path)
	if err != nil || info.IsDir() {
		p.alerts.Notify("Bitte wähle eine EXE-Datei aus", alert.Warning)
		return 0, fmt.Errorf("%w: %s", ErrNoFile, f.Path)
	}

	if !strings.HasSuffix(filepath.Base(f.Path), Suffix) {
		p.alerts.Notify("Nur .exe Dateien sind erlaubt", alert.Error)
		return 0, ErrInvalidFile
	}

	if strings.TrimSpace(f.Version) == "" {
		p.alerts.Notify("Bitte gib eine Version an", alert.Warning)
		return 0, ErrNoVersion
	}

	return info.Size(), nil
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.SubmitEnabled {
		return ErrInFlight
	}
	p.state.SubmitEnabled = false
	p.state.ProgressActive = true
	p.state.Progress = Progress{}
	return nil
}

func (p *Pipeline) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.SubmitEnabled = true
	p.state.ProgressActive = false
}

func (p *Pipeline) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Form = Form{}
	p.state.Progress = Progress{}
}

// send streams the multipart body and returns the artifact bytes read.
func (p *Pipeline) send(ctx context.Context, f Form, size int64) (int64, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	counter := &countingReader{r: file, total: size, report: p.progress}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// The writer must have stopped before the counter is read, otherwise it
	// keeps reporting progress after send returns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile(FieldName, filepath.Base(f.Path))
		if err == nil {
			_, err = io.Copy(part, counter)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	header := http.Header{}
	header.Set(HeaderVersion, headerValue(f.Version))
	if f.Changelog != "" {
		header.Set(HeaderChangelog, headerValue(f.Changelog))
	}

	var result models.UploadResult
	err = p.api.Stream(ctx, client.StreamRequest{
		Method:      http.MethodPost,
		Path:        client.UploadPath,
		Body:        pr,
		ContentType: mw.FormDataContentType(),
		Header:      header,
	}, &result)

	pr.Close()
	<-done

	sent := counter.sent()
	if err != nil {
		return sent, err
	}

	log.Debug().Str("message", result.Message).Int64("fileSize", result.FileSize).Msg("upload confirmed")

	return sent, nil
}

func (p *Pipeline) progress(sent, total int64) {
	pct := 100
	if total > 0 {
		pct = int(sent * 100 / total)
	}

	p.mu.Lock()
	if pct < p.state.Progress.Percent {
		pct = p.state.Progress.Percent
	}
	p.state.Progress = Progress{Sent: sent, Total: total, Percent: pct}
	pr := p.state.Progress
	p.mu.Unlock()

	p.onProgress(pr)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue replaces each line break with a single space, which header
// values cannot carry. All other whitespace is kept.
func headerValue(s string) string {
	return lineBreaks.Replace(s)
}

// LoadVersionInfo fetches and renders the current version. Failures are only
// logged.
func (p *Pipeline) LoadVersionInfo(ctx context.Context) (*models.UpdateInfo, error) {
	info, err := p.api.UpdateInfo(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load version info")
		return nil, err
	}
	p.renderer.Render(VersionTable(info))
	return info, nil
}

// VersionTable renders the current version, or the placeholder when none
// was ever uploaded.
func VersionTable(info *models.UpdateInfo) table.Table {
	t := table.Table{
		Title:   "Aktuelle Version",
		Columns: []string{"VERSION", "VERÖFFENTLICHT", "GRÖSSE", "CHANGELOG"},
		Empty:   "Keine Version hochgeladen",
	}
	if info == nil || info.VersionInfo == nil {
		return t
	}

	v := info.VersionInfo
	changelog := v.Changelog
	if changelog == "" {
		changelog = "Kein Changelog verfügbar"
	}
	t.Rows = [][]string{{"v" + v.Version, format.Date(v.ReleaseDate), format.Bytes(v.FileSize), changelog}}
	if info.ExeExists {
		t.Footer = []string{"Datei vorhanden: " + format.Bytes(info.ExeSize)}
	}
	return t
}

type countingReader struct {
	r      io.Reader
	total  int64
	report func(sent, total int64)

	mu sync.Mutex
	n  int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.mu.Lock()
		c.n += int64(n)
		sent := c.n
		c.mu.Unlock()
		c.report(sent, c.total)
	}
	return n, err
}

func (c *countingReader) sent() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
