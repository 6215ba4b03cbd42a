package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/table"
)

type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

type received struct {
	version   string
	changelog string
	auth      string
	filename  string
	content   []byte
}

func writeArtifact(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x4d}, size), 0600))
	return path
}

func newClient(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.ServerURL = srv.URL
	c, err := client.New(cfg, staticToken("tok"), client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func newBackend(t *testing.T, uploadStatus int, uploadBody string) (*httptest.Server, *received) {
	t.Helper()
	got := &received{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+client.UploadPath, func(w http.ResponseWriter, r *http.Request) {
		got.version = r.Header.Get(HeaderVersion)
		got.changelog = r.Header.Get(HeaderChangelog)
		got.auth = r.Header.Get("Authorization")

		file, header, err := r.FormFile(FieldName)
		if err == nil {
			got.filename = header.Filename
			got.content, _ = io.ReadAll(file)
		}

		w.WriteHeader(uploadStatus)
		_, _ = w.Write([]byte(uploadBody))
	})
	mux.HandleFunc("GET /api/admin/updates/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version_info": {"version": "1.2.3", "release_date": "2025-03-01T14:05:09", "file_size": 2048, "changelog": ""}, "exe_exists": true, "exe_size": 2048}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, got
}

type tableRecorder struct {
	mu     sync.Mutex
	tables []table.Table
}

func (r *tableRecorder) Render(t table.Table) {
	r.mu.Lock()
	r.tables = append(r.tables, t)
	r.mu.Unlock()
}

func newPipeline(api API, opts ...Option) (*Pipeline, *alert.Recorder) {
	rec := &alert.Recorder{}
	return New(api, alert.New(rec, alert.WithClock(clockwork.NewFakeClock())), opts...), rec
}

func requireReenabled(t *testing.T, p *Pipeline) {
	t.Helper()
	s := p.State()
	require.True(t, s.SubmitEnabled, "submit control must be re-enabled")
	require.False(t, s.ProgressActive, "progress indicator must not stay active")
}

func lastAlert(t *testing.T, rec *alert.Recorder) alert.Alert {
	t.Helper()
	a, ok := rec.Last()
	require.True(t, ok)
	return a
}

func TestUploadSuccess(t *testing.T) {
	srv, got := newBackend(t, http.StatusOK, `{"success": true, "message": "ok", "file_size": 4096}`)
	path := writeArtifact(t, "FunkClient.exe", 4096)

	var mu sync.Mutex
	var updates []Progress
	versions := &tableRecorder{}
	p, rec := newPipeline(newClient(t, srv),
		WithProgress(func(pr Progress) {
			mu.Lock()
			updates = append(updates, pr)
			mu.Unlock()
		}),
		WithVersionRenderer(versions),
	)

	err := p.Upload(context.Background(), Form{Path: path, Version: "1.2.3", Changelog: "Fixes\nmore fixes"})
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", got.version)
	assert.Equal(t, "Fixes more fixes", got.changelog)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "FunkClient.exe", got.filename)
	assert.Len(t, got.content, 4096)

	a := lastAlert(t, rec)
	require.Equal(t, "Version 1.2.3 erfolgreich hochgeladen!", a.Message)
	require.Equal(t, alert.Success, a.Severity)

	requireReenabled(t, p)
	require.Equal(t, Form{}, p.State().Form, "form resets after success")

	// version info reloaded after success
	require.Len(t, versions.tables, 1)
	require.Equal(t, "v1.2.3", versions.tables[0].Rows[0][0])

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates)
	for i := 1; i < len(updates); i++ {
		require.GreaterOrEqual(t, updates[i].Percent, updates[i-1].Percent)
	}
	require.Equal(t, 100, updates[len(updates)-1].Percent)
	require.Equal(t, int64(4096), updates[len(updates)-1].Sent)
}

func TestUploadHTTPFailure(t *testing.T) {
	srv, _ := newBackend(t, http.StatusBadRequest, `{"detail": "Version header missing"}`)
	path := writeArtifact(t, "FunkClient.exe", 128)
	p, rec := newPipeline(newClient(t, srv))

	form := Form{Path: path, Version: "1.2.3"}
	err := p.Upload(context.Background(), form)

	var he *client.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, "Fehler beim Upload: Version header missing", lastAlert(t, rec).Message)
	requireReenabled(t, p)
	require.Equal(t, form, p.State().Form, "form is kept for a retry")
}

func TestUploadTransportFailure(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{}`)
	c := newClient(t, srv)
	srv.Close()

	path := writeArtifact(t, "FunkClient.exe", 128)
	p, rec := newPipeline(c)

	err := p.Upload(context.Background(), Form{Path: path, Version: "1.2.3"})
	require.True(t, client.IsTransport(err))
	require.Equal(t, "Netzwerkfehler beim Upload", lastAlert(t, rec).Message)
	requireReenabled(t, p)
}

func TestUploadValidation(t *testing.T) {
	exe := writeArtifact(t, "FunkClient.exe", 16)
	zip := writeArtifact(t, "FunkClient.zip", 16)

	tests := []struct {
		name     string
		form     Form
		err      error
		severity alert.Severity
	}{
		{name: "no file", form: Form{Version: "1"}, err: ErrNoFile, severity: alert.Warning},
		{name: "missing file", form: Form{Path: filepath.Join(t.TempDir(), "gone.exe"), Version: "1"}, err: ErrNoFile, severity: alert.Warning},
		{name: "wrong suffix", form: Form{Path: zip, Version: "1"}, err: ErrInvalidFile, severity: alert.Error},
		{name: "no version", form: Form{Path: exe}, err: ErrNoVersion, severity: alert.Warning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{}
			p, rec := newPipeline(api)

			require.ErrorIs(t, p.Upload(context.Background(), tt.form), tt.err)
			require.Equal(t, tt.severity, lastAlert(t, rec).Severity)
			require.Zero(t, api.streams, "no request may be issued")
			requireReenabled(t, p)
		})
	}
}

// stubAPI blocks uploads until release is closed.
type stubAPI struct {
	mu      sync.Mutex
	streams int
	started chan struct{}
	release chan struct{}
}

func (s *stubAPI) Stream(ctx context.Context, req client.StreamRequest, out any) error {
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	_, err := io.Copy(io.Discard, req.Body)
	return err
}

func (s *stubAPI) UpdateInfo(context.Context) (*models.UpdateInfo, error) {
	return &models.UpdateInfo{}, nil
}

// abortingAPI reads part of the body and then fails, like a server that
// drops the connection mid upload.
type abortingAPI struct {
	read int64
}

func (a *abortingAPI) Stream(ctx context.Context, req client.StreamRequest, out any) error {
	_, _ = io.CopyN(io.Discard, req.Body, a.read)
	return &client.TransportError{Err: io.ErrUnexpectedEOF}
}

func (a *abortingAPI) UpdateInfo(context.Context) (*models.UpdateInfo, error) {
	return &models.UpdateInfo{}, nil
}

func TestUploadAbortStopsProgress(t *testing.T) {
	var calls atomic.Int64
	p, _ := newPipeline(&abortingAPI{read: 4096}, WithProgress(func(Progress) { calls.Add(1) }))
	path := writeArtifact(t, "FunkClient.exe", 4<<20)

	require.Error(t, p.Upload(context.Background(), Form{Path: path, Version: "2.0.0"}))
	requireReenabled(t, p)

	after := calls.Load()
	require.Never(t, func() bool { return calls.Load() != after }, 100*time.Millisecond, 10*time.Millisecond,
		"no progress may be reported once Upload returned")
}

func TestHeaderValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Fixes", want: "Fixes"},
		{name: "crlf", in: "a\r\nb", want: "a b"},
		{name: "lone cr and lf", in: "a\rb\nc", want: "a b c"},
		{name: "keeps tabs and runs of spaces", in: "a\tb  c\r\nd", want: "a\tb  c d"},
		{name: "keeps edges", in: " x \n", want: " x  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, headerValue(tt.in))
		})
	}
}

func TestUploadSingleInFlight(t *testing.T) {
	api := &stubAPI{started: make(chan struct{}), release: make(chan struct{})}
	p, _ := newPipeline(api)
	path := writeArtifact(t, "FunkClient.exe", 64)

	done := make(chan error, 1)
	go func() {
		done <- p.Upload(context.Background(), Form{Path: path, Version: "2.0.0"})
	}()

	select {
	case <-api.started:
	case <-time.After(time.Second):
		t.Fatal("upload did not start")
	}

	s := p.State()
	require.False(t, s.SubmitEnabled)
	require.True(t, s.ProgressActive)
	require.ErrorIs(t, p.Submit(context.Background()), ErrInFlight)

	close(api.release)
	require.NoError(t, <-done)
	requireReenabled(t, p)
}

func TestVersionTable(t *testing.T) {
	empty := VersionTable(&models.UpdateInfo{})
	require.True(t, empty.IsPlaceholder())
	require.Equal(t, [][]string{{"Keine Version hochgeladen"}}, empty.Body())

	require.True(t, VersionTable(nil).IsPlaceholder())

	ts, err := models.ParseTimestamp("2025-03-01 14:05:09")
	require.NoError(t, err)
	tbl := VersionTable(&models.UpdateInfo{VersionInfo: &models.VersionInfo{Version: "1.0.0", ReleaseDate: ts, FileSize: 1536}})
	require.Equal(t, []string{"v1.0.0", tbl.Rows[0][1], "1.5 KiB", "Kein Changelog verfügbar"}, tbl.Rows[0])
}

func TestProgressString(t *testing.T) {
	require.Equal(t, "50% (512 B / 1.0 KiB)", Progress{Sent: 512, Total: 1024, Percent: 50}.String())
}
