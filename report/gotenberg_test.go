package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "8.5", r.FormValue("paperWidth"))
		assert.Equal(t, "true", r.FormValue("landscape"))

		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		html, _ := io.ReadAll(file)
		assert.Contains(t, string(html), "<h1>Deliveries</h1>")

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	opts := Letter
	opts.Landscape = true
	pdf, err := NewClient(srv.URL+"/", srv.Client()).RenderHTML(context.Background(), "<h1>Deliveries</h1>", opts)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRenderHTMLReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).RenderHTML(context.Background(), "<p/>", Letter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("  ", nil)
	assert.False(t, c.Ready())
	_, err := c.RenderHTML(context.Background(), "<p/>", Letter)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrNotConfigured)
}

func TestPingHandler(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	r := chi.NewRouter()
	NewHandler(NewClient(srv.URL, srv.Client()), slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	healthy.Store(false)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
