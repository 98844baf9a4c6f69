package mw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/marks/internal/httpapi/mw"
	"github.com/nikbrunner/marks/internal/logger"
)

type observed struct {
	Method, Route string
	Status        int
}

type recorder struct{ calls []observed }

func (r *recorder) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &recorder{}
	r := chi.NewRouter()
	r.Use(mw.Metrics(rec))
	r.Get("/api/folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/folders/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok", nil))

	assert.DeepEqual(t, rec.calls, []observed{
		{"GET", "/api/folders/{id}", http.StatusTeapot},
		{"GET", "/ok", http.StatusOK},
	})
}

func TestLog_WritesOneLinePerRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.FromZap(zap.New(core))

	h := mw.Log(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/bookmarks", nil))

	entries := logs.FilterMessage("http_request").All()
	assert.Equal(t, len(entries), 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, fields["method"], "POST")
	assert.Equal(t, fields["path"], "/api/bookmarks")
	assert.Equal(t, fields["status"], int64(http.StatusCreated))
	assert.Equal(t, fields["bytes"], int64(5))
}
