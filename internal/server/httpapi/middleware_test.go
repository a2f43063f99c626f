package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get(common.RequestIDHeaderName)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, seen)
}

func TestRequestID_ReusesValidIncoming(t *testing.T) {
	incoming := uuid.NewString()
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(common.RequestIDHeaderName, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, incoming, rec.Header().Get(common.RequestIDHeaderName))
}

func TestRequestID_ReplacesGarbage(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(common.RequestIDHeaderName, "\"; drop table")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, "\"; drop table", rec.Header().Get(common.RequestIDHeaderName))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, "info")

	r := NewRouter()
	r.Use(RequestID(), AccessLog(logger))
	r.HandleFunc(http.MethodGet, "/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "Request handled", line["msg"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(len("short and stout")), line["bytes"])
	assert.Equal(t, "/teapot", line["path"])
	assert.Equal(t, rec.Header().Get(common.RequestIDHeaderName), line["request_id"])
}

func TestRecover(t *testing.T) {
	r := NewRouter()
	r.Use(Recover(logging.Nop{}))
	r.HandleFunc(http.MethodGet, "/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInternal)
}

func TestInstrument(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	r := NewRouter()
	r.Use(Instrument(m))
	r.HandleFunc(http.MethodGet, "/files", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/files", nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /files", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewRouter()
	r.Use(mark("outer"), mark("inner"))
	r.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "outer,inner,handler", strings.Join(order, ","))
}

func TestRouter_UnknownPath(t *testing.T) {
	r := NewRouter()
	r.HandleFunc(http.MethodGet, "/x", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/y", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
