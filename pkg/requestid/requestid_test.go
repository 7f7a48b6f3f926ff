package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/logger"
	"github.com/dmitrymomot/hapticqueue/pkg/requestid"
)

func serve(t *testing.T, h http.Handler, header, value string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	wrapped := h
	if wrapped == nil {
		wrapped = requestid.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))
	}
	req := httptest.NewRequest(http.MethodPost, "/commands", nil)
	if value != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates an id", func(t *testing.T) {
		t.Parallel()
		rec, seen := serve(t, nil, requestid.Header, "")
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestid.Header))
	})

	t.Run("reuses a valid client id", func(t *testing.T) {
		t.Parallel()
		rec, seen := serve(t, nil, requestid.Header, "stream-42_a")
		assert.Equal(t, "stream-42_a", seen)
		assert.Equal(t, "stream-42_a", rec.Header().Get(requestid.Header))
	})

	t.Run("replaces malformed ids", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"a b", "<script>", "x/y", strings.Repeat("a", 129)} {
			_, seen := serve(t, nil, requestid.Header, bad)
			assert.NotEqual(t, bad, seen)
			assert.True(t, requestid.Valid(seen))
		}
	})

	t.Run("custom header and generator", func(t *testing.T) {
		t.Parallel()
		var seen string
		h := requestid.Middleware(
			requestid.WithHeader("X-Trace"),
			requestid.WithGenerator(func() string { return "fixed" }),
		)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))
		rec, _ := serve(t, h, "X-Trace", "")
		assert.Equal(t, "fixed", seen)
		assert.Equal(t, "fixed", rec.Header().Get("X-Trace"))
		assert.Empty(t, rec.Header().Get(requestid.Header))
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()
	assert.Empty(t, requestid.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled
	assert.Empty(t, requestid.FromContext(nil))
	assert.Equal(t, "abc", requestid.FromContext(requestid.WithContext(context.Background(), "abc")))
}

func TestLogExtractor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithJSONFormatter(),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "enqueued")
	log.InfoContext(context.Background(), "no id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"req-1"`)
	assert.NotContains(t, lines[1], "request_id")
}
