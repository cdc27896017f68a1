package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DeusData/local-system-mcp/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Endpoint paths.
const (
	SSEPath        = "/sse"
	StreamablePath = "/mcp"
	HealthPath     = "/healthz"
)

// quietPaths are polled by some MCP clients on every connect; their 404s are
// not worth a log line.
var quietPaths = map[string]bool{
	"/api/agents/register": true,
}

// Router returns the HTTP handler for the sse and http transports. The
// streamable endpoint is always mounted; sse mode adds the SSE endpoint.
func Router(srv *mcp.Server, mode string) http.Handler {
	getServer := func(*http.Request) *mcp.Server { return srv }

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle(StreamablePath, mcp.NewStreamableHTTPHandler(getServer, nil))
	if mode == config.TransportSSE {
		r.Handle(SSEPath, mcp.NewSSEHandler(getServer, nil))
	}
	return r
}

// AccessLog logs one line per request once the handler returns. For SSE
// streams that is when the client disconnects.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if suppressed(r.URL.Path, status) {
			return
		}
		slog.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func suppressed(path string, status int) bool {
	return status == http.StatusNotFound && quietPaths[path]
}
