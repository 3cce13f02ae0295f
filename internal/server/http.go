package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPPath is the route of the streamable HTTP MCP endpoint.
const MCPPath = "/mcp"

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves the MCP endpoint, the find-time API and the health
// probes on one listener.
type HTTPServer struct {
	sc         *ServerContext
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	limiter    *RateLimiter
	httpServer *http.Server
	listener   net.Listener
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewHTTPServer creates an HTTPServer. mcpSrv may be nil, in which case the
// MCP endpoint is not mounted.
func NewHTTPServer(sc *ServerContext, mcpSrv *mcpserver.MCPServer, version string) *HTTPServer {
	s := &HTTPServer{
		sc:        sc,
		mcpServer: mcpSrv,
		health:    NewHealthChecker(sc, version),
		stop:      make(chan struct{}),
	}
	srv := sc.Config().Server
	if srv.RateLimit > 0 {
		s.limiter = NewRateLimiter(srv.RateLimit, srv.RateBurst, srv.TrustProxy)
	}
	return s
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler builds the routing tree. Health probes are neither rate limited
// nor counted in request metrics.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	mux.Handle(FindTimePath, s.instrument(FindTimePath, s.limit(FindTimeHandler(s.sc))))

	if s.mcpServer != nil {
		streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath(MCPPath),
		)
		mux.Handle(MCPPath, s.instrument(MCPPath, s.limit(streamable)))
	}
	return mux
}

func (s *HTTPServer) limit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(next)
}

// instrument records request counts and durations under the route, never
// the raw URL.
func (s *HTTPServer) instrument(route string, next http.Handler) http.Handler {
	metrics := s.sc.Metrics()
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, time.Since(start))
	})
}

// Start serves on addr until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal binds addr, closes ready once the listener accepts
// connections and serves until Shutdown.
func (s *HTTPServer) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	if s.limiter != nil {
		go s.limiter.RunCleanup(defaultLimiterCleanupInterval, s.stop)
	}
	if ready != nil {
		close(ready)
	}

	s.sc.Logger().Info("starting HTTP server", "addr", ln.Addr().String(), "mcp_path", MCPPath, "api_path", FindTimePath)
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains open connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Flush keeps streamed MCP responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
