package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string
	pattern string
	handler http.Handler
}

// Router dispatches on method and path. Exact routes win over wildcard routes;
// wildcard routes are tried in registration order, so register the more
// specific ones first.
type Router struct {
	routes []route
}

func New() *Router {
	return &Router{}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	h, pathKnown := r.match(req.Method, req.URL.Path)
	switch {
	case h != nil:
		h.ServeHTTP(lrw, req)
	case pathKnown:
		http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
	default:
		http.Error(lrw, "Not Found", http.StatusNotFound)
	}

	entry := log.WithFields(log.Fields{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   lrw.statusCode,
		"duration": time.Since(start),
	})
	if lrw.statusCode >= http.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request served")
	}
}

// match returns the handler for method and path, and whether any route
// matches the path regardless of method.
func (r *Router) match(method, path string) (http.Handler, bool) {
	pathKnown := false
	for _, rt := range r.routes {
		if rt.pattern != path {
			continue
		}
		pathKnown = true
		if rt.method == "" || rt.method == method {
			return rt.handler, true
		}
	}
	for _, rt := range r.routes {
		if !strings.Contains(rt.pattern, "*") || !matchWildcardRoute(path, rt.pattern) {
			continue
		}
		pathKnown = true
		if rt.method == "" || rt.method == method {
			return rt.handler, true
		}
	}
	return nil, pathKnown
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern.
// A trailing "*" matches any number of remaining segments; any other "*"
// matches exactly one segment.
func matchWildcardRoute(requestPath, routePattern string) bool {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	if len(routeSegments) > 0 && routeSegments[len(routeSegments)-1] == "*" {
		if len(requestSegments) < len(routeSegments)-1 {
			return false
		}
		for i := 0; i < len(routeSegments)-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return true
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

func (r *Router) register(method, path string, handler http.Handler) {
	r.routes = append(r.routes, route{method: method, pattern: path, handler: handler})
}

func (r *Router) GET(path string, handler HandlerFunc) {
	r.register(http.MethodGet, path, http.HandlerFunc(handler))
}

func (r *Router) POST(path string, handler HandlerFunc) {
	r.register(http.MethodPost, path, http.HandlerFunc(handler))
}

func (r *Router) PUT(path string, handler HandlerFunc) {
	r.register(http.MethodPut, path, http.HandlerFunc(handler))
}

func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, http.HandlerFunc(handler))
}

// Handle mounts handler for every method on path.
func (r *Router) Handle(path string, handler http.Handler) {
	r.register("", path, handler)
}

// Routes lists the registered routes as "METHOD pattern" in registration order.
func (r *Router) Routes() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		method := rt.method
		if method == "" {
			method = "*"
		}
		out = append(out, method+" "+rt.pattern)
	}
	return out
}

// Start serves on addr until ctx is cancelled, then shuts the server down
// gracefully.
func (r *Router) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", addr).Info("http server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "serving on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down http server")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithStack(err)
	}
	log.Info("http server stopped")
	return nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
