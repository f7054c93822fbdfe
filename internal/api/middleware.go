package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/unalkalkan/NovelShelf/internal/logging"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed runs first
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns a panicking handler into a 500 envelope
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.LoggerFromContext(r.Context()).Error("panic recovered",
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)
				respondJSON(w, Response{
					Success: false,
					Message: "Internal server error",
					Error:   fmt.Sprint(rec),
				}, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows credentialed cross-origin requests from the listed origins.
// Requests from other origins get no CORS headers and preflights are refused.
func CORS(origins []string) Middleware {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(o, "/"); o != "" {
			allowed[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")

			if !allowed[origin] {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-Match, If-None-Match, X-Request-ID")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSPConfig holds the Content-Security-Policy sources
type CSPConfig struct {
	DefaultSrc []string
	ScriptSrc  []string
	StyleSrc   []string
	ImgSrc     []string
	ConnectSrc []string
}

// NewCSPConfig allows images from the API and connections to the API and
// the front-end.
func NewCSPConfig(apiBase, frontend string) CSPConfig {
	self := "'self'"
	cfg := CSPConfig{
		DefaultSrc: []string{self},
		ScriptSrc:  []string{self},
		StyleSrc:   []string{self},
		ImgSrc:     []string{self, "data:"},
		ConnectSrc: []string{self},
	}
	if apiBase != "" {
		cfg.ImgSrc = append(cfg.ImgSrc, apiBase)
		cfg.ConnectSrc = append(cfg.ConnectSrc, apiBase)
	}
	if frontend != "" {
		cfg.ConnectSrc = append(cfg.ConnectSrc, frontend)
	}
	return cfg
}

// Header builds the Content-Security-Policy header value
func (c CSPConfig) Header() string {
	var directives []string
	add := func(name string, sources []string) {
		if len(sources) > 0 {
			directives = append(directives, name+" "+strings.Join(sources, " "))
		}
	}
	add("default-src", c.DefaultSrc)
	add("script-src", c.ScriptSrc)
	add("style-src", c.StyleSrc)
	add("img-src", c.ImgSrc)
	add("connect-src", c.ConnectSrc)
	return strings.Join(directives, "; ")
}

// SecurityHeaders sets the hardening headers. Every response may be
// embedded cross-origin.
func SecurityHeaders(csp CSPConfig) Middleware {
	policy := csp.Header()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")
			if policy != "" {
				h.Set("Content-Security-Policy", policy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
