// Package demo is the small JSON API served behind the authentication gate
// by entra-demo serve. Handlers never authenticate anything themselves; they
// only read what the gate put in the request context.
package demo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"k8s.io/utils/clock"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/validator"
)

// Endpoints lists the paths served under the mount point.
var Endpoints = []string{"/api/hello", "/api/status", "/api/time"}

type api struct {
	clock   clock.PassiveClock
	started time.Time
}

// Routes returns the demo API. Mount it at /api behind the gate:
//
//	r.With(gate.CheckJWT).Mount("/api", demo.Routes(clock.RealClock{}))
func Routes(clk clock.PassiveClock) http.Handler {
	a := &api{clock: clk, started: clk.Now()}

	r := chi.NewRouter()
	r.Use(cors)
	r.Get("/hello", a.hello)
	r.Post("/hello", a.hello)
	r.Get("/status", a.status)
	r.Get("/time", a.currentTime)
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// cors answers preflight requests itself, for any path.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) hello(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"success":  true,
		"message":  "Hello! Welcome to the demo API!",
		"endpoint": "/api/hello",
		"method":   r.Method,
	}
	if claims, err := jwtmiddleware.GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
		body["caller"] = map[string]any{
			"subject":  claims.Subject,
			"objectId": claims.ObjectID(),
			"tenantId": claims.TenantID(),
			"roles":    claims.Roles(),
		}
	}
	if jwtmiddleware.AuthDisabled(r.Context()) {
		body["authDisabled"] = true
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *api) status(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"status":       "online",
		"server":       "Go/" + runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_usage": fmt.Sprintf("%.2f MB", float64(mem.Alloc)/1024/1024),
		"uptime":       a.clock.Since(a.started).Truncate(time.Second).String(),
	})
}

func (a *api) currentTime(w http.ResponseWriter, _ *http.Request) {
	now := a.clock.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": now.Unix(),
		"datetime":  now.Format(time.DateTime),
		"timezone":  now.Location().String(),
		"iso8601":   now.Format(time.RFC3339),
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success":             false,
		"error":               "Endpoint not found",
		"available_endpoints": Endpoints,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}
