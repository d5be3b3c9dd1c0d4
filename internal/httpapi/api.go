package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/GlensonAnsin/lumina/internal/auth"
	"github.com/GlensonAnsin/lumina/internal/maintenance"
	"github.com/GlensonAnsin/lumina/internal/obs"
	"github.com/GlensonAnsin/lumina/internal/storage"
)

// ReadyProbe pings the database for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries everything the HTTP layer depends on.
type Options struct {
	Auth        *auth.Service
	Uploads     *storage.Store
	Maintenance *maintenance.Switch
	ReadyProbe  ReadyProbe
	Version     string
	CORSOrigin  string

	RateBurst   int
	RatePerSec  int
	LoginLimit  int
	LoginWindow time.Duration
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	uploads    *storage.Store
	maint      *maintenance.Switch
	readyProbe ReadyProbe
	version    string
	corsOrigin string

	rateBurst   int
	ratePerSec  int
	loginLimit  int
	loginWindow time.Duration
}

// New wires routes onto a fresh mux.
func New(opts Options) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        opts.Auth,
		uploads:     opts.Uploads,
		maint:       opts.Maintenance,
		readyProbe:  opts.ReadyProbe,
		version:     opts.Version,
		corsOrigin:  opts.CORSOrigin,
		rateBurst:   opts.RateBurst,
		ratePerSec:  opts.RatePerSec,
		loginLimit:  opts.LoginLimit,
		loginWindow: opts.LoginWindow,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.loginLimit <= 0 {
		a.loginLimit = 5
	}
	if a.loginWindow <= 0 {
		a.loginWindow = time.Hour
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth; login carries its own stricter limiter
	a.mux.Handle("/v1/auth/login", a.loginRateLimit(http.HandlerFunc(a.handleLogin)))
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// users + uploads
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/uploads", a.handleUpload)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux. Maintenance sits
// outermost so a locked service answers 503 before any other work happens.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RequestID(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 10<<20)
	h = CORS(h, a.corsOrigin)
	h = SecurityHeaders(h)
	h = a.Maintenance(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "lumina-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "lumina-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
