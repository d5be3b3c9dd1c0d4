package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/GlensonAnsin/lumina/internal/auth"
	"github.com/GlensonAnsin/lumina/internal/config"
	"github.com/GlensonAnsin/lumina/internal/httpapi"
	"github.com/GlensonAnsin/lumina/internal/maintenance"
	"github.com/GlensonAnsin/lumina/internal/obs"
	"github.com/GlensonAnsin/lumina/internal/storage"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)
	obs.SetLogLevel(cfg.LogLevel)

	// Connect lazily; /readyz pings the pool.
	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var store auth.Store
	if db != nil {
		store = auth.NewPGStore(db)
	}

	var svc *auth.Service
	if store != nil {
		svc, err = auth.NewService(store, cfg.JWTSecret,
			auth.WithAccessTTL(cfg.AccessTTL),
			auth.WithRefreshTTL(cfg.RefreshTTL),
		)
		if err != nil {
			log.Fatalf("auth service: %v", err)
		}
	}

	uploads, err := storage.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}

	maint, err := maintenance.New(cfg.MaintenanceLock, cfg.MaintenanceSecret)
	if err != nil {
		log.Fatalf("maintenance switch: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:        svc,
		Uploads:     uploads,
		Maintenance: maint,
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Version:     version,
		CORSOrigin:  cfg.CORSOrigin,
		RateBurst:   cfg.RateBurst,
		RatePerSec:  cfg.RatePerSec,
		LoginLimit:  cfg.LoginLimit,
		LoginWindow: cfg.LoginWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting lumina-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
