package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	api "github.com/mind-engage/examhub/internal/api/http"
	"github.com/mind-engage/examhub/internal/attempt"
	auth "github.com/mind-engage/examhub/internal/auth/middleware"
	"github.com/mind-engage/examhub/internal/config"
	"github.com/mind-engage/examhub/internal/db"
	"github.com/mind-engage/examhub/internal/exam"
	"github.com/mind-engage/examhub/internal/metrics"
	syncx "github.com/mind-engage/examhub/internal/sync"
)

type eventLog interface {
	attempt.EventSink
	api.EventReader
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.FromEnv()

	// --- Storage ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		store    exam.Store
		profiles auth.ProfileStore
		events   eventLog
		dbh      *sql.DB
	)
	if cfg.DBDriver == "memory" {
		store = exam.NewInMemoryStore()
		profiles = auth.NewMemoryProfiles()
		events = &syncx.MemoryLog{}
	} else {
		var err error
		dbh, err = db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer dbh.Close()
		store = exam.NewSQLStore(dbh, cfg.DBDriver)
		profiles = auth.NewSQLProfiles(dbh)
		events = syncx.NewEventRepo(dbh)
	}
	if cfg.SeedDevProfiles {
		if err := auth.SeedDevProfiles(ctx, profiles); err != nil {
			log.Fatalf("seed profiles: %v", err)
		}
	}

	// --- Attempt engine ---
	m := metrics.New()
	opts := []attempt.Option{attempt.WithMetrics(m), attempt.WithEvents(events, cfg.SiteID)}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		opts = append(opts, attempt.WithLocker(attempt.NewRedisLocker(rdb, cfg.LockTTL)))
		log.Printf("attempt locks via redis %s", cfg.RedisAddr)
	}
	engine := attempt.NewEngine(store, opts...)
	defer engine.Close()

	sweeper, err := attempt.NewSweeper(engine, cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("sweeper schedule %q: %v", cfg.SweepSchedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	catalog := exam.NewCatalog(store).WithEvents(events, cfg.SiteID)
	catalog.OnSave(engine.ExamChanged)

	// --- Auth (local JWT for offline/dev) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, profiles))
	}

	// Protected API (JWT → role from profile → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromProfiles(profiles, cfg.AllowClaimRole))
		api.Mount(pr, api.Deps{
			Catalog: catalog,
			Engine:  engine,
			Events:  events,
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			if err := dbh.PingContext(r.Context()); err != nil {
				http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})
	r.Handle("/metrics", m.Handler())

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		shutdown, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		_ = s.Shutdown(shutdown)
	}()

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
