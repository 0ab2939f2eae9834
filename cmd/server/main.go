package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitloop/internal/cache"
	"habitloop/internal/calendar"
	"habitloop/internal/db"
	"habitloop/internal/handlers"
	"habitloop/internal/mailer"
	mw "habitloop/internal/middleware"
	"habitloop/internal/progress"
	"habitloop/internal/stats"
	"habitloop/internal/store"
)

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}
	port := getenv("PORT", "8080")

	ctx := context.Background()

	// Stores: postgres when configured, otherwise the in-memory store so the
	// API stays usable for local development.
	var (
		users     store.UserStore
		habits    store.HabitStore
		progressS store.ProgressStore
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		conn, err := db.Connect(ctx, dsn)
		if err != nil {
			logger.Fatal("connect database", zap.Error(err))
		}
		defer conn.Close()
		if err := db.RunMigrations(ctx, conn, logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
		pg := store.NewPostgres(conn, logger)
		users, habits, progressS = pg, pg, pg
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		mem := store.NewMemory()
		users, habits, progressS = mem, mem, mem
	}

	var months cache.MonthCache = cache.NewNoop()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redis := cache.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), 0, logger)
		if err := redis.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, month cache disabled", zap.Error(err))
		} else {
			defer redis.Close()
			months = redis
		}
	}

	var mail mailer.Mailer = mailer.NewLog(logger)
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		mail = mailer.NewResend(
			apiKey,
			getenv("MAIL_FROM", "HabitLoop <noreply@habitloop.app>"),
			getenv("BASE_URL", "http://localhost:"+port),
			logger,
		)
	}

	authMW := mw.NewAuthMiddleware([]byte(jwtSecret))
	toggler := progress.NewToggler(habits, progressS, months, logger)
	aggregator := calendar.NewAggregator(habits, progressS, months, logger)
	calculator := stats.NewCalculator(habits, progressS, logger)

	authH := handlers.NewAuthHandler(users, mail, authMW, logger)
	habitH := handlers.NewHabitHandler(habits, logger)
	progressH := handlers.NewProgressHandler(habits, progressS, toggler, logger)
	calendarH := handlers.NewCalendarHandler(aggregator, logger)
	statsH := handlers.NewStatsHandler(calculator, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", authH.Signup)
			auth.Post("/login", authH.Login)
			auth.Get("/verify-email", authH.VerifyEmail)
			auth.Post("/resend-validation", authH.ResendValidation)
		})
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Route("/habits", func(h chi.Router) {
				h.Get("/", habitH.List)
				h.Post("/", habitH.Create)
				h.Get("/history", calendarH.History)
				h.Get("/calendar", calendarH.GetMonth)
				h.Route("/{habitID}", func(one chi.Router) {
					one.Get("/", habitH.Get)
					one.Put("/", habitH.Update)
					one.Delete("/", habitH.Delete)
					one.Post("/progress", progressH.Toggle)
					one.Get("/progress", progressH.Get)
				})
			})
			pr.Get("/profile/stats", statsH.Profile)
		})
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
