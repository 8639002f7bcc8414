package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demodrop/config"
	"demodrop/db"
	"demodrop/logger"
	"demodrop/repository"
	"demodrop/storage"

	"github.com/gorilla/mux"
)

// Start wires the store, filesystem and handlers together and runs the HTTP
// server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer database.Close()

	if err := db.InitSchema(database, cfg.DBDriver); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.ErrorField(err))
	}

	store := storage.NewAudioStore(cfg.AudioUploadDir)
	if err := store.EnsureDir(); err != nil {
		logger.Fatal("Failed to create upload directory", logger.ErrorField(err))
	}

	trackRepo := repository.NewSQLTrackRepository(database)
	apiHandler := NewAPIHandler(trackRepo, store, cfg)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: NewRouter(apiHandler, cfg.CORSAllowOrigin),
		// Uploads may be slow; only the header read and idle connections are
		// bounded here.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// NewRouter builds the full HTTP handler: routes, request logging and CORS.
// The CORS middleware wraps the router from the outside so preflight OPTIONS
// requests are answered for any path, registered or not.
func NewRouter(h *APIHandler, allowOrigin string) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/upload", h.UploadTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/audio/{filename}", h.StreamAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/audio/{filename}", h.DeleteAudioHandler).Methods(http.MethodDelete)
	router.HandleFunc("/demo/{demo_id}", h.StreamDemoHandler).Methods(http.MethodGet)
	router.HandleFunc("/demo_details/{demo_id}", h.DemoDetailsHandler).Methods(http.MethodGet)

	return corsMiddleware(allowOrigin)(requestLogMiddleware(router))
}

func corsMiddleware(allowOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, user_id")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("Request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)),
		)
	})
}
