package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevinaaaquil/bookreviews/config"
	"github.com/kevinaaaquil/bookreviews/handlers"
	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/service"
	"github.com/kevinaaaquil/bookreviews/store"
	"github.com/kevinaaaquil/bookreviews/store/memory"
	"golang.org/x/oauth2"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync()

	ctx := context.Background()
	var st service.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit")
		st = memory.New()
	default:
		db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
		if err != nil {
			log.Fatal("mongodb connect", "error", err)
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				log.Error("mongodb disconnect", "error", err)
			}
		}()
		if err := db.EnsureIndexes(ctx); err != nil {
			log.Fatal("mongodb indexes", "error", err)
		}
		log.Info("connected to MongoDB", "db", cfg.DBName)
		st = db
	}

	var covers service.CoverStorage
	if cfg.S3Bucket != "" {
		s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3", "error", err)
		}
		covers = s3Service
	} else {
		log.Warn("AWS_S3_BUCKET not set; cover uploads are disabled")
	}

	var oauthCfg *oauth2.Config
	if cfg.GoogleEnabled() {
		oauthCfg = handlers.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		log.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set; sign-in is disabled")
	}

	aggregator := service.NewRatingAggregator(st)
	router := handlers.NewRouter(handlers.Deps{
		Log:        log,
		Dev:        !cfg.Production(),
		CORSOrigin: cfg.CORSOrigin,
		Store:      st,
		Sessions: &middleware.Sessions{
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
			Secure: cfg.CookieSecure,
		},
		Books:         service.NewBooks(st, covers, log),
		Reviews:       service.NewReviews(st, aggregator, log),
		OAuth:         oauthCfg,
		MaxCoverBytes: cfg.MaxCoverBytes,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
