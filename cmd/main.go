package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixbah/pdfi/cmd/controllers"
	"github.com/mixbah/pdfi/internal/config"
	"github.com/mixbah/pdfi/internal/logger"
	"github.com/mixbah/pdfi/internal/repo"
	"github.com/mixbah/pdfi/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "config.json"
	summarizerTimeout = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

type routeRegistrar interface {
	RegisterRoutes(router *gin.Engine) error
}

func main() {
	_ = godotenv.Load(".env")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	stores, err := repo.NewProvider(repo.Opener(cfg))
	if err != nil {
		zlog.Fatal("create store provider", zap.Error(err))
	}

	summarizer, err := services.NewSummarizer(cfg, &http.Client{Timeout: summarizerTimeout})
	if err != nil {
		zlog.Fatal("create summarizer", zap.Error(err))
	}
	if err := summarizer.Ready(); err != nil {
		zlog.Warn("summarizer not ready; uploads will fail until configured", zap.String("provider", summarizer.Name()), zap.Error(err))
	}

	logService, err := services.NewLogService(stores)
	if err != nil {
		zlog.Fatal("create log service", zap.Error(err))
	}

	var closers []func() error
	var documentOpts []services.DocumentOption
	var events services.EventPublisher

	if cfg.RedisAddr != "" {
		cache, err := services.NewRedisCache(cfg.RedisAddr, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
		if err != nil {
			zlog.Fatal("create redis cache", zap.Error(err))
		}
		documentOpts = append(documentOpts, services.WithSummaryCache(cache))
		closers = append(closers, cache.Close)
		zlog.Info("summary cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		publisher, err := services.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			zlog.Fatal("create kafka publisher", zap.Error(err))
		}
		events = publisher
		documentOpts = append(documentOpts, services.WithEventPublisher(publisher))
		closers = append(closers, publisher.Close)
		zlog.Info("document events enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	if cfg.MinioEndpoint != "" {
		archive, err := services.NewMinioArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			zlog.Fatal("create minio archive", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := archive.EnsureBucket(ctx); err != nil {
			zlog.Warn("ensure upload bucket", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
		}
		cancel()
		documentOpts = append(documentOpts, services.WithUploadArchiver(archive))
		zlog.Info("upload archive enabled", zap.String("endpoint", cfg.MinioEndpoint), zap.String("bucket", cfg.MinioBucket))
	}

	documentService, err := services.NewDocumentService(summarizer, stores, logService, zlog.Named("documents"), documentOpts...)
	if err != nil {
		zlog.Fatal("create document service", zap.Error(err))
	}

	historyService, err := services.NewHistoryService(stores, logService, events, zlog.Named("history"))
	if err != nil {
		zlog.Fatal("create history service", zap.Error(err))
	}

	exportService, err := services.NewExportService(historyService, logService)
	if err != nil {
		zlog.Fatal("create export service", zap.Error(err))
	}

	processController, err := controllers.NewProcessController(documentService, cfg.MaxUploadBytes(), zlog.Named("process"))
	if err != nil {
		zlog.Fatal("create process controller", zap.Error(err))
	}

	historyController, err := controllers.NewHistoryController(historyService, exportService)
	if err != nil {
		zlog.Fatal("create history controller", zap.Error(err))
	}

	activityController, err := controllers.NewActivityController(logService)
	if err != nil {
		zlog.Fatal("create activity controller", zap.Error(err))
	}

	pagesController, err := controllers.NewPagesController(documentService, historyService, historyService, cfg.MaxUploadBytes(), zlog.Named("pages"))
	if err != nil {
		zlog.Fatal("create pages controller", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), controllers.RequestLogger(zlog.Named("http")), controllers.CORS(cfg.CORSOrigin), controllers.NoStore())

	if err := controllers.RegisterHealthRoutes(router, stores); err != nil {
		zlog.Fatal("register health routes", zap.Error(err))
	}
	for _, registrar := range []routeRegistrar{processController, historyController, activityController, pagesController} {
		if err := registrar.RegisterRoutes(router); err != nil {
			zlog.Fatal("register routes", zap.Error(err))
		}
	}

	retention, err := services.NewRetentionJob(logService, cfg.LogRetentionDays, zlog.Named("retention"))
	if err != nil {
		zlog.Fatal("create retention job", zap.Error(err))
	}
	scheduler, err := retention.Start()
	if err != nil {
		zlog.Fatal("start retention job", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", cfg.Addr), zap.String("summarizer", summarizer.Name()), zap.String("db_driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("run server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("shutdown server", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	pagesController.Wait()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Warn("close dependency", zap.Error(err))
		}
	}
	if err := stores.Close(shutdownCtx); err != nil {
		zlog.Warn("close store", zap.Error(err))
	}
}
