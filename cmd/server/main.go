package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"legalmind/internal/api"
	"legalmind/internal/chat"
	"legalmind/internal/config"
	"legalmind/internal/database/milvus"
	"legalmind/internal/database/minio"
	"legalmind/internal/database/mysql"
	"legalmind/internal/embedding"
	"legalmind/internal/jobs"
	"legalmind/internal/llm"
	"legalmind/internal/rag/extractors"
	"legalmind/internal/rag/retrieval"
	"legalmind/internal/rag/vectorstore"
	"legalmind/internal/storage"
	"legalmind/internal/store"
	"legalmind/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("server")

	db, err := mysql.GetDB(&cfg.MySQL)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to connect to MySQL")
	}
	st := store.NewStore(db)
	if err := st.AutoMigrate(); err != nil {
		serviceLogger.WithError(err).Fatal("Failed to migrate database schema")
	}
	serviceLogger.Info("Successfully connected to MySQL")

	minioClient, err := minio.GetClient(&cfg.MinIO)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to connect to MinIO")
	}
	objects := storage.NewMinioStore(minioClient, cfg.MinIO.Bucket)
	serviceLogger.Info("Successfully connected to MinIO")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	milvusClient, err := milvus.GetClient(ctx, &cfg.Milvus)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to connect to Milvus")
	}
	index, err := vectorstore.NewMilvusIndex(milvusClient, serviceLogger)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to initialize vector index")
	}
	serviceLogger.Info("Successfully connected to Milvus")

	embedder, err := embedding.NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to initialize embedding model")
	}
	chatModel, err := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to initialize chat model")
	}

	engine := retrieval.NewEngine(embedder, index, cfg.Processing.FallbackChunkLimit, serviceLogger)
	orchestrator := chat.NewOrchestrator(st, engine, chatModel,
		cfg.Processing.RetrievalTopK, cfg.Processing.HistoryFetchLimit, cfg.Processing.HistoryWindow)

	publisher := jobs.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, serviceLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	apiHandler := api.NewAPI(st, objects, index, publisher, orchestrator, extractors.NewRegistry(), serviceLogger)
	api.RegisterRoutes(router, apiHandler)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(err).Fatal("HTTP server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	cancel()
	if err := publisher.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error closing Kafka publisher")
	}
	if err := milvusClient.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error disconnecting from Milvus")
	}
	if err := mysql.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error disconnecting from MySQL")
	}

	serviceLogger.Info("Server gracefully stopped")
}
