package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"legalmind/internal/config"
	"legalmind/internal/database/milvus"
	"legalmind/internal/database/minio"
	"legalmind/internal/database/mysql"
	"legalmind/internal/embedding"
	"legalmind/internal/jobs"
	"legalmind/internal/llm"
	"legalmind/internal/processor"
	"legalmind/internal/rag/extractors"
	"legalmind/internal/rag/splitters"
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
	serviceLogger := logger.New("worker")

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
	summaryModel, err := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		serviceLogger.WithError(err).Fatal("Failed to initialize chat model")
	}

	proc := processor.NewProcessor(
		st,
		objects,
		extractors.NewRegistry(),
		splitters.NewCharacterSplitter(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap),
		embedder,
		index,
		summaryModel,
		cfg.Processing.ConsistencyWaitAttempts,
		time.Duration(cfg.Processing.ConsistencyWaitInterval)*time.Second,
	)

	consumer := jobs.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, serviceLogger)
	consumer.Start(ctx, func(ctx context.Context, job jobs.DocumentJob) error {
		return proc.Process(ctx, job.DocumentID)
	})
	serviceLogger.Info("Document job consumer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down worker...")

	cancel()
	if err := consumer.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error closing Kafka consumer")
	}
	if err := milvusClient.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error disconnecting from Milvus")
	}
	if err := mysql.Close(); err != nil {
		serviceLogger.WithError(err).Error("Error disconnecting from MySQL")
	}

	serviceLogger.Info("Worker gracefully stopped")
}
