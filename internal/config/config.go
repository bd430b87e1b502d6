package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the application.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // e.g. "development", "production"
}

// LoggerConfig controls the logging subsystem.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"` // e.g. ":8080"
}

// MySQLConfig holds the MySQL connection settings.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// MinIOConfig holds the MinIO object storage settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// MilvusConfig holds the Milvus vector index settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	Dim        int    `yaml:"dim"` // embedding dimension
}

// KafkaConfig holds the Kafka job queue settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`   // document processing jobs
	GroupID string   `yaml:"groupID"` // worker consumer group
}

// OpenAIConfig holds API settings for the embedding and chat models.
type OpenAIConfig struct {
	APIKey         string `yaml:"apiKey"`
	ChatModel      string `yaml:"chatModel"`
	EmbeddingModel string `yaml:"embeddingModel"`
}

// ProcessingConfig holds the tunables for the document pipeline and retrieval.
type ProcessingConfig struct {
	ChunkSize               int `yaml:"chunkSize"`               // target fragment size in characters
	ChunkOverlap            int `yaml:"chunkOverlap"`            // overlap between consecutive fragments
	ConsistencyWaitAttempts int `yaml:"consistencyWaitAttempts"` // object store existence polls before giving up
	ConsistencyWaitInterval int `yaml:"consistencyWaitInterval"` // seconds between polls
	RetrievalTopK           int `yaml:"retrievalTopK"`           // passages requested per chat exchange
	FallbackChunkLimit      int `yaml:"fallbackChunkLimit"`      // total chunk cap for forced-context fallback
	HistoryFetchLimit       int `yaml:"historyFetchLimit"`       // persisted messages fetched per exchange
	HistoryWindow           int `yaml:"historyWindow"`           // messages actually passed to the model
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Milvus     MilvusConfig     `yaml:"milvus"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Processing ProcessingConfig `yaml:"processing"`
}

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills zero-valued processing knobs with their standard values.
func (c *AppConfig) applyDefaults() {
	p := &c.Processing
	if p.ChunkSize == 0 {
		p.ChunkSize = 1000
	}
	if p.ChunkOverlap == 0 {
		p.ChunkOverlap = 200
	}
	if p.ConsistencyWaitAttempts == 0 {
		p.ConsistencyWaitAttempts = 120
	}
	if p.ConsistencyWaitInterval == 0 {
		p.ConsistencyWaitInterval = 1
	}
	if p.RetrievalTopK == 0 {
		p.RetrievalTopK = 5
	}
	if p.FallbackChunkLimit == 0 {
		p.FallbackChunkLimit = 6
	}
	if p.HistoryFetchLimit == 0 {
		p.HistoryFetchLimit = 10
	}
	if p.HistoryWindow == 0 {
		p.HistoryWindow = 5
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
}
