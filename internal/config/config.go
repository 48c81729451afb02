// Package config 提供应用配置加载
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Ingest   IngestConfig
	Search   SearchConfig
	File     FileConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	Embedding EmbeddingConfig
}

// EmbeddingConfig Embedding配置
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
}

// IngestConfig 数据集导入配置
type IngestConfig struct {
	BatchSize       int // 每批向量化的记录数
	BatchDelayMs    int // 批次之间的最小间隔（毫秒）
	MaxRetries      int // 限流重试次数上限
	MaxErrorSummary int // 数据集错误摘要保留条数
}

// SearchConfig 语义检索配置
type SearchConfig struct {
	DefaultTopK int
	MaxTopK     int
	CacheTTLSec int // 查询向量缓存过期时间（秒）
	CachePrefix string
}

// FileConfig 文件存储配置
type FileConfig struct {
	BasePath string
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("LOCALMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "localmind")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "localmind")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.embedding.provider", "dashscope")
	v.SetDefault("ai.embedding.model", "text-embedding-v3")
	v.SetDefault("ai.embedding.timeout", 30)
	v.SetDefault("ai.embedding.dimensions", 1024)

	// Ingest
	v.SetDefault("ingest.batchSize", 5)
	v.SetDefault("ingest.batchDelayMs", 100)
	v.SetDefault("ingest.maxRetries", 3)
	v.SetDefault("ingest.maxErrorSummary", 5)

	// Search
	v.SetDefault("search.defaultTopK", 5)
	v.SetDefault("search.maxTopK", 100)
	v.SetDefault("search.cacheTTLSec", 300)
	v.SetDefault("search.cachePrefix", "localmind:qvec:")

	// File
	v.SetDefault("file.basePath", "./data/datasets")
}
