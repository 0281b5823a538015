package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Vector    VectorConfig
	Ingestion IngestionConfig
	Embedder  EmbedderConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Crawler   CrawlerConfig
	Chat      ChatConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	StaticDir    string
	AllowOrigins string
	Development  bool
}

type VectorConfig struct {
	Backend          string
	Host             string
	Port             int
	GrpcPort         int
	CollectionName   string
	Dimension        int
	ConnectRetries   int
	RetryIntervalSec int
}

// Address is the gRPC endpoint used by the vector database client.
func (v VectorConfig) Address() string {
	return net.JoinHostPort(v.Host, strconv.Itoa(v.GrpcPort))
}

type IngestionConfig struct {
	Run  bool
	Path string
}

type EmbedderConfig struct {
	Model      string
	BaseURL    string
	APIKey     string
	TimeoutSec int
	BatchSize  int
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.DBName,
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}

type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type CrawlerConfig struct {
	TimeoutSec   int
	UserAgent    string
	MaxBodyBytes int64
}

type ChatConfig struct {
	MaxContextChars int
}

type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	TTLMinutes int
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

var placeholder = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// Load reads configuration from path, or searches the usual locations when path is empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/spaceapp")
	}

	v.SetEnvPrefix("SPACEAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandPlaceholders(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// expandPlaceholders replaces values written exactly as ${NAME} with the
// environment variable NAME. Unset or empty variables leave the literal.
func expandPlaceholders(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if expanded, ok := ExpandEnv(s); ok {
			v.Set(key, expanded)
		}
	}
}

// ExpandEnv resolves a single ${NAME} placeholder. The second result reports whether a substitution happened.
func ExpandEnv(s string) (string, bool) {
	m := placeholder.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s, false
	}
	val := os.Getenv(m[1])
	if val == "" {
		return s, false
	}
	return val, true
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 240)
	v.SetDefault("server.bodyLimit", 10485760)
	v.SetDefault("server.staticDir", "./frontend/dist")
	v.SetDefault("server.allowOrigins", "*")
	v.SetDefault("server.development", false)

	v.SetDefault("vector.backend", "milvus")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 9091)
	v.SetDefault("vector.grpcPort", 19530)
	v.SetDefault("vector.collectionName", "documents")
	v.SetDefault("vector.dimension", 384)
	v.SetDefault("vector.connectRetries", 5)
	v.SetDefault("vector.retryIntervalSec", 5)

	v.SetDefault("ingestion.run", false)
	v.SetDefault("ingestion.path", "./data/articles.csv")

	v.SetDefault("embedder.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedder.baseURL", "http://localhost:8080/v1")
	v.SetDefault("embedder.timeoutSec", 30)
	v.SetDefault("embedder.batchSize", 32)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "spaceapp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "./data/spaceapp.db")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "gemma:7b")
	v.SetDefault("llm.baseURL", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.maxTokens", 2000)
	v.SetDefault("llm.timeoutSec", 180)

	v.SetDefault("crawler.timeoutSec", 20)
	v.SetDefault("crawler.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("crawler.maxBodyBytes", 10485760)

	v.SetDefault("chat.maxContextChars", 6000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlMinutes", 60)

	v.SetDefault("rateLimit.requestsPerMinute", 30)
	v.SetDefault("rateLimit.burst", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
