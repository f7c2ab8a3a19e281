package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Blob     *blobConfig
	Gemini   *geminiConfig
	Pipeline *pipelineConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"editais"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"EDITAL_API_ADDRESS" default:":8080"`
	MetricsAddress string `envconfig:"EDITAL_API_METRICS_ADDRESS" default:":8081"`
	BaseUrl        string `envconfig:"EDITAL_API_BASE_URL" default:"http://localhost:8080"`
	LogLevel       string `envconfig:"EDITAL_API_LOG_LEVEL" default:"info"`
}

type blobConfig struct {
	Endpoint  string `envconfig:"EDITAL_API_BLOB_ENDPOINT" default:"localhost:9000"`
	Bucket    string `envconfig:"EDITAL_API_BLOB_BUCKET" default:"editais"`
	AccessKey string `envconfig:"EDITAL_API_BLOB_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"EDITAL_API_BLOB_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"EDITAL_API_BLOB_USE_SSL" default:"false"`
}

type geminiConfig struct {
	ApiKey string `envconfig:"EDITAL_API_GEMINI_API_KEY" default:""`
	Model  string `envconfig:"EDITAL_API_GEMINI_MODEL" default:"gemini-1.5-pro"`
}

type pipelineConfig struct {
	Workers        int           `envconfig:"EDITAL_API_PIPELINE_WORKERS" default:"4"`
	PollInterval   time.Duration `envconfig:"EDITAL_API_PIPELINE_POLL_INTERVAL" default:"2s"`
	MaxAttempts    int           `envconfig:"EDITAL_API_PIPELINE_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"EDITAL_API_PIPELINE_RETRY_BASE_DELAY" default:"5s"`
	SoftTimeout    time.Duration `envconfig:"EDITAL_API_PIPELINE_SOFT_TIMEOUT" default:"5m"`
	HardTimeout    time.Duration `envconfig:"EDITAL_API_PIPELINE_HARD_TIMEOUT" default:"10m"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration populated with defaults only,
// without touching the process environment. Used by tests.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "pgsql", Hostname: "localhost", Port: "5432", Name: "editais", User: "admin", Password: "adminpass"},
		Service:  &svcConfig{Address: ":8080", MetricsAddress: ":8081", BaseUrl: "http://localhost:8080", LogLevel: "info"},
		Blob:     &blobConfig{Endpoint: "localhost:9000", Bucket: "editais"},
		Gemini:   &geminiConfig{Model: "gemini-1.5-pro"},
		Pipeline: &pipelineConfig{Workers: 4, PollInterval: 2 * time.Second, MaxAttempts: 3, RetryBaseDelay: 5 * time.Second, SoftTimeout: 5 * time.Minute, HardTimeout: 10 * time.Minute},
	}
}
