package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "~/.veritas/config.yaml"

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		AnalyzeTimeout  time.Duration `yaml:"analyzeTimeout"` // must stay below writeTimeout
		SessionTTL      time.Duration `yaml:"sessionTTL"`     // idle sessions are dropped after this, 0 keeps them
		CORSOrigins     []string      `yaml:"corsOrigins"`
		APIKeys         []string      `yaml:"apiKeys"`
		RateLimit       float64       `yaml:"rateLimit"` // requests per second per client, 0 disables
		RateBurst       int           `yaml:"rateBurst"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	OpenAI struct {
		APIKey       string        `yaml:"apiKey"`
		BaseURL      string        `yaml:"baseURL"`
		Models       []string      `yaml:"models"`
		SearchModels []string      `yaml:"searchModels"`
		RetryDelay   time.Duration `yaml:"retryDelay"`
	} `yaml:"openai"`

	Firecrawl struct {
		APIKey   string        `yaml:"apiKey"`
		BaseURL  string        `yaml:"baseURL"`
		Version  string        `yaml:"version"`
		Timeout  time.Duration `yaml:"timeout"`
		RetryMax int           `yaml:"retryMax"`
	} `yaml:"firecrawl"`

	Acquisition struct {
		MaxAttempts      int           `yaml:"maxAttempts"`
		Backoff          time.Duration `yaml:"backoff"`
		MinContentLength int           `yaml:"minContentLength"`
		BlockPhrases     []string      `yaml:"blockPhrases"`
		HostileDomains   []string      `yaml:"hostileDomains"`
		CacheTTL         time.Duration `yaml:"cacheTTL"`
		Mobile           bool          `yaml:"mobile"`
		WaitFor          time.Duration `yaml:"waitFor"`
	} `yaml:"acquisition"`

	Scoring struct {
		Granularity     int  `yaml:"granularity"`
		Default         int  `yaml:"default"`
		StandardVerdict bool `yaml:"standardVerdict"`
	} `yaml:"scoring"`

	Names struct {
		MaxLength     int      `yaml:"maxLength"`
		BannedPhrases []string `yaml:"bannedPhrases"`
	} `yaml:"names"`

	Analysis struct {
		MaxContentChars    int  `yaml:"maxContentChars"`
		ScreenshotFallback bool `yaml:"screenshotFallback"`
	} `yaml:"analysis"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		PublicBase string `yaml:"publicBase"`
	} `yaml:"minio"`

	Archive struct {
		Driver   string `yaml:"driver"` // "", "mysql" or "postgres"
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"archive"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 120 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.AnalyzeTimeout = 100 * time.Second
	c.Server.SessionTTL = 24 * time.Hour
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateBurst = 5

	c.Log.Level = "info"
	c.Log.Format = "text"

	c.OpenAI.Models = []string{"gpt-4o-mini", "gpt-4o"}
	c.OpenAI.SearchModels = []string{"gpt-4o-mini-search-preview", "gpt-4o-search-preview"}
	c.OpenAI.RetryDelay = 5 * time.Second

	c.Firecrawl.Version = "v2"
	c.Firecrawl.Timeout = 60 * time.Second
	c.Firecrawl.RetryMax = 2

	c.Acquisition.MaxAttempts = 3
	c.Acquisition.Backoff = 1500 * time.Millisecond
	c.Acquisition.MinContentLength = 500
	c.Acquisition.CacheTTL = time.Hour
	c.Acquisition.Mobile = true
	c.Acquisition.WaitFor = 3 * time.Second

	c.Scoring.Granularity = 5
	c.Scoring.Default = 40

	c.Names.MaxLength = 60

	c.Analysis.MaxContentChars = 15000

	c.Minio.Region = "us-east-1"
	c.Minio.BucketName = "veritas"
	return &c
}

// ResolvePath picks the explicit path, then CONFIG_PATH, then DefaultPath, and expands "~".
func ResolvePath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}
	return homedir.Expand(path)
}

// Load reads the YAML file over the defaults. A missing file is not an error.
// Credentials from the environment override the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", expanded, err)
			}
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("FIRECRAWL_API_KEY"); v != "" {
		cfg.Firecrawl.APIKey = v
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be 1-65535")
	}
	if c.Server.AnalyzeTimeout <= 0 {
		problems = append(problems, "server.analyzeTimeout must be positive")
	} else if c.Server.WriteTimeout > 0 && c.Server.AnalyzeTimeout >= c.Server.WriteTimeout {
		problems = append(problems, "server.analyzeTimeout must be shorter than server.writeTimeout")
	}
	if c.Server.SessionTTL < 0 {
		problems = append(problems, "server.sessionTTL must not be negative")
	}
	if c.Acquisition.MaxAttempts <= 0 {
		problems = append(problems, "acquisition.maxAttempts must be positive")
	}
	if c.Acquisition.Backoff < 0 {
		problems = append(problems, "acquisition.backoff must not be negative")
	}
	if c.Acquisition.MinContentLength <= 0 {
		problems = append(problems, "acquisition.minContentLength must be positive")
	}
	if c.Scoring.Granularity <= 0 || c.Scoring.Granularity > 100 {
		problems = append(problems, "scoring.granularity must be 1-100")
	}
	if c.Scoring.Default < 0 || c.Scoring.Default > 100 {
		problems = append(problems, "scoring.default must be 0-100")
	}
	if c.Names.MaxLength <= 0 {
		problems = append(problems, "names.maxLength must be positive")
	}
	if c.Analysis.MaxContentChars <= 0 {
		problems = append(problems, "analysis.maxContentChars must be positive")
	}
	switch c.Archive.Driver {
	case "", "mysql", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("archive.driver %q is not supported", c.Archive.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MySQLDSN builds the archive DSN for go-sql-driver/mysql.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Archive.User,
		c.Archive.Password,
		c.Archive.Host,
		c.Archive.Port,
		c.Archive.Name,
	)
}

// PostgresDSN builds the archive DSN for lib/pq.
func (c *Config) PostgresDSN() string {
	ssl := c.Archive.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Archive.Host,
		c.Archive.Port,
		c.Archive.User,
		c.Archive.Password,
		c.Archive.Name,
		ssl,
	)
}
