package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "CPT"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Session       SessionConfig       `yaml:"session" envconfig:"SESSION"`
	Chart         ChartConfig         `yaml:"chart" envconfig:"CHART"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
	WebSocket     WebSocketConfig     `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:""`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"45s"`
	MaxUploadMB     int64         `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB" default:"32" validate:"min=1,max=1024"`
}

// SessionConfig controls the lifetime of in-memory workspaces.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" default:"2h" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"5m" validate:"gt=0"`
	MaxSoundings  int           `yaml:"max_soundings" envconfig:"MAX_SOUNDINGS" default:"50" validate:"min=1"`
	ParseWorkers  int           `yaml:"parse_workers" envconfig:"PARSE_WORKERS" default:"4" validate:"min=1,max=64"`
}

// ChartConfig holds chart and export defaults.
type ChartConfig struct {
	Width              int     `yaml:"width" envconfig:"WIDTH" default:"800" validate:"min=200,max=4000"`
	Height             int     `yaml:"height" envconfig:"HEIGHT" default:"800" validate:"min=200,max=4000"`
	ProjectName        string  `yaml:"project_name" envconfig:"PROJECT_NAME" default:"Project" validate:"required"`
	ReferenceElevation float64 `yaml:"reference_elevation" envconfig:"REFERENCE_ELEVATION" default:"100.01"`
	AssetsHost         string  `yaml:"assets_host" envconfig:"ASSETS_HOST" default:"https://go-echarts.github.io/go-echarts-assets/assets/" validate:"required"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout" validate:"oneof=stdout stderr file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/cptmerge.log"`
}

// ObservabilityConfig toggles metrics and tracing.
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"cptmerge" validate:"required"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes converts the configured upload limit to bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// Load loads configuration from environment variables and an optional YAML
// file. The file is located through CPT_CONFIG_FILE or the usual
// config.yaml locations; environment values take precedence over it.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays file values on env values. envconfig fills every
// field with its default, so a file value wins only where the env value
// still equals the compiled-in default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()

	if fileConfig.Server.Port != 0 && envConfig.Server.Port == def.Server.Port {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.Host != "" && envConfig.Server.Host == def.Server.Host {
		envConfig.Server.Host = fileConfig.Server.Host
	}
	if fileConfig.Server.ReadTimeout != 0 && envConfig.Server.ReadTimeout == def.Server.ReadTimeout {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 && envConfig.Server.WriteTimeout == def.Server.WriteTimeout {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.MaxUploadMB != 0 && envConfig.Server.MaxUploadMB == def.Server.MaxUploadMB {
		envConfig.Server.MaxUploadMB = fileConfig.Server.MaxUploadMB
	}

	if fileConfig.Session.TTL != 0 && envConfig.Session.TTL == def.Session.TTL {
		envConfig.Session.TTL = fileConfig.Session.TTL
	}
	if fileConfig.Session.MaxSoundings != 0 && envConfig.Session.MaxSoundings == def.Session.MaxSoundings {
		envConfig.Session.MaxSoundings = fileConfig.Session.MaxSoundings
	}

	if fileConfig.Chart.Width != 0 && envConfig.Chart.Width == def.Chart.Width {
		envConfig.Chart.Width = fileConfig.Chart.Width
	}
	if fileConfig.Chart.Height != 0 && envConfig.Chart.Height == def.Chart.Height {
		envConfig.Chart.Height = fileConfig.Chart.Height
	}
	if fileConfig.Chart.ProjectName != "" && envConfig.Chart.ProjectName == def.Chart.ProjectName {
		envConfig.Chart.ProjectName = fileConfig.Chart.ProjectName
	}
	if fileConfig.Chart.ReferenceElevation != 0 && envConfig.Chart.ReferenceElevation == def.Chart.ReferenceElevation {
		envConfig.Chart.ReferenceElevation = fileConfig.Chart.ReferenceElevation
	}

	if fileConfig.Logging.Level != "" && envConfig.Logging.Level == def.Logging.Level {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Output != "" && envConfig.Logging.Output == def.Logging.Output {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}

	return envConfig
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Session.SweepInterval > c.Session.TTL {
		return fmt.Errorf("session sweep interval %s exceeds ttl %s", c.Session.SweepInterval, c.Session.TTL)
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required for output %q", c.Logging.Output)
	}

	return nil
}

// getConfigFilePath returns the path to the config file. The working
// directory is searched before the executable directory.
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	if paths, err := GetPaths(); err == nil {
		locations = append(locations, paths.ConfigFile)
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  45 * time.Second,
			MaxUploadMB:     32,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
			MaxSoundings:  50,
			ParseWorkers:  4,
		},
		Chart: ChartConfig{
			Width:              800,
			Height:             800,
			ProjectName:        "Project",
			ReferenceElevation: 100.01,
			AssetsHost:         "https://go-echarts.github.io/go-echarts-assets/assets/",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/cptmerge.log",
		},
		Observability: ObservabilityConfig{
			ServiceName:    "cptmerge",
			MetricsEnabled: true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
