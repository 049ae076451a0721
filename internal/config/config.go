package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fieldops/internal/geo"
)

// Roll-call scopes.
const (
	ScopeRegion = "region"
	ScopeGlobal = "global"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	DBDSN       string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	JWTTTL      time.Duration
	SwaggerHost string
	ResetDB     bool

	LogLevel  string
	LogFormat string

	Timezone         *time.Location
	MaxCheckinMeters float64
	RollCallScope    string
	Regions          geo.Regions
	LoginRatePerSec  float64
	LoginRateBurst   int
	CORSOrigins      []string

	Storage StorageConfig
	MSpace  MSpaceConfig
	Slack   SlackConfig
}

// StorageConfig selects where job photos are written.
type StorageConfig struct {
	Driver        string // local | s3
	UploadDir     string
	S3Bucket      string
	S3Prefix      string
	PublicBaseURL string
	MaxPhotoWidth int
}

// MSpaceConfig holds the SMS gateway credentials.
type MSpaceConfig struct {
	BaseURL  string
	Username string
	Password string
	SenderID string
}

// SlackConfig holds the escalation notifier settings. An empty token disables it.
type SlackConfig struct {
	Token   string
	Channel string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBDSN:       getEnv("DB_DSN", "user:password@tcp(localhost:3306)/fieldops?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		ResetDB:     getEnvBool("RESET_DB", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MaxCheckinMeters: getEnvFloat("MAX_CHECKIN_DISTANCE_METERS", 500),
		RollCallScope:    strings.ToLower(getEnv("ROLLCALL_SCOPE", ScopeRegion)),
		LoginRatePerSec:  getEnvFloat("LOGIN_RATE_PER_SECOND", 1),
		LoginRateBurst:   getEnvInt("LOGIN_RATE_BURST", 5),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),

		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			S3Bucket:      os.Getenv("S3_BUCKET"),
			S3Prefix:      getEnv("S3_PREFIX", "jobs"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "/uploads"),
			MaxPhotoWidth: getEnvInt("MAX_PHOTO_WIDTH", 1600),
		},
		MSpace: MSpaceConfig{
			BaseURL:  getEnv("MSPACE_URL", "http://api.mspace.co.ke/mspaceservice/wr/sms/sendtext"),
			Username: os.Getenv("MSPACE_USER"),
			Password: os.Getenv("MSPACE_PASS"),
			SenderID: os.Getenv("MSPACE_SENDER"),
		},
		Slack: SlackConfig{
			Token:   os.Getenv("SLACK_BOT_TOKEN"),
			Channel: os.Getenv("SLACK_ESCALATION_CHANNEL"),
		},
	}

	switch cfg.DBDriver {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", cfg.DBDriver)
	}
	switch cfg.RollCallScope {
	case ScopeRegion, ScopeGlobal:
	default:
		return nil, fmt.Errorf("ROLLCALL_SCOPE must be region or global, got %q", cfg.RollCallScope)
	}
	switch cfg.Storage.Driver {
	case "local":
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be local or s3, got %q", cfg.Storage.Driver)
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "Africa/Nairobi"))
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	cfg.Regions = geo.DefaultRegions()
	if path := os.Getenv("REGIONS_FILE"); path != "" {
		regions, err := LoadRegions(path)
		if err != nil {
			return nil, err
		}
		cfg.Regions = regions
	}

	return cfg, nil
}

type regionsFile struct {
	Regions []struct {
		Name      string  `yaml:"name"`
		Latitude  float64 `yaml:"latitude"`
		Longitude float64 `yaml:"longitude"`
	} `yaml:"regions"`
}

// LoadRegions reads the region reference table from a YAML file.
func LoadRegions(path string) (geo.Regions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	return ParseRegions(raw)
}

// ParseRegions decodes a YAML region table:
//
//	regions:
//	  - name: Nairobi
//	    latitude: -1.2921
//	    longitude: 36.8219
func ParseRegions(raw []byte) (geo.Regions, error) {
	var file regionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse regions file: %w", err)
	}
	regions := geo.Regions{}
	for _, r := range file.Regions {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("parse regions file: region without name")
		}
		regions.Add(r.Name, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
	}
	return regions, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
