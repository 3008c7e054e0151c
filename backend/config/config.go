package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Failure policies for side effects that run after the primary write.
const (
	PolicyIgnore = "ignore"
	PolicyFail   = "fail"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	DBDriver   string `mapstructure:"DB_DRIVER"` // postgres, sqlite
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBDSN      string `mapstructure:"DB_DSN"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	CacheDefaultTTL    int    `mapstructure:"CACHE_DEFAULT_TTL"`
	CacheFailurePolicy string `mapstructure:"CACHE_FAILURE_POLICY"`
	EventFailurePolicy string `mapstructure:"EVENT_FAILURE_POLICY"`

	BusEnabled      bool `mapstructure:"BUS_ENABLED"`
	NotifierEnabled bool `mapstructure:"NOTIFIER_ENABLED"`

	FileStore string `mapstructure:"FILE_STORE"` // drive, s3, none
	UploadDir string `mapstructure:"UPLOAD_DIR"`

	DriveClientID     string `mapstructure:"GOOGLE_DRIVE_CLIENT_ID"`
	DriveClientSecret string `mapstructure:"GOOGLE_DRIVE_CLIENT_SECRET"`
	DriveRedirectURI  string `mapstructure:"GOOGLE_DRIVE_REDIRECT_URI"`
	DriveRefreshToken string `mapstructure:"GOOGLE_DRIVE_REFRESH_TOKEN"`
	DriveFolderID     string `mapstructure:"GOOGLE_DRIVE_FOLDER_ID"`

	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`

	RecommenderURL   string `mapstructure:"RECOMMENDER_URL"`
	QuizGeneratorURL string `mapstructure:"QUIZ_GENERATOR_URL"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":          "8080",
	"LOG_FORMAT":           "text",
	"DB_DRIVER":            "postgres",
	"DB_HOST":              "localhost",
	"DB_PORT":              "5432",
	"DB_USER":              "postgres",
	"DB_PASSWORD":          "postgres",
	"DB_NAME":              "ailms",
	"DB_DSN":               "ailms.db",
	"JWT_SECRET":           "secret",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"CACHE_DEFAULT_TTL":    3600,
	"CACHE_FAILURE_POLICY": PolicyIgnore,
	"EVENT_FAILURE_POLICY": PolicyIgnore,
	"BUS_ENABLED":          false,
	"NOTIFIER_ENABLED":     false,
	"FILE_STORE":           "none",
	"UPLOAD_DIR":           "uploads",

	"GOOGLE_DRIVE_CLIENT_ID":     "",
	"GOOGLE_DRIVE_CLIENT_SECRET": "",
	"GOOGLE_DRIVE_REDIRECT_URI":  "",
	"GOOGLE_DRIVE_REFRESH_TOKEN": "",
	"GOOGLE_DRIVE_FOLDER_ID":     "",

	"S3_ENDPOINT":   "",
	"S3_REGION":     "",
	"S3_BUCKET":     "",
	"S3_ACCESS_KEY": "",
	"S3_SECRET_KEY": "",
	"S3_USE_SSL":    false,

	"RECOMMENDER_URL":    "http://localhost:8000/recommend",
	"QUIZ_GENERATOR_URL": "http://localhost:8000/generate-quiz",
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the rest of the process cannot interpret.
func (c *Config) Validate() error {
	for name, p := range map[string]string{
		"CACHE_FAILURE_POLICY": c.CacheFailurePolicy,
		"EVENT_FAILURE_POLICY": c.EventFailurePolicy,
	} {
		if p != PolicyIgnore && p != PolicyFail {
			return fmt.Errorf("%s must be %q or %q, got %q", name, PolicyIgnore, PolicyFail, p)
		}
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.FileStore {
	case "drive", "s3", "none":
	default:
		return fmt.Errorf("unsupported FILE_STORE %q", c.FileStore)
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// String prints the configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "port=%s db=%s/%s@%s:%s ", c.ServerPort, c.DBDriver, c.DBName, c.DBHost, c.DBPort)
	fmt.Fprintf(&sb, "redis=%q cache_policy=%s event_policy=%s ", c.RedisAddr, c.CacheFailurePolicy, c.EventFailurePolicy)
	fmt.Fprintf(&sb, "bus=%v notifier=%v file_store=%s", c.BusEnabled, c.NotifierEnabled, c.FileStore)
	return sb.String()
}
