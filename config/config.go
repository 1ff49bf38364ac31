package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Log      Log
	Auth     Auth
	Legacy   Legacy
	Training Training
}

type Server struct {
	Port           string
	RequestTimeout time.Duration
}

type Database struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	Port       string
	User       string
	Password   string `json:"-"`
	Name       string
	SSLMode    string
	SQLitePath string
}

type Log struct {
	Level  string
	Pretty bool
}

type Auth struct {
	JWTSecret string `json:"-"`
}

// Legacy describes the wide per-employee table the training columns live on.
type Legacy struct {
	Table        string
	KeyColumn    string
	ColumnPrefix string
}

type Training struct {
	RecordStore           string // "normalized" or "legacy"
	DefaultValidityMonths int
	SyncOnStartup         bool
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REQUEST_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "compliance.db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LEGACY_TABLE", "employees")
	viper.SetDefault("LEGACY_KEY_COLUMN", "user_id")
	viper.SetDefault("TRAINING_RECORD_STORE", "normalized")
	viper.SetDefault("DEFAULT_VALIDITY_MONTHS", 12)
	viper.SetDefault("SYNC_ON_STARTUP", true)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.RequestTimeout = viper.GetDuration("REQUEST_TIMEOUT")

	config.Database.Driver = viper.GetString("DATABASE_DRIVER")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")
	config.Database.SQLitePath = viper.GetString("SQLITE_PATH")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Pretty = viper.GetBool("LOG_PRETTY")

	config.Auth.JWTSecret = viper.GetString("JWT_SECRET")

	config.Legacy.Table = viper.GetString("LEGACY_TABLE")
	config.Legacy.KeyColumn = viper.GetString("LEGACY_KEY_COLUMN")
	config.Legacy.ColumnPrefix = viper.GetString("LEGACY_COLUMN_PREFIX")

	config.Training.RecordStore = viper.GetString("TRAINING_RECORD_STORE")
	config.Training.DefaultValidityMonths = viper.GetInt("DEFAULT_VALIDITY_MONTHS")
	config.Training.SyncOnStartup = viper.GetBool("SYNC_ON_STARTUP")

	if config.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set. Every authenticated request will be rejected.")
	}

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
