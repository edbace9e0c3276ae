package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	Responses ResponsesConfig
	Letter    LetterConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	// ConnMaxLifetime recycles pooled connections; zero keeps them forever.
	ConnMaxLifetime  time.Duration
	// StatementTimeout is sent to the server as statement_timeout.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the parameters needed to verify bearer tokens issued by the identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
	Leeway   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ResponsesConfig tunes response numbering and the transactional boundary.
type ResponsesConfig struct {
	NumberPrefix string
	TxTimeout    time.Duration
}

// LetterConfig carries the fixed text printed on every response letter.
type LetterConfig struct {
	HeaderLines    []string
	City           string
	OfficeCode     string
	Motto          string
	AnalystTitle   string
	ReviewerTitle  string
	SignatureOrgan string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime:  v.GetDuration("DB_CONN_MAX_LIFETIME"),
		StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
		Leeway:   v.GetDuration("JWT_LEEWAY"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	prefix := strings.TrimSpace(v.GetString("RESPONSES_NUMBER_PREFIX"))
	if prefix == "" {
		prefix = "RE"
	}
	cfg.Responses = ResponsesConfig{
		NumberPrefix: prefix,
		TxTimeout:    parseDuration(v.GetString("RESPONSES_TX_TIMEOUT"), 5*time.Second),
	}

	cfg.Letter = LetterConfig{
		HeaderLines:    splitList(v.GetString("LETTER_HEADER_LINES"), "|"),
		City:           v.GetString("LETTER_CITY"),
		OfficeCode:     v.GetString("LETTER_OFFICE_CODE"),
		Motto:          v.GetString("LETTER_MOTTO"),
		AnalystTitle:   v.GetString("LETTER_ANALYST_TITLE"),
		ReviewerTitle:  v.GetString("LETTER_REVIEWER_TITLE"),
		SignatureOrgan: v.GetString("LETTER_SIGNATURE_ORGAN"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "oficios")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "15s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_LEEWAY", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("RESPONSES_NUMBER_PREFIX", "RE")
	v.SetDefault("RESPONSES_TX_TIMEOUT", "5s")

	v.SetDefault("LETTER_HEADER_LINES", "República de Honduras|Secretaría de Seguridad|Dirección General Policía Nacional|Dirección Policial Antimaras y Pandillas Contra el Crimen Organizado|San Pedro Sula, Cortés")
	v.SetDefault("LETTER_CITY", "San Pedro Sula")
	v.SetDefault("LETTER_OFFICE_CODE", "DIPAMPCO")
	v.SetDefault("LETTER_MOTTO", "Dios          Patria          Servicio")
	v.SetDefault("LETTER_ANALYST_TITLE", "Analista")
	v.SetDefault("LETTER_REVIEWER_TITLE", "Jefe Regional")
	v.SetDefault("LETTER_SIGNATURE_ORGAN", "DIPAMPCO")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	return splitList(raw, ",")
}

func splitList(raw, sep string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
