package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xavierca1/diag-leads/internal/entity"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" mapstructure:"rabbitmq"`
	Mail     MailConfig     `yaml:"mail" mapstructure:"mail"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Intake   IntakeConfig   `yaml:"intake" mapstructure:"intake"`
	Worker   WorkerConfig   `yaml:"worker" mapstructure:"worker"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	CRM      CRMConfig      `yaml:"crm" mapstructure:"crm"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Users    []UserConfig   `yaml:"users" mapstructure:"users"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// TrustProxy: só ligar atrás de um proxy que sobrescreve X-Forwarded-For/X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// StoreConfig: driver "postgres" ou "memory".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RabbitMQConfig: URL vazia desliga fila e worker de scoring.
type RabbitMQConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// MailConfig: host vazio desliga o e-mail de atribuição.
type MailConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

type GeoConfig struct {
	HomeCallingCode string `yaml:"home_calling_code" mapstructure:"home_calling_code"`
	DefaultRegion   string `yaml:"default_region" mapstructure:"default_region"`
	TablesPath      string `yaml:"tables_path" mapstructure:"tables_path"`
}

type IntakeConfig struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

type WorkerConfig struct {
	StaleAfterHours int `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	TickMinutes     int `yaml:"tick_minutes" mapstructure:"tick_minutes"`
}

// ScoringConfig: segredo vazio aceita PUT /leads/{id}/scoring sem assinatura.
type ScoringConfig struct {
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
}

// CRMConfig: token vazio desliga o espelhamento no Kommo.
type CRMConfig struct {
	KommoURL      string `yaml:"kommo_url" mapstructure:"kommo_url"`
	KommoToken    string `yaml:"kommo_token" mapstructure:"kommo_token"`
	KommoStatusID int    `yaml:"kommo_status_id" mapstructure:"kommo_status_id"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// UserConfig semeia o diretório de usuários no modo memory.
type UserConfig struct {
	ID    string `yaml:"id" mapstructure:"id"`
	Name  string `yaml:"name" mapstructure:"name"`
	Email string `yaml:"email" mapstructure:"email"`
	Role  string `yaml:"role" mapstructure:"role"`
}

func (u UserConfig) Entity() entity.User {
	return entity.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (w WorkerConfig) StaleAfter() time.Duration {
	return time.Duration(w.StaleAfterHours) * time.Hour
}

func (w WorkerConfig) TickInterval() time.Duration {
	return time.Duration(w.TickMinutes) * time.Minute
}

// Load lê .env, config.yaml (opcional) e variáveis LEADS_*, nessa ordem de precedência crescente.
func Load() (*Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// nomes antigos do .env continuam valendo
	_ = v.BindEnv("store.database_url", "LEADS_STORE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("rabbitmq.url", "LEADS_RABBITMQ_URL", "RABBITMQ_URL")
	_ = v.BindEnv("mail.host", "LEADS_MAIL_HOST", "MAIL_HOST")
	_ = v.BindEnv("mail.user", "LEADS_MAIL_USER", "MAIL_USER")
	_ = v.BindEnv("mail.password", "LEADS_MAIL_PASSWORD", "MAIL_PASS")
	_ = v.BindEnv("crm.kommo_token", "LEADS_CRM_KOMMO_TOKEN", "KOMMO_API_TOKEN")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "leads@diag.local")
	v.SetDefault("geo.home_calling_code", "+55")
	v.SetDefault("geo.default_region", "BR")
	v.SetDefault("geo.tables_path", "")
	v.SetDefault("intake.rate_limit_per_minute", 10)
	v.SetDefault("worker.stale_after_hours", 72)
	v.SetDefault("worker.tick_minutes", 60)
	v.SetDefault("scoring.webhook_secret", "")
	v.SetDefault("crm.kommo_url", "")
	v.SetDefault("crm.kommo_token", "")
	v.SetDefault("crm.kommo_status_id", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Intake.RateLimitPerMinute <= 0 {
		return eris.New("config: intake.rate_limit_per_minute must be positive")
	}
	if c.Worker.StaleAfterHours <= 0 || c.Worker.TickMinutes <= 0 {
		return eris.New("config: worker.stale_after_hours and worker.tick_minutes must be positive")
	}
	if c.CRM.KommoToken != "" && c.CRM.KommoURL == "" {
		return eris.New("config: crm.kommo_url is required when crm.kommo_token is set")
	}
	return nil
}

// InitLogger inicializa o logger global do zap.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
