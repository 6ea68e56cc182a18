package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	App       AppConfig
	DB        DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Facebook  FacebookConfig
	Webhook   WebhookConfig
	Broadcast BroadcastConfig
	Security  SecurityConfig
}

type SecurityConfig struct {
	// TokenEncKey cifra os access tokens de página em repouso.
	// Quando vazio, os tokens são gravados em claro.
	TokenEncKey string `env:"TOKEN_ENC_KEY" envDefault:""`
}

type StorageConfig struct {
	Driver  string `env:"DB_DRIVER" envDefault:"sqlite"`
	DataDir string `env:"DATA_DIR" envDefault:"/app/data"`
}

type AppConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"pageflow"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN retorna a string de conexão em formato aceito pelo pgxpool.
func (cfg DatabaseConfig) DSN() string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
}

type RateLimitConfig struct {
	Enabled       bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests      int    `env:"RATE_LIMIT_REQUESTS" envDefault:"300"`
	WindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	Prefix        string `env:"RATE_LIMIT_PREFIX" envDefault:"ratelimit:api"`
}

type JWTConfig struct {
	Secret   string `env:"JWT_SECRET,required"`
	ExpHours int    `env:"JWT_EXP_HOURS" envDefault:"720"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"debug"`
}

// FacebookConfig reúne as credenciais da plataforma Messenger: o app secret
// assina os webhooks, o verify token responde ao handshake de inscrição e o
// par app id/secret serve ao login OAuth.
type FacebookConfig struct {
	AppID              string `env:"FACEBOOK_APP_ID"`
	AppSecret          string `env:"FACEBOOK_APP_SECRET,required"`
	VerifyToken        string `env:"FACEBOOK_VERIFY_TOKEN,required"`
	OAuthRedirectURL   string `env:"FACEBOOK_OAUTH_REDIRECT_URL"`
	GraphBaseURL       string `env:"FACEBOOK_GRAPH_BASE_URL" envDefault:"https://graph.facebook.com/v19.0"`
	SendTimeoutSeconds int    `env:"FACEBOOK_SEND_TIMEOUT_SECONDS" envDefault:"10"`
}

type WebhookConfig struct {
	Workers     int `env:"WEBHOOK_WORKERS" envDefault:"4"`
	DedupTTLMin int `env:"WEBHOOK_DEDUP_TTL_MINUTES" envDefault:"60"`
	QueueBuffer int `env:"WEBHOOK_QUEUE_BUFFER" envDefault:"10000"`
}

type BroadcastConfig struct {
	Workers         int `env:"BROADCAST_WORKERS" envDefault:"8"`
	DeadlineSeconds int `env:"BROADCAST_DEADLINE_SECONDS" envDefault:"300"`
	LockTTLSeconds  int `env:"BROADCAST_LOCK_TTL_SECONDS" envDefault:"600"`
}

// Load carrega as configurações da aplicação.
func Load() Config {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: não foi possível carregar variáveis: %v", err)
	}
	return cfg
}
