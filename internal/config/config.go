// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"VIDORA_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Session                 `yaml:"session"`
	Stripe                  `yaml:"stripe"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Scheduler               `yaml:"scheduler"`
	Lockout                 `yaml:"lockout"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	FrontendURL string        `yaml:"frontend_url" env-default:"http://localhost:5173"`

	// RateLimit запросов в секунду с одного IP для входа и регистрации.
	RateLimit      float64 `yaml:"rate_limit" env-default:"5"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	PlansTTL     time.Duration `yaml:"plans_ttl" env-default:"5m"`
}

// Session настройки пользовательских сессий и подписи токена.
type Session struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"SESSION_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
	CookieName   string        `yaml:"cookie_name" env-default:"vidora_session"`
	CookieSecure bool          `yaml:"cookie_secure"`
	// VerificationTTL срок жизни ссылки подтверждения почты.
	VerificationTTL time.Duration `yaml:"verification_ttl" env-default:"24h"`
}

// Stripe настройки платёжного шлюза.
type Stripe struct {
	SecretKey         string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret     string        `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	APIURL            string        `yaml:"api_url"`
	Timeout           time.Duration `yaml:"timeout" env-default:"10s"`
	MaxNetworkRetries int64         `yaml:"max_network_retries"`
	Currency          string        `yaml:"currency" env-default:"usd"`
	SuccessURL        string        `yaml:"success_url"`
	CancelURL         string        `yaml:"cancel_url"`
}

// RabbitMQ настройки брокера сообщений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP настройки почтового сервера для воркера уведомлений.
type SMTP struct {
	SMTPHost    string        `yaml:"host" env:"SMTP_HOST"`
	SMTPPort    string        `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser    string        `yaml:"user" env:"SMTP_USER"`
	SMTPPass    string        `yaml:"pass" env:"SMTP_PASS"`
	SMTPFrom    string        `yaml:"from" env:"SMTP_FROM"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"10s"`
	// StartTLS можно выключить для локального почтового перехватчика.
	StartTLS bool `yaml:"starttls" env:"SMTP_STARTTLS" env-default:"true"`
}

// Scheduler настройки фоновой очистки незавершённых регистраций.
type Scheduler struct {
	PendingTTL      time.Duration `yaml:"pending_ttl" env-default:"24h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env-default:"1h"`
}

// Lockout настройки блокировки входа.
type Lockout struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
	Window      time.Duration `yaml:"window" env-default:"60s"`
}

// MustLoad функция для загрузки конфига. Переменные из .env подхватываются, если файл есть.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Session:\n"+
			"  TokenTTL: %s\n"+
			"Stripe:\n"+
			"  Timeout: %s\n"+
			"Scheduler:\n"+
			"  PendingTTL: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.Stripe.Timeout,
		c.PendingTTL,
	)
}

func mask(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:8] + "***"
}
