package config

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	PayU       PayUConfig       `yaml:"payu"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	OTP        OTPConfig        `yaml:"otp"`
	CORS       CORSConfig       `yaml:"cors"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host         string `yaml:"host" env-default:"localhost"`
	Port         int    `yaml:"port" env-default:"5432"`
	User         string `yaml:"user" env-required:"true"`
	Password     string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name         string `yaml:"name" env-required:"true"`
	SSLMode      string `yaml:"ssl_mode" env-default:"disable"`
	MaxOpenConns int    `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns int    `yaml:"max_idle_conns" env-default:"5"`
}

// DSN строка подключения lib/pq
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// PayUConfig настройки платёжного шлюза. surl/furl/curl: адреса наших callback-ов,
// frontend_*: страницы, на которые перенаправляем покупателя после callback-а.
type PayUConfig struct {
	Key                string `yaml:"-" env:"PAYU_KEY" env-required:"true"`
	Salt               string `yaml:"-" env:"PAYU_SALT" env-required:"true"`
	PaymentURL         string `yaml:"payment_url" env-default:"https://test.payu.in/_payment"`
	SuccessURL         string `yaml:"success_url" env-default:"http://localhost:8080/api/payments/success"`
	FailureURL         string `yaml:"failure_url" env-default:"http://localhost:8080/api/payments/failure"`
	CancelURL          string `yaml:"cancel_url" env-default:"http://localhost:8080/api/payments/cancel"`
	FrontendSuccessURL string `yaml:"frontend_success_url" env-default:"http://localhost:3000/payment/success"`
	FrontendFailureURL string `yaml:"frontend_failure_url" env-default:"http://localhost:3000/payment/failure"`
}

// AMQPConfig: если url пустой, события только пишутся в лог
type AMQPConfig struct {
	URL      string `yaml:"-" env:"AMQP_URL"`
	Exchange string `yaml:"exchange" env-default:"marketplace.events"`
}

type OTPConfig struct {
	TTL time.Duration `yaml:"ttl" env-default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env-default:"http://localhost:3000"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	cfg, err := LoadByPath(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadByPath читает конфиг без паники, нужен CLI, у которого свои флаги
func LoadByPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &NotFoundError{Path: configPath}
	}

	// .env опционален, переменные окружения процесса имеют приоритет
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "config file not found: " + e.Path
}
