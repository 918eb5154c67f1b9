package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BrokerNone     = "none"
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"

	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type MySQL struct {
	DSN      string
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// ConnString returns the explicit DSN or one assembled from the parts.
func (m MySQL) ConnString() string {
	if m.DSN != "" {
		return m.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

type Payment struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// BackendURL overrides the gateway API endpoint. Empty means the public API.
	BackendURL    string
	SuccessURL    string
	CancelURL     string
}

type Broker struct {
	Kind           string
	RabbitURL      string
	RabbitExchange string
	KafkaBrokers   string
	KafkaTopic     string
}

type Session struct {
	Cookie string
	Secret string
	Prefix string
}

type Config struct {
	Port              string
	Storage           string
	MySQL             MySQL
	RedisAddr         string
	Payment           Payment
	ClientURL         string
	CatalogServiceURL string
	CatalogCacheTTL   time.Duration
	CatalogWarmupIDs  []uint64
	IdempotencyTTL    time.Duration
	Broker            Broker
	Session           Session
}

// Load reads the process environment once. The returned value is never
// mutated afterwards; components receive copies of the parts they need.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from an arbitrary lookup function.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	var errs []error

	duration := func(key string, def time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}

	ids := func(key string) []uint64 {
		var out []uint64
		for _, part := range strings.Split(get(key, ""), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				errs = append(errs, fmt.Errorf("%s: invalid id %q", key, part))
				continue
			}
			out = append(out, id)
		}
		return out
	}

	clientURL := strings.TrimRight(get("CLIENT_URL", "http://localhost:3000"), "/")

	cfg := Config{
		Port:    get("PORT", "8080"),
		Storage: get("STORAGE", StorageMySQL),
		MySQL: MySQL{
			DSN:      get("MYSQL_DSN", ""),
			User:     get("MYSQL_USER", "root"),
			Password: get("MYSQL_PASSWORD", ""),
			Host:     get("MYSQL_HOST", "localhost"),
			Port:     get("MYSQL_PORT", "3306"),
			Database: get("MYSQL_DATABASE", "restaurant"),
		},
		RedisAddr: get("REDIS_HOST", "localhost") + ":" + get("REDIS_PORT", "6379"),
		Payment: Payment{
			SecretKey:     get("STRIPE_SECRET_KEY", ""),
			WebhookSecret: get("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(get("PAYMENT_CURRENCY", "usd")),
			BackendURL:    get("STRIPE_API_URL", ""),
			SuccessURL:    clientURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     clientURL + "/checkout/cancelled",
		},
		ClientURL:         clientURL,
		CatalogServiceURL: strings.TrimRight(get("CATALOG_SERVICE_URL", ""), "/"),
		CatalogCacheTTL:   duration("CATALOG_CACHE_TTL", 0),
		CatalogWarmupIDs:  ids("CATALOG_WARMUP_IDS"),
		IdempotencyTTL:    duration("IDEMPOTENCY_TTL", 24*time.Hour),
		Broker: Broker{
			Kind:           strings.ToLower(get("EVENT_BROKER", BrokerNone)),
			RabbitURL:      get("RABBITMQ_URL", ""),
			RabbitExchange: get("RABBITMQ_EXCHANGE", "order.exchange"),
			KafkaBrokers:   get("KAFKA_BROKERS", ""),
			KafkaTopic:     get("KAFKA_TOPIC", "orders"),
		},
		Session: Session{
			Cookie: get("SESSION_COOKIE", "connect.sid"),
			Secret: get("SESSION_SECRET", ""),
			Prefix: get("SESSION_PREFIX", "sess:"),
		},
	}

	if cfg.Payment.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if cfg.Payment.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if cfg.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if _, err := url.ParseRequestURI(cfg.ClientURL); err != nil {
		errs = append(errs, fmt.Errorf("CLIENT_URL: %v", err))
	}

	switch cfg.Storage {
	case StorageMySQL, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE: unknown backend %q", cfg.Storage))
	}

	switch cfg.Broker.Kind {
	case BrokerNone:
	case BrokerRabbitMQ:
		if cfg.Broker.RabbitURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required when EVENT_BROKER=rabbitmq"))
		}
	case BrokerKafka:
		if cfg.Broker.KafkaBrokers == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENT_BROKER=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENT_BROKER: unknown broker %q", cfg.Broker.Kind))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}
