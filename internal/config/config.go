package config

import (
	"time"
	_ "time/tzdata"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/momo-analyzer/internal/queue"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/pg"
	"github.com/pkg/errors"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	AppEnvDev = "dev"

	devAuthUser     = "admin"
	devAuthPassword = "password"
)

var config *Config

// Config holds every setting the binaries read. Values come from the environment,
// optionally seeded from a .env file; nothing else should read env directly.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=momo_analyzer"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	HttpListenAddr     string        `env:"HTTP_LISTEN_ADDR,default=:8000"`
	HttpRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=30s"`
	MetricsAddr        string        `env:"METRICS_ADDR,default=:9100"`

	AuthUser     string `env:"AUTH_USER"`
	AuthPassword string `env:"AUTH_PASSWORD"`
	AuthRealm    string `env:"AUTH_REALM,default=MoMo Analyzer"`

	StoreDriver   string `env:"STORE_DRIVER,default=memory"`
	StoreFilePath string `env:"STORE_FILE_PATH,default=data/processed/transactions.json"`

	ParserTimezone string `env:"PARSER_TIMEZONE"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresSSLMode string `env:"POSTGRES_SSLMODE,default=disable"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE,default=momo"`

	ImportQueueName        string        `env:"IMPORT_QUEUE_NAME,default=momo:imports"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=importers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=importer"`
	QueueConsumers         int           `env:"QUEUE_CONSUMERS,default=2"`
	QueueWorkers           int           `env:"QUEUE_WORKERS,default=4"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=3"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=1m"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=1000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	if err := c.Validate(); err != nil {
		return err
	}

	config = c
	return nil
}

// Set installs c as the loaded configuration.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.validateAuth()
}

// validateAuth requires credentials outside dev; dev falls back to admin/password.
func (c *Config) validateAuth() error {
	if c.AuthUser != "" && c.AuthPassword != "" {
		return nil
	}
	if c.AppEnv != AppEnvDev {
		return errors.Errorf("AUTH_USER and AUTH_PASSWORD are required when APP_ENV=%s", c.AppEnv)
	}
	logger.Warn("AUTH_USER/AUTH_PASSWORD not set, using development credentials")
	if c.AuthUser == "" {
		c.AuthUser = devAuthUser
	}
	if c.AuthPassword == "" {
		c.AuthPassword = devAuthPassword
	}
	return nil
}

// Location resolves PARSER_TIMEZONE; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.ParserTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ParserTimezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid PARSER_TIMEZONE %q", c.ParserTimezone)
	}
	return loc, nil
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

// RedisEnabled reports whether REDIS_ADDR is set. Without redis only synchronous imports work.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// AsyncImportsEnabled reports whether imports may go through the queue. The processor
// writes to its own store, so the api only sees its imports when both share postgres.
func (c *Config) AsyncImportsEnabled() bool {
	return c.RedisEnabled() && c.StoreDriver == StoreDriverPostgres
}

// ValidateProcessor checks the settings the import processor cannot run without.
func (c *Config) ValidateProcessor() error {
	if !c.RedisEnabled() {
		return errors.New("REDIS_ADDR is required to consume import jobs")
	}
	if c.StoreDriver != StoreDriverPostgres {
		return errors.Errorf("the import processor needs STORE_DRIVER=%s, got %q", StoreDriverPostgres, c.StoreDriver)
	}
	return nil
}

func (c *Config) ImportQueue() queue.QueueConfig {
	return queue.QueueConfig{
		Name:              c.ImportQueueName,
		ConsumerGroup:     c.QueueConsumerGroup,
		ConsumerName:      c.QueueConsumerName,
		MaxRetries:        c.QueueMaxRetries,
		VisibilityTimeout: c.QueueVisibilityTimeout,
		PollInterval:      c.QueuePollInterval,
		BatchSize:         c.QueueBatchSize,
		MaxLen:            c.QueueMaxLen,
		EnableDLQ:         c.QueueEnableDLQ,
	}
}
