package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "CHATSHOP_CONFIG_FILE"
	envPrefix         = "CHATSHOP"
)

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

// Enabled reports whether any TLS file is configured.
func (f tlsFiles) Enabled() bool {
	return f.CA != "" || f.Cert != "" || f.Key != ""
}

type topics struct {
	Notifications string `mapstructure:"notifications"`
}

type broker struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	Topics             topics   `mapstructure:"topics"`
	TLS                tlsFiles `mapstructure:"tls"`
	User               string   `mapstructure:"user"`
	Pass               string   `mapstructure:"pass"`
}

type redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	TLS        tlsFiles      `mapstructure:"tls"`
}

type catalog struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type checkout struct {
	LowStockThreshold   int    `mapstructure:"low_stock_threshold"`
	MaxDiscountAttempts int    `mapstructure:"max_discount_attempts"`
	CommitAttempts      int    `mapstructure:"commit_attempts"`
	PromoMessage        string `mapstructure:"promo_message"`
	SkipToken           string `mapstructure:"skip_token"`
	CancelToken         string `mapstructure:"cancel_token"`
}

type reminder struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	LogLevel       slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	SQLDB          string        `mapstructure:"sql_db"`
	Redis          redis         `mapstructure:"redis"`
	Broker         broker        `mapstructure:"broker"`
	Catalog        catalog       `mapstructure:"catalog"`
	Retry          retry         `mapstructure:"retry"`
	Checkout       checkout      `mapstructure:"checkout"`
	Reminder       reminder      `mapstructure:"reminder"`
}

// Load reads the config file named by --config or CHATSHOP_CONFIG_FILE
// and exits the process with code 2 when it is unusable.
func Load() Config {
	cfg, err := Read(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// Read parses the YAML file at path. Every key can be overridden by an
// env var, e.g. CHATSHOP_REDIS_ADDR for redis.addr.
func Read(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("http_timeout", 5*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.session_ttl", 30*time.Minute)
	v.SetDefault("broker.topics.notifications", "chatshop-notifications")
	v.SetDefault("catalog.ttl", 60*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("checkout.low_stock_threshold", 3)
	v.SetDefault("checkout.max_discount_attempts", 5)
	v.SetDefault("checkout.commit_attempts", 3)
	v.SetDefault("checkout.skip_token", "/skip")
	v.SetDefault("checkout.cancel_token", "/cancel")
	v.SetDefault("reminder.interval", 24*time.Hour)
}

func (c Config) validate() error {
	var errs []error
	if c.SQLDB == "" {
		errs = append(errs, errors.New("sql_db is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if len(c.Broker.SeedBrokers) != 0 && len(c.Broker.SchemaRegistryURLs) == 0 {
		errs = append(errs, errors.New("broker.schema_registry_urls is required with seed_brokers"))
	}
	if c.Catalog.TTL <= 0 {
		errs = append(errs, errors.New("catalog.ttl must be positive"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry.max_attempts must be positive"))
	}
	if c.Checkout.CommitAttempts <= 0 {
		errs = append(errs, errors.New("checkout.commit_attempts must be positive"))
	}
	if c.Checkout.SkipToken == c.Checkout.CancelToken {
		errs = append(errs, errors.New("checkout skip and cancel tokens must differ"))
	}
	return errors.Join(errs...)
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	HTTPTimeout=%s
	SQLDB=<redacted>

	Redis:
	Addr=%q
	DB=%d
	SessionTTL=%s
	TLS=%t

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		Notifications=%q
	TLS=%t

	Catalog:
	TTL=%s

	Retry:
	MaxAttempts=%d
	BaseDelay=%s

	Checkout:
	LowStockThreshold=%d
	MaxDiscountAttempts=%d
	CommitAttempts=%d
	SkipToken=%q
	CancelToken=%q

	Reminder:
	Interval=%s

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.HTTPTimeout,
		c.Redis.Addr,
		c.Redis.DB,
		c.Redis.SessionTTL,
		c.Redis.TLS.Enabled(),
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.Notifications,
		c.Broker.TLS.Enabled(),
		c.Catalog.TTL,
		c.Retry.MaxAttempts,
		c.Retry.BaseDelay,
		c.Checkout.LowStockThreshold,
		c.Checkout.MaxDiscountAttempts,
		c.Checkout.CommitAttempts,
		c.Checkout.SkipToken,
		c.Checkout.CancelToken,
		c.Reminder.Interval,
	)
}
