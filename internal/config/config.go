package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Bank       BankConfig
	Fallback   FallbackConfig
	Sentry     SentryConfig
	Cache      CacheConfig
	Cron       CronConfig
}

type DeploymentConfig struct {
	Mode string `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// BillingConfig holds the engine-wide billing policy. It is immutable after
// startup and passed explicitly into every service so tests can inject
// alternate configs without shared mutable state.
type BillingConfig struct {
	// Timezone is the IANA timezone all civil-date resolution happens in
	Timezone string `validate:"required"`
	// VATRatePercent is applied on the net amount, default 21 (Argentina IVA)
	VATRatePercent float64
	// GraceDays is added to the anchor date to compute a charge's due date
	DueGraceDays int
	// DunningThreshold is the stage at which a fallback intent is opened
	DunningThreshold int
	// DefaultAdapter names the bank direct-debit channel adapter
	DefaultAdapter string
	// LockTTLSeconds bounds how long a stuck worker can wedge a job lock
	LockTTLSeconds int
	Jobs           JobFlags
}

// JobFlags gates each step of the cron tick independently
type JobFlags struct {
	RunAnchor          bool
	PrepareBatch       bool
	ExportBatch        bool
	ReconcileBatch     bool
	FallbackCreate     bool
	FallbackStatusSync bool
}

type BankConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type FallbackConfig struct {
	Enabled  bool
	Provider string
	BaseURL  string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

type CacheConfig struct {
	Enabled bool
}

// CronConfig drives the scheduler binary. TickSchedule is a standard five
// field cron expression evaluated in the billing timezone.
type CronConfig struct {
	TickSchedule string
}

func NewConfig() (*Configuration, error) {
	// Local development convenience, missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cobranza")

	v.SetEnvPrefix("COBRANZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "local")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("billing.timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("billing.vatratepercent", 21)
	v.SetDefault("billing.duegracedays", 5)
	v.SetDefault("billing.dunningthreshold", 2)
	v.SetDefault("billing.defaultadapter", "galicia-debits")
	v.SetDefault("billing.lockttlseconds", 600)
	v.SetDefault("billing.jobs.runanchor", true)
	v.SetDefault("billing.jobs.preparebatch", true)
	v.SetDefault("billing.jobs.exportbatch", false)
	v.SetDefault("billing.jobs.reconcilebatch", false)
	v.SetDefault("billing.jobs.fallbackcreate", false)
	v.SetDefault("billing.jobs.fallbackstatussync", false)
	v.SetDefault("bank.timeoutseconds", 30)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cron.tickschedule", "0 6 * * *")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("invalid billing timezone %q: %w", c.Billing.Timezone, err)
	}
	return nil
}

// Location resolves the configured billing timezone. Validate guarantees it
// loads, so a failure here is a programming error.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		panic(fmt.Sprintf("billing timezone %q did not load: %v", c.Timezone, err))
	}
	return loc
}

// GetDefaultConfig returns a default configuration for local development and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "local"},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: "debug"},
		Billing: BillingConfig{
			Timezone:         "America/Argentina/Buenos_Aires",
			VATRatePercent:   21,
			DueGraceDays:     5,
			DunningThreshold: 2,
			DefaultAdapter:   "galicia-debits",
			LockTTLSeconds:   600,
			Jobs: JobFlags{
				RunAnchor:          true,
				PrepareBatch:       true,
				ExportBatch:        true,
				ReconcileBatch:     true,
				FallbackCreate:     true,
				FallbackStatusSync: true,
			},
		},
		Fallback: FallbackConfig{Enabled: true, Provider: "mercadopago-qr"},
		Cache:    CacheConfig{Enabled: true},
		Cron:     CronConfig{TickSchedule: "0 6 * * *"},
	}
}
