package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Driver is postgres or memory.
	Driver string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	JWTIssuer        string
	PasswordResetTTL time.Duration
}

type AdminConfig struct {
	IdleTTL     time.Duration
	MaxLifetime time.Duration
	CookieName  string
	HeaderName  string
	Retention   time.Duration
}

type TierLimits struct {
	Free     int
	Standard int
	Premium  int
}

type UsageConfig struct {
	// Backend is postgres, redis or memory.
	Backend string
	// Period is monthly or daily.
	Period    string
	Limits    TierLimits
	Retention time.Duration
}

type PaymentConfig struct {
	WebhookSecret      string
	SignatureTolerance time.Duration
	GatewayURL         string
}

type MailConfig struct {
	ResetURL string
	From     string
}

type AlertConfig struct {
	LoginFailuresPerHour      int
	AdminLoginFailuresPerHour int
	QuotaExceededPerHour      int
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MaxLen        int64
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Admin            AdminConfig
	Usage            UsageConfig
	Payment          PaymentConfig
	Mail             MailConfig
	Alerts           AlertConfig
	RateLimit        RateLimitConfig
	Worker           WorkerConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("JSON4AI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations that would break token, session or quota invariants.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Security.JWTAccessSecret == "" || c.Security.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("security.jwtaccesssecret and security.jwtrefreshsecret are required"))
	}
	if c.Security.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("security.jwtaccessttl must be positive"))
	}
	if c.Security.JWTAccessTTL >= c.Security.JWTRefreshTTL {
		errs = append(errs, errors.New("security.jwtaccessttl must be shorter than security.jwtrefreshttl"))
	}

	if c.Admin.IdleTTL <= 0 || c.Admin.MaxLifetime <= 0 {
		errs = append(errs, errors.New("admin.idlettl and admin.maxlifetime must be positive"))
	}
	if c.Admin.CookieName == "" && c.Admin.HeaderName == "" {
		errs = append(errs, errors.New("admin.cookiename or admin.headername is required"))
	}

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required for the postgres storage driver"))
	}

	switch c.Usage.Backend {
	case "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("usage.backend %q is not supported", c.Usage.Backend))
	}
	if c.Usage.Backend == "postgres" && c.Storage.Driver != "postgres" {
		errs = append(errs, errors.New("usage.backend postgres requires storage.driver postgres"))
	}
	switch c.Usage.Period {
	case "monthly", "daily":
	default:
		errs = append(errs, fmt.Errorf("usage.period %q is not supported", c.Usage.Period))
	}

	limits := c.Usage.Limits
	if limits.Free < 0 || limits.Standard < 0 || limits.Premium < 0 {
		errs = append(errs, errors.New("usage.limits must not be negative"))
	}
	if limits.Free > limits.Standard || limits.Standard > limits.Premium {
		errs = append(errs, errors.New("usage.limits must satisfy free <= standard <= premium"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtrefreshsecret", "")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.jwtissuer", "json4ai")
	v.SetDefault("security.passwordresetttl", "30m")

	v.SetDefault("admin.idlettl", "30m")
	v.SetDefault("admin.maxlifetime", "8h")
	v.SetDefault("admin.cookiename", "admin_session")
	v.SetDefault("admin.headername", "X-Admin-Session")
	v.SetDefault("admin.retention", "168h")

	v.SetDefault("usage.backend", "postgres")
	v.SetDefault("usage.period", "monthly")
	v.SetDefault("usage.limits.free", 10)
	v.SetDefault("usage.limits.standard", 100)
	v.SetDefault("usage.limits.premium", 1000)
	v.SetDefault("usage.retention", "2160h") // 90 days

	v.SetDefault("payment.webhooksecret", "")
	v.SetDefault("payment.signaturetolerance", "5m")
	v.SetDefault("payment.gatewayurl", "")

	v.SetDefault("mail.reseturl", "http://localhost:3000/reset-password")
	v.SetDefault("mail.from", "no-reply@json4ai.local")

	v.SetDefault("alerts.loginfailuresperhour", 50)
	v.SetDefault("alerts.adminloginfailuresperhour", 5)
	v.SetDefault("alerts.quotaexceededperhour", 100)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("worker.stream", "json4ai:tasks")
	v.SetDefault("worker.group", "json4ai-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.maxlen", 10000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("allowcorsorigins", []string{})
}
