package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
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

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver          string
	DSN             string
	SQLitePath      string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret string
	// TokenTTL of zero issues session tokens without an expiry.
	TokenTTL time.Duration
}

type AuthConfig struct {
	UserDomains    []string
	AdminDomains   []string
	OTPTTL         time.Duration
	ResendCooldown time.Duration
}

type MailConfig struct {
	Provider      string
	APIKey        string
	From          string
	Timeout       time.Duration
	Outbox        bool
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type RealtimeConfig struct {
	Bridge       string
	Channel      string
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

type JobsConfig struct {
	CleanupSchedule   string
	VerificationGrace time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Auth             AuthConfig
	Mail             MailConfig
	Realtime         RealtimeConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LOSTFOUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
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

	cfg.Auth.UserDomains = normalizeDomains(cfg.Auth.UserDomains)
	cfg.Auth.AdminDomains = normalizeDomains(cfg.Auth.AdminDomains)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwtsecret is required")
	}
	if len(c.Auth.UserDomains) == 0 && len(c.Auth.AdminDomains) == 0 {
		return fmt.Errorf("at least one of auth.userdomains or auth.admindomains is required")
	}
	if c.Realtime.Bridge == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("realtime.bridge=redis needs redis.enabled")
	}
	if c.Mail.Outbox && !c.Redis.Enabled {
		return fmt.Errorf("mail.outbox needs redis.enabled")
	}
	return nil
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(d), "@")))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sqlitepath", "lostfound.db")
	v.SetDefault("database.maxopen", 30)
	v.SetDefault("database.maxidle", 10)
	v.SetDefault("database.connmaxlifetime", "30m")
	v.SetDefault("database.querytimeout", "5s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.tokenttl", "0s")

	v.SetDefault("auth.userdomains", []string{"lpu.in"})
	v.SetDefault("auth.admindomains", []string{"lpu.co.in"})
	v.SetDefault("auth.otpttl", "10m")
	v.SetDefault("auth.resendcooldown", "30s")

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.apikey", "")
	v.SetDefault("mail.from", "LPU Lost & Found <noreply@valdoria-software.works>")
	v.SetDefault("mail.timeout", "10s")
	v.SetDefault("mail.outbox", false)
	v.SetDefault("mail.stream", "mail:outbox")
	v.SetDefault("mail.group", "mail-workers")
	v.SetDefault("mail.consumer", "worker-1")
	v.SetDefault("mail.claiminterval", "30s")

	v.SetDefault("realtime.bridge", "none")
	v.SetDefault("realtime.channel", "lostfound:events")
	v.SetDefault("realtime.sendbuffer", 32)
	v.SetDefault("realtime.pinginterval", "30s")
	v.SetDefault("realtime.pongwait", "60s")
	v.SetDefault("realtime.writewait", "10s")

	v.SetDefault("jobs.cleanupschedule", "0 0 * * * *") // hourly
	v.SetDefault("jobs.verificationgrace", "24h")

	v.SetDefault("allowcorsorigins", []string{})
}
