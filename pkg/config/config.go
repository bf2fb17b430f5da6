package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type PeriodConfig struct {
	Winners   int    `mapstructure:"WINNERS"`
	BasePool  int64  `mapstructure:"BASE_POOL"`
	CloseCron string `mapstructure:"CLOSE_CRON"`
}

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Log        struct {
		Level      string `mapstructure:"LEVEL"`
		File       string `mapstructure:"FILE"`
		MaxSizeMB  int    `mapstructure:"MAX_SIZE_MB"`
		MaxBackups int    `mapstructure:"MAX_BACKUPS"`
		MaxAgeDays int    `mapstructure:"MAX_AGE_DAYS"`
		Compress   bool   `mapstructure:"COMPRESS"`
	} `mapstructure:"LOG"`
	TLS struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Exporter    string  `mapstructure:"EXPORTER"` // "", "http" or "grpc"
		Addr        string  `mapstructure:"ADDR"`
		Insecure    bool    `mapstructure:"INSECURE"`
		SampleRatio float64 `mapstructure:"SAMPLE_RATIO"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		Tracing        bool   `mapstructure:"TRACING"`
		Metrics        bool   `mapstructure:"METRICS"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Vault struct {
		Enable    bool   `mapstructure:"ENABLE"`
		Addr      string `mapstructure:"ADDR"`
		MountPath string `mapstructure:"MOUNT_PATH"`
	} `mapstructure:"VAULT"`
	Auth struct {
		JWTSecret string `mapstructure:"JWT_SECRET"`
		Issuer    string `mapstructure:"ISSUER"`
	} `mapstructure:"AUTH"`
	Bootstrap struct {
		Campaign struct {
			Slug          string `mapstructure:"SLUG"`
			CandidateName string `mapstructure:"CANDIDATE_NAME"`
			PartyName     string `mapstructure:"PARTY_NAME"`
			Position      string `mapstructure:"POSITION"`
			TargetAmount  int64  `mapstructure:"TARGET_AMOUNT"`
		} `mapstructure:"CAMPAIGN"`
	} `mapstructure:"BOOTSTRAP"`
	AccessControl struct {
		Model  string `mapstructure:"MODEL"`
		Policy string `mapstructure:"POLICY"`
	} `mapstructure:"ACCESS_CONTROL"`
	Profiling struct {
		PyroscopeAddr string `mapstructure:"PYROSCOPE_ADDR"`
		Mutex         bool   `mapstructure:"MUTEX"`
	} `mapstructure:"PROFILING"`
	Snowflake struct {
		NodeID int64 `mapstructure:"NODE_ID"`
	} `mapstructure:"SNOWFLAKE"`
	Engine struct {
		CurrencyCode            string           `mapstructure:"CURRENCY_CODE"`
		MinTargetAmount         int64            `mapstructure:"MIN_TARGET_AMOUNT"`
		Timezone                string           `mapstructure:"TIMEZONE"`
		MinRewardPercentage     int64            `mapstructure:"MIN_REWARD_PERCENTAGE"`
		MaxRewardPercentage     int64            `mapstructure:"MAX_REWARD_PERCENTAGE"`
		DefaultRewardPercentage int64            `mapstructure:"DEFAULT_REWARD_PERCENTAGE"`
		DailySharePercentage    int64            `mapstructure:"DAILY_SHARE_PERCENTAGE"`
		Scoring                 map[string]int64 `mapstructure:"SCORING"`
		EngagementWeights       map[string]int64 `mapstructure:"ENGAGEMENT_WEIGHTS"`
		Daily                   PeriodConfig     `mapstructure:"DAILY"`
		Weekly                  PeriodConfig     `mapstructure:"WEEKLY"`
		LeaderboardCacheTTL     time.Duration    `mapstructure:"LEADERBOARD_CACHE_TTL"`
		PeriodCloseLockTTL      time.Duration    `mapstructure:"PERIOD_CLOSE_LOCK_TTL"`
		CampaignExpiryInterval  time.Duration    `mapstructure:"CAMPAIGN_EXPIRY_INTERVAL"`
	} `mapstructure:"ENGINE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "campaign-rewards")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("VAULT.MOUNT_PATH", "secret")
	v.SetDefault("SNOWFLAKE.NODE_ID", 1)

	v.SetDefault("ENGINE.CURRENCY_CODE", "NGN")
	v.SetDefault("ENGINE.TIMEZONE", "Africa/Lagos")
	v.SetDefault("ENGINE.MIN_TARGET_AMOUNT", 100_000_000)
	v.SetDefault("ENGINE.MIN_REWARD_PERCENTAGE", 50)
	v.SetDefault("ENGINE.MAX_REWARD_PERCENTAGE", 90)
	v.SetDefault("ENGINE.DEFAULT_REWARD_PERCENTAGE", 70)
	v.SetDefault("ENGINE.DAILY_SHARE_PERCENTAGE", 30)
	v.SetDefault("ENGINE.DAILY.WINNERS", 10)
	v.SetDefault("ENGINE.DAILY.BASE_POOL", 2_000_000)
	v.SetDefault("ENGINE.DAILY.CLOSE_CRON", "5 0 * * *")
	v.SetDefault("ENGINE.WEEKLY.WINNERS", 5)
	v.SetDefault("ENGINE.WEEKLY.BASE_POOL", 10_000_000)
	v.SetDefault("ENGINE.WEEKLY.CLOSE_CRON", "15 0 * * 1")
	v.SetDefault("ENGINE.LEADERBOARD_CACHE_TTL", 30*time.Second)
	v.SetDefault("ENGINE.PERIOD_CLOSE_LOCK_TTL", 2*time.Minute)
	v.SetDefault("ENGINE.CAMPAIGN_EXPIRY_INTERVAL", 15*time.Minute)
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Warn("config.yaml not found, using defaults and environment")
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil && cfg.Vault.Enable {
		// START - Vault
		client := p.Vault
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath(cfg.Vault.MountPath))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Info("Success Get Secret")

		get := func(key, fallback string) string {
			if val, ok := secret.Data.Data[key].(string); ok && val != "" {
				return val
			}
			return fallback
		}

		cfg.Database.User = get("database_user", cfg.Database.User)
		cfg.Database.Password = get("database_password", cfg.Database.Password)
		cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
		cfg.Auth.JWTSecret = get("jwt_secret", cfg.Auth.JWTSecret)
		// END - Vault
	}

	return &cfg
}
