package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "SMARTMALL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SMARTMALL_DB_DSN"
	EnvDBHost = "SMARTMALL_DB_HOST"
	EnvDBUser = "SMARTMALL_DB_USER"
	EnvDBName = "SMARTMALL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App         AppConfig
	Service     ServiceConfig
	DB          DBConfig
	Redis       RedisConfig
	Courier     CourierConfig
	Fulfillment FulfillmentConfig
	Cron        CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Fulfillment.parseBonus(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTMALL_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTMALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SMARTMALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMARTMALL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTMALL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTMALL_DB_DSN"`
	Driver string `envconfig:"SMARTMALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTMALL_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTMALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTMALL_DB_USER"`
	LegacyPassword string `envconfig:"SMARTMALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTMALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTMALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTMALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTMALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTMALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTMALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	UseSQLite   bool `envconfig:"SMARTMALL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SMARTMALL_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTMALL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SMARTMALL_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTMALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTMALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTMALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTMALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTMALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTMALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTMALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CourierConfig struct {
	BaseURL     string        `envconfig:"SMARTMALL_COURIER_BASE_URL"`
	Token       string        `envconfig:"SMARTMALL_COURIER_TOKEN"`
	PartnerCode string        `envconfig:"SMARTMALL_COURIER_PARTNER_CODE"`
	Timeout     time.Duration `envconfig:"SMARTMALL_COURIER_TIMEOUT" default:"10s"`
	MaxRetries  int           `envconfig:"SMARTMALL_COURIER_MAX_RETRIES" default:"3"`
}

type FulfillmentConfig struct {
	DeliveryBonusRaw string `envconfig:"SMARTMALL_FULFILLMENT_DELIVERY_BONUS" default:"7000"`

	DeliveryBonus decimal.Decimal `ignored:"true"`
}

func (f *FulfillmentConfig) parseBonus() error {
	bonus, err := decimal.NewFromString(strings.TrimSpace(f.DeliveryBonusRaw))
	if err != nil {
		return fmt.Errorf("parsing delivery bonus %q: %w", f.DeliveryBonusRaw, err)
	}
	if bonus.IsNegative() {
		return fmt.Errorf("delivery bonus must not be negative: %s", bonus)
	}
	f.DeliveryBonus = bonus
	return nil
}

type CronConfig struct {
	SnapshotInterval time.Duration `envconfig:"SMARTMALL_CRON_SNAPSHOT_INTERVAL" default:"24h"`
	LockTTL          time.Duration `envconfig:"SMARTMALL_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
