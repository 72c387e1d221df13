package ops

import (
	"os"
	"strings"
	"time"

	"bank/internal/chaos"
	"bank/internal/quote"
	"bank/internal/quote/oracle"
	"bank/internal/risk"
	"bank/internal/server"
	"bank/pkg/conn"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// EnvPrefix prefixes every environment variable, e.g. BANK_SERVER_ADDR.
const EnvPrefix = "BANK"

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Bank      BankConfig      `mapstructure:"bank"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

type PostgresConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"sslMode"`
	ConnString string `mapstructure:"connString"`
	LogSQL     bool   `mapstructure:"logSql"`
}

type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotencyTTL"`
}

type OracleConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	DefaultSymbols []string      `mapstructure:"defaultSymbols"`
	Paper          bool          `mapstructure:"paper"`
	Chaos          ChaosConfig   `mapstructure:"chaos"`
}

// ChaosConfig injects oracle faults, for drills against staging and paper setups.
type ChaosConfig struct {
	Seed         int64         `mapstructure:"seed"`
	FailRate     float64       `mapstructure:"failRate"`
	AuthFailRate float64       `mapstructure:"authFailRate"`
	MaxDelay     time.Duration `mapstructure:"maxDelay"`
}

type BankConfig struct {
	InitialVolume string `mapstructure:"initialVolume"`
	Currency      string `mapstructure:"currency"`
	// Customers seeds the in-memory directory when postgres is disabled.
	Customers []string `mapstructure:"customers"`
}

type RiskConfig struct {
	Version          uint16        `mapstructure:"version"`
	KillSwitch       bool          `mapstructure:"killSwitch"`
	MaxOrderQty      int64         `mapstructure:"maxOrderQty"`
	MaxOrderNotional string        `mapstructure:"maxOrderNotional"`
	OrderRateLimit   int           `mapstructure:"orderRateLimit"`
	OrderRateWindow  time.Duration `mapstructure:"orderRateWindow"`
}

type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Server    server.Config
	Postgres  PostgresSettings
	Redis     RedisSettings
	Oracle    OracleSettings
	Bank      BankSettings
	Risk      risk.Config
	Profiling ProfilingConfig
}

type PostgresSettings struct {
	Enabled bool
	Option  conn.Option
}

type RedisSettings struct {
	Enabled        bool
	Option         conn.RedisOption
	IdempotencyTTL time.Duration
}

type OracleSettings struct {
	HTTP  oracle.HTTPConfig
	Quote quote.Config
	Paper bool
	Chaos chaos.Config
}

type BankSettings struct {
	InitialVolume decimal.Decimal
	Currency      string
	Customers     []string
}

var defaults = map[string]any{
	"server.addr":           ":8080",
	"server.readTimeout":    "10s",
	"server.writeTimeout":   "30s",
	"postgres.enabled":      false,
	"postgres.host":         "localhost",
	"postgres.port":         5432,
	"postgres.sslMode":      "disable",
	"redis.enabled":         false,
	"redis.addr":            "localhost:6379",
	"redis.idempotencyTTL":  "24h",
	"oracle.connectTimeout": "5s",
	"oracle.requestTimeout": "15s",
	"oracle.defaultSymbols": quote.DefaultSymbols,
	"oracle.paper":          false,
	"bank.initialVolume":    "1000000000.00",
	"bank.currency":         "USD",
	"risk.orderRateWindow":  "1s",
	"profiling.enabled":     false,
}

// Load reads an optional config file (JSON or YAML), then .env and BANK_*
// environment variables, which win over the file.
func Load(path string) (Loaded, error) {
	v, err := newViper(path)
	if err != nil {
		return Loaded{}, err
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return resolve(cfg)
}

// LoadRisk reads only the risk section, used for hot reload.
func LoadRisk(path string) (risk.Config, error) {
	v, err := newViper(path)
	if err != nil {
		return risk.Config{}, err
	}

	var cfg RiskConfig
	if err := v.UnmarshalKey("risk", &cfg); err != nil {
		return risk.Config{}, errors.Wrap(err, "decode risk config")
	}
	return resolveRisk(cfg)
}

func newViper(path string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logs.Warnf("ops: load .env, err: %+v", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		_ = v.BindEnv(key)
	}
	for _, key := range []string{
		"postgres.user", "postgres.password", "postgres.database", "postgres.connString", "postgres.logSql",
		"redis.password", "redis.db",
		"oracle.endpoint", "oracle.username", "oracle.password",
		"oracle.chaos.seed", "oracle.chaos.failRate", "oracle.chaos.authFailRate", "oracle.chaos.maxDelay",
		"bank.customers",
		"risk.version", "risk.killSwitch", "risk.maxOrderQty", "risk.maxOrderNotional", "risk.orderRateLimit",
		"profiling.serverAddress",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	return v, nil
}

func resolve(cfg FileConfig) (Loaded, error) {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Bank.Currency))
	if money.GetCurrency(currency) == nil {
		return Loaded{}, errors.Errorf("config bank.currency: unknown currency %q", cfg.Bank.Currency)
	}

	initial, err := decimal.NewFromString(strings.TrimSpace(cfg.Bank.InitialVolume))
	if err != nil {
		return Loaded{}, errors.Errorf("config bank.initialVolume: %q is not a number", cfg.Bank.InitialVolume)
	}
	if initial.IsNegative() {
		return Loaded{}, errors.Errorf("config bank.initialVolume: must not be negative, got %s", initial.String())
	}

	if !cfg.Oracle.Paper && strings.TrimSpace(cfg.Oracle.Endpoint) == "" {
		return Loaded{}, errors.New("config oracle.endpoint: required unless oracle.paper is set")
	}
	if cfg.Postgres.Enabled && cfg.Postgres.ConnString == "" && cfg.Postgres.Database == "" {
		return Loaded{}, errors.New("config postgres.database: required when postgres is enabled")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return Loaded{}, errors.New("config redis.addr: required when redis is enabled")
	}

	chaosCfg := chaos.Config{
		Seed:         cfg.Oracle.Chaos.Seed,
		FailRate:     cfg.Oracle.Chaos.FailRate,
		AuthFailRate: cfg.Oracle.Chaos.AuthFailRate,
		MaxDelay:     cfg.Oracle.Chaos.MaxDelay,
	}
	if err := chaosCfg.Validate(); err != nil {
		return Loaded{}, errors.Errorf("config oracle.chaos: %s", err.Error())
	}

	riskCfg, err := resolveRisk(cfg.Risk)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Server: server.Config{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Postgres: PostgresSettings{
			Enabled: cfg.Postgres.Enabled,
			Option: conn.Option{
				Host:       cfg.Postgres.Host,
				Port:       cfg.Postgres.Port,
				User:       cfg.Postgres.User,
				Password:   cfg.Postgres.Password,
				Database:   cfg.Postgres.Database,
				SSLMode:    cfg.Postgres.SSLMode,
				ConnString: cfg.Postgres.ConnString,
				LogSQL:     cfg.Postgres.LogSQL,
			},
		},
		Redis: RedisSettings{
			Enabled: cfg.Redis.Enabled,
			Option: conn.RedisOption{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			},
			IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		},
		Oracle: OracleSettings{
			HTTP: oracle.HTTPConfig{
				Endpoint:       strings.TrimSpace(cfg.Oracle.Endpoint),
				Username:       cfg.Oracle.Username,
				Password:       cfg.Oracle.Password,
				ConnectTimeout: cfg.Oracle.ConnectTimeout,
				RequestTimeout: cfg.Oracle.RequestTimeout,
			},
			Quote: quote.Config{
				DefaultSymbols: cfg.Oracle.DefaultSymbols,
				Currency:       currency,
			},
			Paper: cfg.Oracle.Paper,
			Chaos: chaosCfg,
		},
		Bank: BankSettings{
			InitialVolume: initial,
			Currency:      currency,
			Customers:     cfg.Bank.Customers,
		},
		Risk:      riskCfg,
		Profiling: cfg.Profiling,
	}, nil
}

func resolveRisk(cfg RiskConfig) (risk.Config, error) {
	if cfg.MaxOrderQty < 0 {
		return risk.Config{}, errors.Errorf("config risk.maxOrderQty: must not be negative, got %d", cfg.MaxOrderQty)
	}
	if cfg.OrderRateLimit < 0 {
		return risk.Config{}, errors.Errorf("config risk.orderRateLimit: must not be negative, got %d", cfg.OrderRateLimit)
	}

	notional := decimal.Zero
	if s := strings.TrimSpace(cfg.MaxOrderNotional); s != "" {
		n, err := decimal.NewFromString(s)
		if err != nil {
			return risk.Config{}, errors.Errorf("config risk.maxOrderNotional: %q is not a number", cfg.MaxOrderNotional)
		}
		notional = n
	}

	return risk.Config{
		Version:          cfg.Version,
		KillSwitch:       cfg.KillSwitch,
		MaxOrderQty:      cfg.MaxOrderQty,
		MaxOrderNotional: notional,
		OrderRateLimit:   cfg.OrderRateLimit,
		OrderRateWindow:  cfg.OrderRateWindow,
	}, nil
}
