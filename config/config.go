package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "10KB"

	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	MailProviderSMTP = "smtp"
	MailProviderLog  = "log"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int      `json:"port" yaml:"port"`
		MaxRequestBodySize string   `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		AllowedOrigins     []string `json:"allowedOrigins" yaml:"allowedOrigins"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
		RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
	} `json:"http" yaml:"http"`

	Store StoreConfig `json:"store" yaml:"store"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Mongo *MongoConfig `json:"mongo" yaml:"mongo"`

	// Redis is optional. An empty address disables the issuance lock
	// and session revocation backed by it.
	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Session SessionConfig `json:"session" yaml:"session"`

	CSRF CSRFConfig `json:"csrf" yaml:"csrf"`

	OTP OTPConfig `json:"otp" yaml:"otp"`

	Password PasswordConfig `json:"password" yaml:"password"`

	Accounts AccountsConfig `json:"accounts" yaml:"accounts"`

	Mail MailConfig `json:"mail" yaml:"mail"`

	// PubSub configuration for security event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
	// Format is json or text.
	Format string `json:"format" yaml:"format"`
	// Path is stdout, stderr or a file path.
	Path string `json:"path" yaml:"path"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	RequestsPerHour int `json:"requestsPerHour" yaml:"requestsPerHour"`
	Burst           int `json:"burst" yaml:"burst"`
}

// StoreConfig selects the account store backend.
type StoreConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	AutoMigrate bool   `json:"autoMigrate" yaml:"autoMigrate"`
}

type MongoConfig struct {
	URI            string        `json:"uri" yaml:"uri"`
	Database       string        `json:"database" yaml:"database"`
	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// SessionKindConfig holds the signing material of one account kind.
type SessionKindConfig struct {
	Secret string        `json:"secret" yaml:"secret"`
	TTL    time.Duration `json:"ttl" yaml:"ttl"`
}

// SessionConfig defines session token and cookie settings.
type SessionConfig struct {
	CookieName   string `json:"cookieName" yaml:"cookieName"`
	CookieDomain string `json:"cookieDomain" yaml:"cookieDomain"`
	Issuer       string `json:"issuer" yaml:"issuer"`
	Kinds        struct {
		Company SessionKindConfig `json:"company" yaml:"company"`
		Worker  SessionKindConfig `json:"worker" yaml:"worker"`
		Admin   SessionKindConfig `json:"admin" yaml:"admin"`
	} `json:"kinds" yaml:"kinds"`
}

type CSRFConfig struct {
	CookieName string        `json:"cookieName" yaml:"cookieName"`
	HeaderName string        `json:"headerName" yaml:"headerName"`
	TTL        time.Duration `json:"ttl" yaml:"ttl"`
	// SkipOutsideProduction disables enforcement when env is not production.
	SkipOutsideProduction bool `json:"skipOutsideProduction" yaml:"skipOutsideProduction"`
}

// OTPConfig defines one-time code issuance and verification limits.
type OTPConfig struct {
	Length              int           `json:"length" yaml:"length"`
	TTL                 time.Duration `json:"ttl" yaml:"ttl"`
	LockoutWindow       time.Duration `json:"lockoutWindow" yaml:"lockoutWindow"`
	DeliveryTimeout     time.Duration `json:"deliveryTimeout" yaml:"deliveryTimeout"`
	RegisterMaxAttempts int           `json:"registerMaxAttempts" yaml:"registerMaxAttempts"`
	ForgotMaxAttempts   int           `json:"forgotMaxAttempts" yaml:"forgotMaxAttempts"`
	MaxFailedAttempts   int           `json:"maxFailedAttempts" yaml:"maxFailedAttempts"`
	HashCost            int           `json:"hashCost" yaml:"hashCost"`
	IssueLockTTL        time.Duration `json:"issueLockTTL" yaml:"issueLockTTL"`
}

// PasswordConfig defines password hashing and rotation.
type PasswordConfig struct {
	BcryptCost int           `json:"bcryptCost" yaml:"bcryptCost"`
	Expiry     time.Duration `json:"expiry" yaml:"expiry"`
	MinLength  int           `json:"minLength" yaml:"minLength"`
}

type AccountsConfig struct {
	HandleSuffix         string   `json:"handleSuffix" yaml:"handleSuffix"`
	EmailPattern         string   `json:"emailPattern" yaml:"emailPattern"`
	RestrictedEmailWords []string `json:"restrictedEmailWords" yaml:"restrictedEmailWords"`
}

// MailConfig defines the outbound mail transport.
type MailConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
	TLS      bool   `json:"tls" yaml:"tls"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local", "google" or "gocloud"; empty disables publishing
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`

	// Topic URL for the gocloud provider, e.g. mem://security-events
	GoCloudURL string `json:"gocloudUrl" yaml:"gocloudUrl"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env.Env, EnvProduction)
}

// IsDevelopment reports whether internal error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env.Env, EnvDevelopment)
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	// A missing .env file is fine; real deployments inject the environment.
	_ = godotenv.Load()

	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// ApplyDefaults fills unset values with the service defaults.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.HTTP.RateLimit.RequestsPerHour == 0 {
		cfg.HTTP.RateLimit.RequestsPerHour = 3000
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverPostgres
	}

	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "auth_token"
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "bidhub"
	}
	for _, kind := range []*SessionKindConfig{&cfg.Session.Kinds.Company, &cfg.Session.Kinds.Worker, &cfg.Session.Kinds.Admin} {
		if kind.TTL == 0 {
			kind.TTL = 24 * time.Hour
		}
	}

	if cfg.CSRF.CookieName == "" {
		cfg.CSRF.CookieName = "csrfToken"
	}
	if cfg.CSRF.HeaderName == "" {
		cfg.CSRF.HeaderName = "X-CSRF-Token"
	}
	if cfg.CSRF.TTL == 0 {
		cfg.CSRF.TTL = time.Hour
	}

	applyOTPDefaults(&cfg.OTP)

	if cfg.Password.BcryptCost == 0 {
		cfg.Password.BcryptCost = 12
	}
	if cfg.Password.Expiry == 0 {
		cfg.Password.Expiry = 30 * 24 * time.Hour
	}
	if cfg.Password.MinLength == 0 {
		cfg.Password.MinLength = 8
	}

	if cfg.Accounts.HandleSuffix == "" {
		cfg.Accounts.HandleSuffix = ".BHCFamily"
	}
	if cfg.Accounts.EmailPattern == "" {
		cfg.Accounts.EmailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = MailProviderLog
	}
}

func applyOTPDefaults(otp *OTPConfig) {
	if otp.Length == 0 {
		otp.Length = 6
	}
	if otp.TTL == 0 {
		otp.TTL = 10 * time.Minute
	}
	if otp.LockoutWindow == 0 {
		otp.LockoutWindow = time.Hour
	}
	if otp.DeliveryTimeout == 0 {
		otp.DeliveryTimeout = 30 * time.Second
	}
	if otp.RegisterMaxAttempts == 0 {
		otp.RegisterMaxAttempts = 5
	}
	if otp.ForgotMaxAttempts == 0 {
		otp.ForgotMaxAttempts = 4
	}
	if otp.MaxFailedAttempts == 0 {
		otp.MaxFailedAttempts = 5
	}
	if otp.HashCost == 0 {
		otp.HashCost = 12
	}
	if otp.IssueLockTTL == 0 {
		otp.IssueLockTTL = otp.DeliveryTimeout + 15*time.Second
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
