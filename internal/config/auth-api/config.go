package auth_api_config

import (
	"time"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/outbox"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	redisinfra "github.com/NordCoder/Warden/internal/repository/redis"
	"github.com/NordCoder/Warden/internal/services/auth-api/gate"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
	URL     string `mapstructure:"url"`
}

func (a App) Production() bool { return a.Env == "production" }

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type Storage struct {
	Driver string `mapstructure:"driver"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Redis struct {
	Enable    bool   `mapstructure:"enable"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (r Redis) AsClientConfig() redisinfra.Config {
	return redisinfra.Config{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

type RateLimit struct {
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
	MaxKeys int           `mapstructure:"max_keys"`
}

type Auth struct {
	AccessSecret       string        `mapstructure:"access_secret"`
	RefreshSecret      string        `mapstructure:"refresh_secret"`
	AccessTTL          time.Duration `mapstructure:"access_ttl"`
	RefreshTTL         time.Duration `mapstructure:"refresh_ttl"`
	VerifyTTL          time.Duration `mapstructure:"verify_ttl"`
	ResetTTL           time.Duration `mapstructure:"reset_ttl"`
	BcryptCost         int           `mapstructure:"bcrypt_cost"`
	ClockSkew          time.Duration `mapstructure:"clock_skew"`
	CookieName         string        `mapstructure:"cookie_name"`
	CookieDomain       string        `mapstructure:"cookie_domain"`
	CookiePath         string        `mapstructure:"cookie_path"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	MirrorAccessCookie bool          `mapstructure:"mirror_access_cookie"`
	AccessCookieName   string        `mapstructure:"access_cookie_name"`
}

type Password struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireDigit   bool `mapstructure:"require_digit"`
	RequireSpecial bool `mapstructure:"require_special"`
}

func (p Password) AsPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{
		MinLength:      p.MinLength,
		RequireUpper:   p.RequireUpper,
		RequireLower:   p.RequireLower,
		RequireDigit:   p.RequireDigit,
		RequireSpecial: p.RequireSpecial,
	}
}

type Gate struct {
	LoginPath     string   `mapstructure:"login_path"`
	DashboardPath string   `mapstructure:"dashboard_path"`
	CallbackParam string   `mapstructure:"callback_param"`
	PublicPaths   []string `mapstructure:"public_paths"`
	AuthOnlyPaths []string `mapstructure:"auth_only_paths"`
	AdminPaths    []string `mapstructure:"admin_paths"`
	APIPrefixes   []string `mapstructure:"api_prefixes"`
	// PublicAPIPrefixes are API routes that authenticate themselves.
	PublicAPIPrefixes []string `mapstructure:"public_api_prefixes"`
}

func (g Gate) AsGateConfig(a Auth) gate.Config {
	return gate.Config{
		LoginPath:         g.LoginPath,
		DashboardPath:     g.DashboardPath,
		CallbackParam:     g.CallbackParam,
		PublicPaths:       g.PublicPaths,
		AuthOnlyPaths:     g.AuthOnlyPaths,
		AdminPaths:        g.AdminPaths,
		APIPrefixes:       g.APIPrefixes,
		PublicAPIPrefixes: g.PublicAPIPrefixes,
		AccessCookieName:  a.AccessCookieName,
		CookiePath:        a.CookiePath,
		CookieDomain:      a.CookieDomain,
		CookieSecure:      a.CookieSecure,
	}
}

type Pages struct {
	Upstream string `mapstructure:"upstream"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig(version string) *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:         oc.Enable,
		Endpoint:       oc.OTLPEndpoint,
		ServiceName:    oc.ServiceName,
		ServiceVersion: version,
		SampleRatio:    oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App       App                 `mapstructure:"app"`
	Server    Server              `mapstructure:"server"`
	Storage   Storage             `mapstructure:"storage"`
	DB        pg.Config           `mapstructure:"db"`
	Redis     Redis               `mapstructure:"redis"`
	RateLimit RateLimit           `mapstructure:"ratelimit"`
	Auth      Auth                `mapstructure:"auth"`
	Password  Password            `mapstructure:"password"`
	Gate      Gate                `mapstructure:"gate"`
	Pages     Pages               `mapstructure:"pages"`
	Kafka     Kafka               `mapstructure:"kafka"`
	Outbox    outbox.RunnerConfig `mapstructure:"outbox"`
	OTEL      OTEL                `mapstructure:"otel"`
	Log       Log                 `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
