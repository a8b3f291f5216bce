// Package config loads the service configuration from YAML with env
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicBaseURL is the externally reachable base URL; the
		// provider callback URLs are derived from it.
		PublicBaseURL string `yaml:"public_base_url"`
		// FrontendURL is where browsers land after a flow finishes.
		FrontendURL    string `yaml:"frontend_url"`
		ReadTimeout    string `yaml:"read_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		IdleTimeout    string `yaml:"idle_timeout"`
		ShutdownGrace  string `yaml:"shutdown_grace"`
		MaxHeaderBytes int    `yaml:"max_header_bytes"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver  string `yaml:"driver"`
		DSN     string `yaml:"dsn"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	State struct {
		TTL string `yaml:"ttl"`
	} `yaml:"state"`

	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		AllowDemoUser bool   `yaml:"allow_demo_user"`
		DemoUserID    string `yaml:"demo_user_id"`
	} `yaml:"auth"`

	Security struct {
		// base64(32 bytes), encrypts stored provider credentials
		MasterKey string `yaml:"master_key"`
	} `yaml:"security"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Enabled            bool   `yaml:"enabled"`
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
	} `yaml:"log"`

	Providers struct {
		Twitter struct {
			Enabled        bool   `yaml:"enabled"`
			ConsumerKey    string `yaml:"consumer_key"`
			ConsumerSecret string `yaml:"consumer_secret"`
			CallbackURL    string `yaml:"callback_url"` // empty => derived from public_base_url
		} `yaml:"twitter"`
		LinkedIn struct {
			Enabled      bool     `yaml:"enabled"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURL  string   `yaml:"redirect_url"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"linkedin"`
		Instagram struct {
			Enabled      bool     `yaml:"enabled"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			RedirectURL  string   `yaml:"redirect_url"`
			Scopes       []string `yaml:"scopes"`
			UsePKCE      bool     `yaml:"use_pkce"`
		} `yaml:"instagram"`
	} `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:8080"
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:3000/connections"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.IdleTimeout == "" {
		c.Server.IdleTimeout = "60s"
	}
	if c.Server.ShutdownGrace == "" {
		c.Server.ShutdownGrace = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}
	if c.Auth.DemoUserID == "" {
		c.Auth.DemoUserID = "demo-user"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.Providers.LinkedIn.Scopes) == 0 {
		c.Providers.LinkedIn.Scopes = []string{"openid", "profile", "email"}
	}
	if len(c.Providers.Instagram.Scopes) == 0 {
		c.Providers.Instagram.Scopes = []string{"user_profile"}
	}

	// validate string durations
	for _, d := range []string{
		c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.IdleTimeout,
		c.Server.ShutdownGrace, c.State.TTL, c.Rate.Window,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: bad duration %q: %w", d, err)
		}
	}

	c.applyEnvOverrides()

	// Demo user never survives prod.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Auth.AllowDemoUser = false
	}

	// Derive callback URLs from the public base when unset.
	base := strings.TrimRight(c.Server.PublicBaseURL, "/")
	if c.Providers.Twitter.CallbackURL == "" {
		c.Providers.Twitter.CallbackURL = base + "/oauth/twitter/callback"
	}
	if c.Providers.LinkedIn.RedirectURL == "" {
		c.Providers.LinkedIn.RedirectURL = base + "/oauth/linkedin/callback"
	}
	if c.Providers.Instagram.RedirectURL == "" {
		c.Providers.Instagram.RedirectURL = base + "/oauth/instagram/callback"
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides lets deployments inject secrets without writing
// them to the YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("CONNECT_STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CONNECT_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("CONNECT_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("CONNECT_JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("CONNECT_MASTER_KEY"); ok {
		c.Security.MasterKey = v
	}
	if v, ok := getEnvStr("TWITTER_CONSUMER_KEY"); ok {
		c.Providers.Twitter.ConsumerKey = v
	}
	if v, ok := getEnvStr("TWITTER_CONSUMER_SECRET"); ok {
		c.Providers.Twitter.ConsumerSecret = v
	}
	if v, ok := getEnvStr("LINKEDIN_CLIENT_ID"); ok {
		c.Providers.LinkedIn.ClientID = v
	}
	if v, ok := getEnvStr("LINKEDIN_CLIENT_SECRET"); ok {
		c.Providers.LinkedIn.ClientSecret = v
	}
	if v, ok := getEnvStr("INSTAGRAM_CLIENT_ID"); ok {
		c.Providers.Instagram.ClientID = v
	}
	if v, ok := getEnvStr("INSTAGRAM_CLIENT_SECRET"); ok {
		c.Providers.Instagram.ClientSecret = v
	}
	if v, ok := getEnvBool("CONNECT_ALLOW_DEMO_USER"); ok {
		c.Auth.AllowDemoUser = v
	}
	if v, ok := getEnvStr("CONNECT_SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
}

// Validate rejects configurations that cannot serve at all. Provider
// blocks are checked only when enabled: a missing secret on an enabled
// provider is a boot error, not a per-request surprise.
func (c *Config) Validate() error {
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.driver postgres requires a dsn")
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.kind redis requires an addr")
	}
	if !c.Auth.AllowDemoUser && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config: auth.jwt_secret is required unless allow_demo_user is set")
	}
	p := &c.Providers
	if p.Twitter.Enabled && (p.Twitter.ConsumerKey == "" || p.Twitter.ConsumerSecret == "") {
		return fmt.Errorf("config: twitter enabled without consumer credentials")
	}
	if p.LinkedIn.Enabled && (p.LinkedIn.ClientID == "" || p.LinkedIn.ClientSecret == "") {
		return fmt.Errorf("config: linkedin enabled without client credentials")
	}
	if p.Instagram.Enabled && (p.Instagram.ClientID == "" || p.Instagram.ClientSecret == "") {
		return fmt.Errorf("config: instagram enabled without client credentials")
	}
	return nil
}

// StateTTL returns the parsed state TTL.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.State.TTL)
	return d
}

// Duration parses a validated duration field.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
