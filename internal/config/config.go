package config

import (
	"fmt"
	"strings"

	"github.com/rickb777/period"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr = ":3000"

	// Token lifetimes follow ISO-8601 durations, matching the deployed
	// policy: twenty calendar years for tokens, ten minutes for codes.
	DefaultAccessTokenTTL  = "P20Y"
	DefaultAuthCodeTTL     = "PT10M"
	DefaultRefreshTokenTTL = "P20Y"
)

type MySQLConfig struct {
	Dsn             string `mapstructure:"dsn"`
	TablePrefix     string `mapstructure:"tablePrefix"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int    `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int    `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

// StorageConfig selects which backend implements the repositories.
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // "mysql" or "redis"
	MySQL   MySQLConfig `mapstructure:"mysql"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type GrantsConfig struct {
	AuthorizationCode bool `mapstructure:"authorizationCode"`
	ClientCredentials bool `mapstructure:"clientCredentials"`
	RefreshToken      bool `mapstructure:"refreshToken"`
}

type TTLConfig struct {
	AccessToken  string `mapstructure:"accessToken"`
	AuthCode     string `mapstructure:"authCode"`
	RefreshToken string `mapstructure:"refreshToken"`
}

// TTLPeriods are the parsed calendar-aware lifetimes.
type TTLPeriods struct {
	AccessToken  period.Period
	AuthCode     period.Period
	RefreshToken period.Period
}

// Parse validates the configured ISO-8601 duration strings.
func (c TTLConfig) Parse() (TTLPeriods, error) {
	var out TTLPeriods
	var err error
	if out.AccessToken, err = period.Parse(c.AccessToken); err != nil {
		return out, fmt.Errorf("invalid accessToken ttl: %w", err)
	}
	if out.AuthCode, err = period.Parse(c.AuthCode); err != nil {
		return out, fmt.Errorf("invalid authCode ttl: %w", err)
	}
	if out.RefreshToken, err = period.Parse(c.RefreshToken); err != nil {
		return out, fmt.Errorf("invalid refreshToken ttl: %w", err)
	}
	return out, nil
}

type AuthenticationConfig struct {
	// LoginURL is a template with a %s slot receiving the urlencoded URL to
	// return to after the platform login completes.
	LoginURL string `mapstructure:"loginURL"`
	// CookieName is the platform session cookie to forward.
	CookieName string `mapstructure:"cookieName"`
	// CheckURL is the platform endpoint that resolves a session to a user.
	CheckURL string `mapstructure:"checkURL"`
}

type Config struct {
	Debug          bool                 `mapstructure:"debug"`
	ListenAddr     string               `mapstructure:"listenAddr"`
	SiteName       string               `mapstructure:"siteName"`
	TemplateDir    string               `mapstructure:"templateDir"`
	PrivateKeyPath string               `mapstructure:"privateKeyPath"`
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Grants         GrantsConfig         `mapstructure:"grants"`
	TTL            TTLConfig            `mapstructure:"ttl"`
	Storage        StorageConfig        `mapstructure:"storage"`
	// Scopes overrides the built-in scope catalog when non-empty.
	Scopes map[string]string `mapstructure:"scopes"`
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.SiteName == "" {
		c.SiteName = "lidraughts.org"
	}
	if c.TTL.AccessToken == "" {
		c.TTL.AccessToken = DefaultAccessTokenTTL
	}
	if c.TTL.AuthCode == "" {
		c.TTL.AuthCode = DefaultAuthCodeTTL
	}
	if c.TTL.RefreshToken == "" {
		c.TTL.RefreshToken = DefaultRefreshTokenTTL
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "mysql"
	}
	if c.Authentication.LoginURL == "" {
		return fmt.Errorf("authentication.loginURL is required")
	}
	if !strings.Contains(c.Authentication.LoginURL, "%s") {
		return fmt.Errorf("authentication.loginURL must contain a %%s referrer slot")
	}
	if c.Authentication.CookieName == "" {
		return fmt.Errorf("authentication.cookieName is required")
	}
	if c.Authentication.CheckURL == "" {
		return fmt.Errorf("authentication.checkURL is required")
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigFile(filename)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("grants.authorizationCode", true)
	viper.SetDefault("grants.clientCredentials", false)
	viper.SetDefault("grants.refreshToken", true)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
