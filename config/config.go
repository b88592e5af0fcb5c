package config

import (
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
)

// BaseConfig is the application configuration root. go-config hydrates it
// from config/app.json plus environment overrides and calls Validate before
// the app boots.
type BaseConfig struct {
	Auth        Auth        `json:"auth" koanf:"auth"`
	Server      Server      `json:"server" koanf:"server"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
}

func (a BaseConfig) Validate() error {
	if err := a.Auth.Validate(); err != nil {
		return err
	}
	if a.Persistence.DSN == "" {
		return errors.New("persistence.dsn is required", errors.CategoryValidation).
			WithTextCode("CONFIG_MISSING_DSN")
	}
	return nil
}

func (a BaseConfig) GetAuth() Auth {
	return a.Auth
}

func (a BaseConfig) GetServer() Server {
	return a.Server
}

func (a BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

// Auth carries token signing and middleware options
type Auth struct {
	SigningKey      string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod   string   `json:"signing_method" koanf:"signing_method"`
	ContextKey      string   `json:"context_key" koanf:"context_key"`
	TokenExpiration int      `json:"token_expiration" koanf:"token_expiration"`
	TokenLookup     string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme      string   `json:"auth_scheme" koanf:"auth_scheme"`
	Issuer          string   `json:"issuer" koanf:"issuer"`
	Audience        []string `json:"audience" koanf:"audience"`
}

// Validate refuses to boot without a signing key. A generated fallback would
// silently invalidate every session on restart, so the failure has to be loud
// and immediate.
func (a Auth) Validate() error {
	if a.SigningKey == "" {
		return errors.New("auth.signing_key is required", errors.CategoryValidation).
			WithTextCode("CONFIG_MISSING_SIGNING_KEY")
	}
	return nil
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "identity"
	}
	return a.ContextKey
}

func (a Auth) GetTokenExpiration() int {
	return a.TokenExpiration
}

func (a Auth) GetTokenLookup() string {
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

// Server carries the HTTP listener options
type Server struct {
	Addr  string `json:"addr" koanf:"addr"`
	Debug bool   `json:"debug" koanf:"debug"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

func (s Server) GetDebug() bool {
	return s.Debug
}

// Persistence carries database options
type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetServer() string {
	return p.GetDSN()
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
