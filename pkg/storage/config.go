package storage

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// DefaultPingTimeout bounds the connectivity check in Open.
const DefaultPingTimeout = 10 * time.Second

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required,gt=0,lte=65535"`
	Name     string `koanf:"name" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`

	// MaxConns sizes the pool; 0 keeps the pgxpool default.
	MaxConns int32 `koanf:"max_conns" validate:"gte=0"`

	PingTimeout time.Duration `koanf:"ping_timeout"`
}

// DSN builds a postgres:// connection string. The password is escaped.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	if c.Password == "" {
		u.User = url.User(c.User)
	}
	return u.String()
}

// String describes the target without credentials.
func (c DatabaseConfig) String() string {
	return fmt.Sprintf("%s@%s/%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name)
}
