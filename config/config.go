// Package config defines the application configuration structures.
//
// Separated from cmd to allow other packages (db, ssh, api) to
// depend on config without importing Cobra.
//
// Design decisions:
//   - One database target per process, chosen by Driver.
//   - Timeouts are stored as milliseconds so the JSON file stays readable.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Supported database drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// Config holds the database connection settings.
type Config struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Database string `json:"database"`
	Encrypt  bool   `json:"encrypt"`
	SSLMode  string `json:"ssl_mode,omitempty"`
	Path     string `json:"path,omitempty"` // sqlite file, ":memory:" allowed

	PoolMax          int `json:"pool_max"`
	PoolMinIdle      int `json:"pool_min_idle"`
	IdleTimeoutMS    int `json:"idle_timeout_ms"`
	ConnectTimeoutMS int `json:"connect_timeout_ms"`
	RequestTimeoutMS int `json:"request_timeout_ms"`

	SSH SSHConfig `json:"ssh"`
}

// SSHConfig holds SSH tunnel settings.
type SSHConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	User           string `json:"user,omitempty"`
	KeyPath        string `json:"key_path,omitempty"`
	KeyPassphrase  string `json:"key_passphrase,omitempty"`
	KnownHostsPath string `json:"known_hosts_path,omitempty"`
}

// DefaultDBConfig mirrors the pool settings the admin app has always used.
func DefaultDBConfig() Config {
	return Config{
		Driver:           DriverSQLServer,
		Host:             "localhost",
		Port:             1433,
		User:             "sa",
		Database:         "MvRodados",
		SSLMode:          "disable",
		PoolMax:          10,
		PoolMinIdle:      0,
		IdleTimeoutMS:    30000,
		ConnectTimeoutMS: 30000,
		RequestTimeoutMS: 30000,
		SSH:              SSHConfig{Port: 22},
	}
}

// IdleTimeout returns the pool idle timeout.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

// ConnectTimeout returns the connection timeout.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the per-statement timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// DriverName maps Driver to the database/sql driver registered for it.
func (c Config) DriverName() (string, error) {
	switch c.Driver {
	case DriverSQLServer, "mssql", "":
		return "sqlserver", nil
	case DriverPostgres, "pgx":
		return "pgx", nil
	case DriverSQLite, "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// DSN builds a driver-specific connection string.
// When an SSH tunnel is active, the caller should override Host/Port
// with the local tunnel endpoint.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverPostgres, "pgx":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return "host=" + c.Host +
			" port=" + strconv.Itoa(c.Port) +
			" user=" + c.User +
			" password=" + c.Password +
			" dbname=" + c.Database +
			" sslmode=" + sslMode +
			" connect_timeout=" + strconv.Itoa(c.ConnectTimeoutMS/1000)
	case DriverSQLite, "sqlite3":
		if c.Path == "" {
			return ":memory:"
		}
		return c.Path
	default:
		q := url.Values{}
		q.Set("database", c.Database)
		q.Set("encrypt", strconv.FormatBool(c.Encrypt))
		q.Set("TrustServerCertificate", "true")
		q.Set("connection timeout", strconv.Itoa(c.ConnectTimeoutMS/1000))
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			RawQuery: q.Encode(),
		}
		return u.String()
	}
}

// Redacted returns a loggable description of the target without secrets.
func (c Config) Redacted() string {
	if c.Driver == DriverSQLite || c.Driver == "sqlite3" {
		return "sqlite:" + c.DSN()
	}
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database)
}
