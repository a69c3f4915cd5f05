package types

import (
	"errors"
	"net/url"
	"time"

	"github.com/hay-kot/criterio"
)

// Config holds backend selection and parameters for store.Open and the
// board components built on top of it.
type Config struct {
	Backend      string        `json:"backend" yaml:"backend"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	API          APIConfig     `json:"api" yaml:"api"`
	Local        LocalConfig   `json:"local" yaml:"local"`
	Server       ServerConfig  `json:"server" yaml:"server"`
	SyncInterval time.Duration `json:"sync_interval" yaml:"sync_interval"`
	Assignee     string        `json:"assignee" yaml:"assignee"`
}

// APIConfig configures the remote API store.
type APIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// LocalConfig configures the local slot store.
type LocalConfig struct {
	Slot  string `json:"slot" yaml:"slot"`
	Watch bool   `json:"watch" yaml:"watch"`
}

// ServerConfig configures the reference API server.
type ServerConfig struct {
	Addr   string `json:"addr" yaml:"addr"`
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// Supported client backends.
const (
	BackendAPI   = "api"
	BackendLocal = "local"
)

// Supported server drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
)

// Defaults applied by WithDefaults.
const (
	DefaultBaseURL      = "http://localhost:3001/api"
	DefaultSlot         = "tasks"
	DefaultSyncInterval = 30 * time.Second
	DefaultAssignee     = "Diego"
	DefaultServerAddr   = ":3001"
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrBaseURLInvalid     = errors.New("api base URL must be an absolute http(s) URL")
	ErrSyncIntervalNonPos = errors.New("sync interval must be positive")
	ErrDriverUnknown      = errors.New("unknown server driver")
	ErrDSNRequired        = errors.New("postgres driver requires a dsn")
)

var knownBackends = map[string]bool{
	BackendAPI:   true,
	BackendLocal: true,
}

var knownDrivers = map[string]bool{
	DriverSQLite:   true,
	DriverPostgres: true,
	DriverLocal:    true,
}

// WithDefaults returns a copy of c with empty fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.Local.Slot == "" {
		c.Local.Slot = DefaultSlot
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.Assignee == "" {
		c.Assignee = DefaultAssignee
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Driver == "" {
		c.Server.Driver = DriverSQLite
	}
	return c
}

// Validate checks that the client side of the Config is well-formed. Field
// problems are reported together as criterio field errors, each wrapping one
// of the sentinel errors above.
func (c Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("backend", c.Backend, validBackend),
		c.validateAPI(),
		criterio.Run("sync_interval", c.SyncInterval, positiveInterval),
	)
}

// ValidateServer checks the server section.
func (c Config) ValidateServer() error {
	return criterio.ValidateStruct(
		criterio.Run("server.driver", c.Server.Driver, validDriver),
		c.validateDSN(),
	)
}

func (c Config) validateAPI() error {
	if c.Backend != BackendAPI {
		return nil
	}
	return criterio.Run("api.base_url", c.API.BaseURL, validBaseURL)
}

func (c Config) validateDSN() error {
	if c.Server.Driver != DriverPostgres || c.Server.DSN != "" {
		return nil
	}
	return criterio.NewFieldErrors("server.dsn", ErrDSNRequired)
}

func validBackend(b string) error {
	if b == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[b] {
		return ErrBackendUnknown
	}
	return nil
}

func validDriver(d string) error {
	if !knownDrivers[d] {
		return ErrDriverUnknown
	}
	return nil
}

func validBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBaseURLInvalid
	}
	return nil
}

func positiveInterval(d time.Duration) error {
	if d <= 0 {
		return ErrSyncIntervalNonPos
	}
	return nil
}
