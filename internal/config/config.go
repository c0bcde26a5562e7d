package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Web server configuration
	Web WebConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Window system configuration
	Window WindowConfig

	// Reminders connector configuration
	Connector ConnectorConfig

	// Logging configuration
	Log LogConfig

	// Report configuration
	Report ReportConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// Default database location, relative to the user's home directory
const (
	DefaultDatabaseDir  = ".config/taskfocus"
	DefaultDatabaseName = "taskfocus.db"
)

// ResolvePath returns the configured database file, falling back to
// ~/.config/taskfocus/taskfocus.db. The parent directory is created.
func (d DatabaseConfig) ResolvePath() (string, error) {
	path := d.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		path = filepath.Join(home, DefaultDatabaseDir, DefaultDatabaseName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create database directory")
	}
	return path, nil
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `envconfig:"pid_file"` // Path to PID file for daemon management
	LogFile string `envconfig:"log_file"` // Output of a detached daemon
}

// WindowConfig selects and tunes the window system
type WindowConfig struct {
	Backend     string        // auto, x11 or virtual
	Display     string        // X display; empty means $DISPLAY
	ScaleFactor float64       `envconfig:"scale_factor"` // Logical to physical ratio
	PrimaryXID  uint32        `envconfig:"primary_xid"`  // Existing X window adopted as the primary window
	RetryDelay  time.Duration `envconfig:"retry_delay"`  // Delay of the plain-tier payload retry
}

// ConnectorConfig holds reminders connector configuration
type ConnectorConfig struct {
	Path        string        // Connector executable
	Fallback    bool          // Allow the scripted fallback
	Development bool          // Development build: fallback on permission errors
	Timeout     time.Duration // Per-invocation timeout
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	Development bool
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `envconfig:"timezone"`
}

// Window backends
const (
	BackendAuto    = "auto"
	BackendX11     = "x11"
	BackendVirtual = "virtual"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means ResolvePath picks the default
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000, // Default port based on user id
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/taskfocus-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/taskfocus-%d.log", os.Getuid()),
		},
		Window: WindowConfig{
			Backend:     BackendAuto,
			ScaleFactor: 1.0,
			RetryDelay:  160 * time.Millisecond,
		},
		Connector: ConnectorConfig{
			Path:     "reminders-connector",
			Fallback: true,
			Timeout:  15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return errors.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return errors.New("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return errors.New("PID file path cannot be empty")
	}

	switch c.Window.Backend {
	case BackendAuto, BackendX11, BackendVirtual:
	default:
		return errors.Errorf("window backend must be one of auto, x11, virtual, got %q", c.Window.Backend)
	}

	if c.Window.ScaleFactor <= 0 {
		return errors.Errorf("scale factor must be positive, got %v", c.Window.ScaleFactor)
	}

	if c.Window.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}

	if c.Connector.Timeout <= 0 {
		return errors.New("connector timeout must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if _, err := time.LoadLocation(c.Report.TimeZone); err != nil {
		return errors.Wrapf(err, "invalid report time zone %q", c.Report.TimeZone)
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location returns the report time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Address returns host:port of the web server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Web:
    Host: %s
    Port: %d
  Daemon:
    PID File: %s
    Log File: %s
  Window:
    Backend: %s
    Display: %s
    Scale Factor: %v
    Primary XID: %#x
    Retry Delay: %v
  Connector:
    Path: %s
    Fallback: %v
    Development: %v
    Timeout: %v
  Log:
    Level: %s
    Development: %v
  Report:
    Time Zone: %s`,
		c.Database.Path,
		c.Web.Host,
		c.Web.Port,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Window.Backend,
		c.Window.Display,
		c.Window.ScaleFactor,
		c.Window.PrimaryXID,
		c.Window.RetryDelay,
		c.Connector.Path,
		c.Connector.Fallback,
		c.Connector.Development,
		c.Connector.Timeout,
		c.Log.Level,
		c.Log.Development,
		c.Report.TimeZone,
	)
}
