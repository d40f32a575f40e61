package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the default name of the configuration file read by
	// the command line, without extension.
	DefaultConfigFile = "snowball"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultNodes        = 10
	DefaultSeed         = 1
	DefaultWireEncoding = false
	DefaultStore        = false
	DefaultServiceAddr  = "127.0.0.1:8000"
	DefaultNoService    = true
	DefaultTimeout      = 30 * time.Second
	DefaultLoadPeers    = false
)

// Config contains all the configuration properties of a simulation.
type Config struct {
	// DataDir is the top-level directory containing the configuration file,
	// peers.json and the decision journal.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// Nodes is the number of nodes in the network. It must exceed K.
	Nodes int `mapstructure:"nodes"`

	// Params are the protocol parameters shared by every node.
	Params consensus.Params `mapstructure:",squash"`

	// Seed seeds the peer sampler. Simulations with the same seed and the same
	// injections route messages identically.
	Seed int64 `mapstructure:"seed"`

	// WireEncoding makes the router encode every envelope it enqueues and
	// decode it before dispatch.
	WireEncoding bool `mapstructure:"wire-encoding"`

	// Store activates the persistent decision journal.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Timeout bounds the wait for a transaction to be decided by every node
	// that knows it.
	Timeout time.Duration `mapstructure:"timeout"`

	// LoadPeers reads the membership from peers.json in DataDir instead of
	// generating Nodes sequential peers.
	LoadPeers bool `mapstructure:"load-peers"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:      DefaultDataDir(),
		LogLevel:     DefaultLogLevel,
		Nodes:        DefaultNodes,
		Params:       consensus.DefaultParams(),
		Seed:         DefaultSeed,
		WireEncoding: DefaultWireEncoding,
		Store:        DefaultStore,
		DatabaseDir:  DefaultDatabaseDir(),
		NoService:    DefaultNoService,
		ServiceAddr:  DefaultServiceAddr,
		Timeout:      DefaultTimeout,
		LoadPeers:    DefaultLoadPeers,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// SetLogger replaces the root logger, typically to attach hooks.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// RootLogger returns the underlying logrus Logger, creating it if necessary.
func (c *Config) RootLogger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger
}

// Logger returns a formatted logrus Entry, with prefix set to "snowball".
func (c *Config) Logger() *logrus.Entry {
	return c.RootLogger().WithField("prefix", "snowball")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level snowball
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Snowball")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Snowball")
		} else {
			return filepath.Join(home, ".snowball")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
