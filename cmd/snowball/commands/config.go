package commands

import (
	"github.com/mosaicnetworks/snowball/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Snowball   config.Config `mapstructure:",squash"`
	Txs        int           `mapstructure:"txs"`
	Payload    int64         `mapstructure:"payload"`
	InjectNode int64         `mapstructure:"inject-node"`
	LogFile    string        `mapstructure:"log-file"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values. A negative
//Payload or InjectNode means random.
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Snowball:   *config.NewDefaultConfig(),
		Txs:        1,
		Payload:    -1,
		InjectNode: -1,
		LogFile:    "",
	}
}
