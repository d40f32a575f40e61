package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for snowball
var RootCmd = &cobra.Command{
	Use:              "snowball",
	Short:            "snowball consensus simulator",
	TraverseChildren: true,
}
