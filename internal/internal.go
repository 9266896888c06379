package internal

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Version is the version of imbal.
const Version = "v0.1.0"

// Environment variables that provide defaults for the standard flags.
const (
	EnvConfig  = "IMBAL_CONFIG"
	EnvWorkers = "IMBAL_WORKERS"
	EnvLog     = "IMBAL_LOG"
)

// Flags is used to define the standard command-line parameters for
// imbal sub commands.
type Flags struct {
	Config  string // Path to the configuration file
	Workers int    // Number of parallel workers
	Seed    int    // Seed of the random number generators
}

// Init initializes the standard commandline arguments for the given
// subcommand.
func (flags *Flags) Init(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flags.Config, "config", "c", "",
		"set path to the configuration file (default $"+EnvConfig+")")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0,
		"set the number of parallel workers (default $"+EnvWorkers+" or number of CPUs)")
	cmd.Flags().IntVarP(&flags.Seed, "seed", "s", 0,
		"set the seed (overwrites the setting in the configuration file)")
}

// ReadConfig reads the configuration and applies the command line
// flags.  Unset flags are taken from the environment.
func (flags *Flags) ReadConfig() (*Config, error) {
	if flags.Config == "" {
		flags.Config = os.Getenv(EnvConfig)
	}
	if flags.Workers == 0 {
		flags.Workers, _ = strconv.Atoi(os.Getenv(EnvWorkers))
	}
	config, err := ReadConfig(flags.Config)
	if err != nil {
		return nil, err
	}
	UpdateInConfig(&config.Workers, flags.Workers)
	UpdateInConfig(&config.Seed, flags.Seed)
	return config, nil
}

// LogEnabled returns true if logging is enabled in the environment.
func LogEnabled() bool {
	ok, _ := strconv.ParseBool(os.Getenv(EnvLog))
	return ok
}
