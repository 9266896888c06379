package main

import (
	"log"
	"os"

	"git.sr.ht/~flobar/imbal/cmd/cutoff"
	"git.sr.ht/~flobar/imbal/cmd/describe"
	"git.sr.ht/~flobar/imbal/cmd/eval"
	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/cmd/resample"
	"git.sr.ht/~flobar/imbal/cmd/run"
	"git.sr.ht/~flobar/imbal/cmd/version"
	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logging bool

var root = &cobra.Command{
	Use:   "imbal",
	Short: "Resampling and cost sensitive cutoff selection for imbalanced binary classification",
	PersistentPreRun: func(*cobra.Command, []string) {
		imbal.SetLog(logging || internal.LogEnabled())
	},
	SilenceUsage: true,
}

func init() {
	root.PersistentFlags().BoolVarP(&logging, "log", "L", false, "enable debug logging")
	root.AddCommand(
		cutoff.CMD,
		describe.CMD,
		eval.CMD,
		resample.CMD,
		run.CMD,
		version.CMD,
	)
}

func main() {
	// A missing .env file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot load .env: %v", err)
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
