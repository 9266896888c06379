package run

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/experiment"
	"github.com/spf13/cobra"
)

var flags = struct {
	internal.Flags
	out     string
	timeout string
}{}

// CMD defines the imbal run command.
var CMD = &cobra.Command{
	Use:   "run",
	Short: "Run the configured experiments",
	Long: `Run the configured experiments and write a summary of the
reports and failed runs as JSON.  If the output file ends with .gz,
the summary is gzip compressed.`,
	Args: cobra.NoArgs,
	Run:  run,
}

func init() {
	flags.Init(CMD)
	CMD.Flags().StringVarP(&flags.out, "out", "o", "",
		"set the output file (overwrites the setting in the configuration file; default stdout)")
	CMD.Flags().StringVarP(&flags.timeout, "timeout", "t", "",
		"set the timeout of the fit (overwrites the setting in the configuration file)")
}

func run(_ *cobra.Command, args []string) {
	config, err := flags.ReadConfig()
	chk(err)
	internal.UpdateInConfig(&config.Out, flags.out)
	internal.UpdateInConfig(&config.Timeout, flags.timeout)
	configs, err := config.ExperimentConfigs()
	chk(err)
	d, err := internal.ReadDataset(config.Data)
	chk(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	reports, failures, err := experiment.Sweep(ctx, d, configs, config.Workers)
	chk(err)
	s := experiment.Summary{Reports: reports, Failures: failures}
	if config.Out == "" {
		chk(s.Encode(os.Stdout))
	} else {
		chk(s.Write(config.Out))
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "failed: %s [%s]: %s\n", f.Name, f.Kind, f.Message)
	}
}

func chk(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
