package eval

import (
	"log"
	"os"

	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/eval"
	"github.com/spf13/cobra"
)

var flags = struct {
	cutoff float64
	comma  string
	name   string
}{}

// CMD defines the imbal eval command.
var CMD = &cobra.Command{
	Use:   "eval [predictions.csv]",
	Short: "Evaluate predictions at a fixed cutoff",
	Long: `Print the confusion matrix and the derived metrics of the
probabilities and labels of a csv file with the columns prob and
label.  If no file is given, the predictions are read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run:  run,
}

func init() {
	CMD.Flags().Float64VarP(&flags.cutoff, "cutoff", "t", .5, "set the cutoff")
	CMD.Flags().StringVarP(&flags.comma, "comma", "d", ",", "set the csv delimiter")
	CMD.Flags().StringVarP(&flags.name, "name", "N", "eval", "set the prefix of the output lines")
}

func run(_ *cobra.Command, args []string) {
	in := os.Stdin
	if len(args) == 1 {
		var err error
		in, err = os.Open(args[0])
		chk(err)
		defer in.Close()
	}
	probs, labels, err := internal.ReadPredictions(in, flags.comma)
	chk(err)
	m, err := eval.Evaluate(probs, labels, flags.cutoff)
	chk(err)
	chk(m.Write(os.Stdout, flags.name))
}

func chk(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
