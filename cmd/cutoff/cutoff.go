package cutoff

import (
	"fmt"
	"io"
	"log"
	"os"

	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/threshold"
	"github.com/spf13/cobra"
)

var flags = struct {
	grid    threshold.Grid
	cost    threshold.CostMatrix
	comma   string
	workers int
	curve   bool
	roc     bool
}{}

// CMD defines the imbal cutoff command.
var CMD = &cobra.Command{
	Use:   "cutoff [predictions.csv]",
	Short: "Search the cost optimal cutoff",
	Long: `Search the cutoff with the minimal expected cost for the
probabilities and labels of a csv file with the columns prob and
label.  If no file is given, the predictions are read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run:  run,
}

func init() {
	CMD.Flags().Float64Var(&flags.grid.Start, "start", threshold.DefaultGrid.Start, "set the first cutoff")
	CMD.Flags().Float64Var(&flags.grid.End, "end", threshold.DefaultGrid.End, "set the last cutoff")
	CMD.Flags().Float64Var(&flags.grid.Step, "step", threshold.DefaultGrid.Step, "set the cutoff step")
	CMD.Flags().Float64Var(&flags.cost.FP, "fp", 1, "set the cost of a false positive")
	CMD.Flags().Float64Var(&flags.cost.FN, "fn", 1, "set the cost of a false negative")
	CMD.Flags().StringVarP(&flags.comma, "comma", "d", ",", "set the csv delimiter")
	CMD.Flags().IntVarP(&flags.workers, "workers", "w", 1, "set the number of parallel workers")
	CMD.Flags().BoolVarP(&flags.curve, "curve", "C", false, "print the whole curve")
	CMD.Flags().BoolVarP(&flags.roc, "roc", "R", false, "print the ROC points of the curve")
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
	cutoffs, err := flags.grid.Cutoffs()
	chk(err)
	res, err := threshold.Options{Workers: flags.workers}.Optimize(probs, labels, cutoffs, flags.cost)
	chk(err)
	if flags.roc {
		chk(printROC(os.Stdout, res.Curve))
		return
	}
	chk(printResult(os.Stdout, res, flags.curve))
}

func printROC(out io.Writer, curve threshold.Curve) error {
	f := formater{out: out}
	fpr, tpr := curve.ROC()
	f.printf("fpr,tpr\n")
	for i := range fpr {
		f.printf("%g,%g\n", fpr[i], tpr[i])
	}
	return f.err
}

func printResult(out io.Writer, res threshold.Result, curve bool) error {
	f := formater{out: out}
	if curve {
		f.printf("cutoff,tpr,fpr,accuracy,cost,tp,fp,tn,fn\n")
		for _, p := range res.Curve {
			f.printf("%g,%g,%g,%g,%g,%d,%d,%d,%d\n", p.Cutoff, p.TPR, p.FPR, p.Accuracy, p.Cost,
				p.Matrix.TP, p.Matrix.FP, p.Matrix.TN, p.Matrix.FN)
		}
		return f.err
	}
	f.printf("cutoff %g\n", res.Best.Cutoff)
	f.printf("cost %g\n", res.Best.Cost)
	f.printf("auc %f\n", res.AUC)
	f.printf("exact-auc %f\n", res.ExactAUC)
	if f.err != nil {
		return f.err
	}
	return res.Best.Matrix.Write(out, "best")
}

type formater struct {
	out io.Writer
	err error
}

func (f *formater) printf(format string, args ...interface{}) {
	if f.err != nil {
		return
	}
	_, err := fmt.Fprintf(f.out, format, args...)
	f.err = err
}

func chk(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
