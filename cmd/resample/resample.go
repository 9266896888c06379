package resample

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"

	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"git.sr.ht/~flobar/imbal/pkg/imbal/resample"
	"github.com/spf13/cobra"
)

var flags = struct {
	internal.Flags
	rs  resample.Config
	out string
}{}

// CMD defines the imbal resample command.
var CMD = &cobra.Command{
	Use:   "resample",
	Short: "Write a resampled dataset as csv",
	Long: `Resample the configured dataset and write it as csv.  Besides
the features and the label, each row has its origin (original,
duplicate or synthetic) and the ids of its source and neighbor rows.`,
	Args: cobra.NoArgs,
	Run:  run,
}

func init() {
	flags.Init(CMD)
	CMD.Flags().StringVarP(&flags.rs.Strategy, "strategy", "S", resample.NameSMOTE,
		"set the resampling strategy")
	CMD.Flags().IntVarP(&flags.rs.K, "k", "k", 0, "set the number of neighbors for smote")
	CMD.Flags().Float64VarP(&flags.rs.Ratio, "ratio", "r", 0, "set the target minority to majority ratio")
	CMD.Flags().Float64Var(&flags.rs.Eps, "eps", 0, "set the neighborhood radius for dbsmote")
	CMD.Flags().IntVar(&flags.rs.MinPts, "minpts", 0, "set the density threshold for dbsmote")
	CMD.Flags().Float64VarP(&flags.rs.P, "p", "p", 0, "set the probability of positive rows for rose")
	CMD.Flags().IntVarP(&flags.rs.N, "n", "n", 0, "set the number of rows for rose")
	CMD.Flags().StringVarP(&flags.out, "out", "o", "", "set the output file (default stdout)")
}

func run(_ *cobra.Command, args []string) {
	config, err := flags.ReadConfig()
	chk(err)
	d, err := internal.ReadDataset(config.Data)
	chk(err)
	r, err := resample.New(flags.rs)
	chk(err)
	seed := max(config.Seed, 1)
	ret, err := r.Resample(d, imbal.NewRand(uint64(seed), imbal.StreamResample))
	chk(err)
	out := os.Stdout
	if flags.out != "" {
		out, err = os.Create(flags.out)
		chk(err)
		defer out.Close()
	}
	chk(write(out, ret))
}

func write(w io.Writer, d *imbal.Dataset) error {
	cw := csv.NewWriter(w)
	record := append(d.Features(), "label", "origin", "source", "neighbor")
	if err := cw.Write(record); err != nil {
		return err
	}
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		record = record[:0]
		for _, x := range row.X {
			record = append(record, strconv.FormatFloat(x, 'g', -1, 64))
		}
		record = append(record,
			strconv.Itoa(imbal.Label(row.Label)),
			row.Origin.String(),
			strconv.Itoa(row.Source),
			strconv.Itoa(row.Neighbor))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func chk(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}
