package describe

import (
	"fmt"
	"io"
	"log"
	"os"

	"git.sr.ht/~flobar/imbal/internal"
	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
)

var flags = struct {
	internal.Flags
}{}

// CMD defines the imbal describe command.
var CMD = &cobra.Command{
	Use:   "describe",
	Short: "Describe the class balance and the features of a dataset",
	Args:  cobra.NoArgs,
	Run:   run,
}

func init() {
	flags.Init(CMD)
}

func run(_ *cobra.Command, args []string) {
	config, err := flags.ReadConfig()
	chk(err)
	d, err := internal.ReadDataset(config.Data)
	chk(err)
	chk(describe(os.Stdout, d))
}

// summary holds the summary statistics of one feature of one class.
type summary struct {
	mean, sd, min, median, max float64
}

func summarize(xs stats.Float64Data) (summary, error) {
	var (
		s   summary
		err error
	)
	for _, f := range []struct {
		dest *float64
		fn   func(stats.Float64Data) (float64, error)
	}{
		{&s.mean, stats.Mean},
		{&s.min, stats.Min},
		{&s.median, stats.Median},
		{&s.max, stats.Max},
	} {
		if *f.dest, err = f.fn(xs); err != nil {
			return s, err
		}
	}
	if len(xs) > 1 {
		if s.sd, err = stats.StandardDeviationSample(xs); err != nil {
			return s, err
		}
	}
	return s, nil
}

func describe(out io.Writer, d *imbal.Dataset) error {
	f := formater{out: out}
	c := d.Counts()
	f.printf("rows %d\n", d.Len())
	f.printf("positive %d\n", c.Positive)
	f.printf("negative %d\n", c.Negative)
	f.printf("ratio %f\n", c.Ratio())
	f.printf("class,feature,mean,sd,min,median,max\n")
	for _, class := range []bool{imbal.Positive, imbal.Negative} {
		idx := d.Indices(class)
		if len(idx) == 0 {
			continue
		}
		sub := d.Subset(idx)
		for _, name := range d.Features() {
			col, err := sub.Column(name)
			if err != nil {
				return err
			}
			s, err := summarize(col)
			if err != nil {
				return fmt.Errorf("describe %s: %w", name, err)
			}
			f.printf("%d,%q,%g,%g,%g,%g,%g\n", imbal.Label(class), name, s.mean, s.sd, s.min, s.median, s.max)
		}
	}
	return f.err
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
