package version

import (
	"fmt"
	"os"
	"runtime"

	"git.sr.ht/~flobar/imbal/internal"
	"github.com/spf13/cobra"
)

// CMD defines the imbal version command.
var CMD = &cobra.Command{
	Use:   "version",
	Short: "Print imbal's version",
	Args:  cobra.NoArgs,
	Run:   run,
}

func run(_ *cobra.Command, args []string) {
	fmt.Printf("%s version: %s [%s/%s %s]\n", os.Args[0], internal.Version,
		runtime.GOOS, runtime.GOARCH, runtime.Version())
}
