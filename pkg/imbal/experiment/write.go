package experiment

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Summary holds the results of a sweep.
type Summary struct {
	Reports  []Report  `json:"reports"`
	Failures []Failure `json:"failures"`
}

// Encode writes the summary as indented JSON.
func (s Summary) Encode(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Write writes the summary to the given path overwriting any existing
// file.  If the path ends with .gz, the output is gzip compressed.
func (s Summary) Write(path string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() {
		if exx := out.Close(); exx != nil && err == nil {
			err = fmt.Errorf("write %s: %w", path, exx)
		}
	}()
	var w io.Writer = out
	if strings.HasSuffix(path, ".gz") {
		zip := gzip.NewWriter(out)
		defer func() {
			if exx := zip.Close(); exx != nil && err == nil {
				err = fmt.Errorf("write %s: %w", path, exx)
			}
		}()
		w = zip
	}
	if err := s.Encode(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
