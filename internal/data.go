package internal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"git.sr.ht/~flobar/imbal/pkg/imbal"
	"github.com/xuri/excelize/v2"
)

// ReadDataset reads the dataset from the configured csv or xlsx file.
// The label of a row is true iff its raw label value is not smaller
// than the configured positive threshold.
func ReadDataset(c DataConfig) (*imbal.Dataset, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(c.Path, c.Sheet)
	default:
		records, err = readCSVFile(c.Path, c.Comma)
	}
	if err != nil {
		return nil, fmt.Errorf("readDataset %s: %w", c.Path, err)
	}
	d, err := NewDataset(records, c)
	if err != nil {
		return nil, fmt.Errorf("readDataset %s: %w", c.Path, err)
	}
	return d, nil
}

func readCSVFile(path, comma string) ([][]string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return ReadCSV(in, comma)
}

// ReadCSV reads all records from the given csv input.  An empty comma
// defaults to ','.
func ReadCSV(in io.Reader, comma string) ([][]string, error) {
	r := csv.NewReader(in)
	if comma != "" {
		c, n := utf8.DecodeRuneInString(comma)
		if n != len(comma) {
			return nil, fmt.Errorf("invalid csv delimiter %q", comma)
		}
		r.Comma = c
	}
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func readXLSX(path, sheet string) (records [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if exx := f.Close(); exx != nil && err == nil {
			err = exx
		}
	}()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no sheets")
		}
		sheet = sheets[0]
	}
	return f.GetRows(sheet)
}

// NewDataset creates a dataset from the given records.  The first
// record is the header.  If no features are configured, all columns
// except the label and the dropped columns are used.
func NewDataset(records [][]string, c DataConfig) (*imbal.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}
	header := make([]string, len(records[0]))
	cols := make(map[string]int, len(header))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
		cols[header[i]] = i
	}
	label, ok := cols[c.Label]
	if !ok {
		return nil, fmt.Errorf("missing label column %q", c.Label)
	}
	features := c.Features
	if len(features) == 0 {
		drop := make(map[string]bool, len(c.Drop)+1)
		drop[c.Label] = true
		for _, name := range c.Drop {
			drop[name] = true
		}
		for _, h := range header {
			if !drop[h] {
				features = append(features, h)
			}
		}
	}
	idx := make([]int, len(features))
	for i, name := range features {
		j, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		idx[i] = j
	}
	xs := make([][]float64, 0, len(records)-1)
	labels := make([]bool, 0, len(records)-1)
	for r, record := range records[1:] {
		x := make([]float64, len(idx))
		for i, j := range idx {
			v, err := cell(record, j)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %q: %w", r+2, features[i], err)
			}
			x[i] = v
		}
		raw, err := cell(record, label)
		if err != nil {
			return nil, fmt.Errorf("row %d: label: %w", r+2, err)
		}
		xs = append(xs, x)
		labels = append(labels, raw >= c.Positive)
	}
	return imbal.New(features, xs, labels)
}

func cell(record []string, i int) (float64, error) {
	if i >= len(record) || strings.TrimSpace(record[i]) == "" {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
}

// ReadPredictions reads probabilities and 0/1 labels from the prob and
// label columns of the given csv input.
func ReadPredictions(in io.Reader, comma string) ([]float64, []bool, error) {
	records, err := ReadCSV(in, comma)
	if err != nil {
		return nil, nil, fmt.Errorf("readPredictions: %w", err)
	}
	d, err := NewDataset(records, DataConfig{Label: "label", Positive: 1, Features: []string{"prob"}})
	if err != nil {
		return nil, nil, fmt.Errorf("readPredictions: %w", err)
	}
	probs, err := d.Column("prob")
	if err != nil {
		return nil, nil, fmt.Errorf("readPredictions: %w", err)
	}
	return probs, d.Labels(), nil
}
