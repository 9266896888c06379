package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"git.sr.ht/~flobar/imbal/pkg/imbal/experiment"
	"git.sr.ht/~flobar/imbal/pkg/imbal/ml"
	"git.sr.ht/~flobar/imbal/pkg/imbal/resample"
	"git.sr.ht/~flobar/imbal/pkg/imbal/threshold"
	"github.com/BurntSushi/toml"
)

// Config defines the command's configuration.
type Config struct {
	Data          DataConfig           `json:"data" toml:"data"`
	TrainFraction float64              `json:"trainFraction" toml:"trainFraction"`
	Seed          int                  `json:"seed" toml:"seed"`
	Workers       int                  `json:"workers" toml:"workers"`
	DefaultCutoff float64              `json:"defaultCutoff" toml:"defaultCutoff"`
	Timeout       string               `json:"timeout" toml:"timeout"`
	Grid          threshold.Grid       `json:"grid" toml:"grid"`
	Cost          threshold.CostMatrix `json:"cost" toml:"cost"`
	Out           string               `json:"out" toml:"out"`
	Experiments   []ExperimentConfig   `json:"experiments" toml:"experiments"`
}

// DataConfig configures the input dataset.
type DataConfig struct {
	Path     string   `json:"path" toml:"path"`
	Sheet    string   `json:"sheet" toml:"sheet"` // xlsx only
	Comma    string   `json:"comma" toml:"comma"` // csv only
	Label    string   `json:"label" toml:"label"`
	Positive float64  `json:"positive" toml:"positive"` // label = raw >= positive
	Features []string `json:"features" toml:"features"`
	Drop     []string `json:"drop" toml:"drop"`
}

// ExperimentConfig configures one experiment.  Unset costs, grids and
// seeds are taken from the global configuration.
type ExperimentConfig struct {
	Name       string                `json:"name" toml:"name"`
	Resample   resample.Config       `json:"resample" toml:"resample"`
	Classifier ml.Config             `json:"classifier" toml:"classifier"`
	Cost       *threshold.CostMatrix `json:"cost,omitempty" toml:"cost"`
	Grid       *threshold.Grid       `json:"grid,omitempty" toml:"grid"`
	Seed       int                   `json:"seed,omitempty" toml:"seed"`
}

// UpdateInConfig updates the value in dest with val if the according
// value is not the zero-type for the underlying type.  Dest must be a
// pointer type to either string, int, float64 or bool.  Otherwise the
// function panics.
func UpdateInConfig(dest, val interface{}) {
	switch dest.(type) {
	case *string:
		v := val.(string)
		if val != "" {
			(*dest.(*string)) = v
		}
	case *int:
		v := val.(int)
		if v != 0 {
			(*dest.(*int)) = v
		}
	case *float64:
		v := val.(float64)
		if v != 0 {
			(*dest.(*float64)) = v
		}
	case *bool:
		v := val.(bool)
		if v {
			(*dest.(*bool)) = v
		}
	default:
		panic("bad type")
	}
}

// ReadConfig reads the config from a json or toml file.  If the name
// is empty, an empty configuration is returned.  If name has the
// prefix '{' and the suffix '}' the name is interpreted as a json
// string and parsed accordingly.
func ReadConfig(name string) (*Config, error) {
	var config Config
	if name == "" {
		return &config, nil
	}
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		r := strings.NewReader(name)
		if err := json.NewDecoder(r).Decode(&config); err != nil {
			return nil, fmt.Errorf("readConfig %s: %w", name, err)
		}
		return &config, nil
	}
	is, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("readConfig %s: %w", name, err)
	}
	defer is.Close()
	if strings.HasSuffix(name, ".toml") {
		if _, err := toml.NewDecoder(is).Decode(&config); err != nil {
			return nil, fmt.Errorf("readConfig %s: %w", name, err)
		}
		return &config, nil
	}
	if err := json.NewDecoder(is).Decode(&config); err != nil {
		return nil, fmt.Errorf("readConfig %s: %w", name, err)
	}
	return &config, nil
}

// ExperimentConfigs returns the configurations of all experiments.
// If no experiments are configured, a single experiment without
// resampling is returned.
func (c *Config) ExperimentConfigs() ([]experiment.Config, error) {
	var timeout time.Duration
	if c.Timeout != "" {
		var err error
		if timeout, err = time.ParseDuration(c.Timeout); err != nil {
			return nil, fmt.Errorf("experiments: invalid timeout: %w", err)
		}
	}
	exps := c.Experiments
	if len(exps) == 0 {
		exps = []ExperimentConfig{{}}
	}
	ret := make([]experiment.Config, len(exps))
	for i, e := range exps {
		if e.Seed < 0 || c.Seed < 0 {
			return nil, fmt.Errorf("experiments: %d: negative seed", i+1)
		}
		ret[i] = experiment.Config{
			Name:          e.Name,
			Resample:      e.Resample,
			Classifier:    e.Classifier,
			Cost:          c.Cost,
			Grid:          c.Grid,
			Features:      c.Data.Features,
			TrainFraction: c.TrainFraction,
			Seed:          uint64(c.Seed),
			DefaultCutoff: c.DefaultCutoff,
			Timeout:       timeout,
		}
		if e.Cost != nil {
			ret[i].Cost = *e.Cost
		}
		if e.Grid != nil {
			ret[i].Grid = *e.Grid
		}
		if e.Seed != 0 {
			ret[i].Seed = uint64(e.Seed)
		}
	}
	return ret, nil
}
