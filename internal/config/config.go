// Package config loads sheet files.
//
// A sheet file is YAML (.yaml, .yml) or TOML (.toml):
//
//	debounce: 400ms
//	log_level: info
//	cells:
//	  - id: A1
//	    formula: "1"
//	  - id: B1
//	    formula: "=A1*2"
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-cellflow/pkg/cell"
)

var (
	ErrUnknownFormat   = errors.New("unknown sheet file format")
	ErrCellIDMustBeSet = errors.New("cell id must be set")
	ErrDuplicateCell   = errors.New("duplicate cell")
	ErrInvalidDebounce = errors.New("debounce must be positive")
)

// Format is the encoding of a sheet file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the format matching the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%s", path)
	}
}

// Duration is a time.Duration written as "400ms" in sheet files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}

	*d = Duration(v)

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Cell is the initial content of a cell.
type Cell struct {
	ID      string `yaml:"id" toml:"id"`
	Formula string `yaml:"formula" toml:"formula"`
}

// Sheet is the content of a sheet file.
type Sheet struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"`
	LogLevel string   `yaml:"log_level" toml:"log_level"`
	Cells    []Cell   `yaml:"cells" toml:"cells"`
}

// Default returns a sheet without cells.
func Default() Sheet {
	return Sheet{
		Debounce: Duration(cell.DefaultDebounce),
		LogLevel: "info",
	}
}

// Level returns the slog level named by LogLevel.
func (s Sheet) Level() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s.LogLevel))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid log level %q", s.LogLevel)
	}

	return level, nil
}

// Formulas returns the formula of every cell keyed by normalised id.
func (s Sheet) Formulas() map[string]string {
	res := make(map[string]string, len(s.Cells))
	for _, c := range s.Cells {
		res[cell.NormalizeID(c.ID)] = c.Formula
	}

	return res
}

// Load reads and validates a sheet file. The format comes from the file extension.
func Load(path string) (Sheet, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Sheet{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, errors.Wrapf(err, "unable to read %s", path)
	}

	sheet, err := Parse(data, format)
	if err != nil {
		return Sheet{}, errors.Wrapf(err, "unable to load %s", path)
	}

	return sheet, nil
}

// Parse decodes and validates a sheet. Missing settings take their default value.
func Parse(data []byte, format Format) (Sheet, error) {
	sheet := Default()

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		err := dec.Decode(&sheet)
		if err != nil && !errors.Is(err, io.EOF) {
			return Sheet{}, errors.Wrap(err, "unable to decode yaml")
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &sheet)
		if err != nil {
			return Sheet{}, errors.Wrap(err, "unable to decode toml")
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Sheet{}, errors.Errorf("unknown keys %v", undecoded)
		}
	default:
		return Sheet{}, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	err := sheet.Validate()
	if err != nil {
		return Sheet{}, err
	}

	return sheet, nil
}

// Validate checks the debounce window, the log level and the cell ids.
func (s Sheet) Validate() error {
	if s.Debounce <= 0 {
		return errors.Wrapf(ErrInvalidDebounce, "got %s", time.Duration(s.Debounce))
	}

	_, err := s.Level()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Cells))

	for i, c := range s.Cells {
		id := cell.NormalizeID(c.ID)
		if id == "" {
			return errors.Wrapf(ErrCellIDMustBeSet, "cell %d", i)
		}

		if _, ok := seen[id]; ok {
			return errors.Wrapf(ErrDuplicateCell, "%s", id)
		}

		seen[id] = struct{}{}
	}

	return nil
}
