package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dnldd/stocksense/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// FileConfig represents the file data source configuration.
type FileConfig struct {
	// Dir is the directory holding one <SYMBOL>.json or <SYMBOL>.csv file per symbol.
	Dir string
	// HeaderRows is the number of csv header rows. Defaults to 1.
	HeaderRows int
	// Logger represents the fetch logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *FileConfig) Validate() error {
	var errs error

	if cfg.Dir == "" {
		errs = errors.Join(errs, fmt.Errorf("data directory cannot be an empty string"))
	}
	if cfg.HeaderRows < 0 {
		errs = errors.Join(errs, fmt.Errorf("csv header rows cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("file source logger cannot be nil"))
	}

	return errs
}

// FileSource serves daily price history from files on disk.
type FileSource struct {
	cfg *FileConfig
}

// Ensure the FileSource implements the DataSource interface.
var _ shared.DataSource = (*FileSource)(nil)

// NewFileSource initializes a new file data source.
func NewFileSource(cfg *FileConfig) (*FileSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating file source config: %w", err)
	}

	if cfg.HeaderRows == 0 {
		cfg.HeaderRows = 1
	}

	return &FileSource{cfg: cfg}, nil
}

// locate returns the path of the data file for the provided symbol.
func (f *FileSource) locate(symbol string) (string, error) {
	for _, ext := range []string{".json", ".csv"} {
		path := filepath.Join(f.cfg.Dir, symbol+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no data file for %s in '%s'", symbol, f.cfg.Dir)
}

// LoadTable reads the raw price table at the provided path. Json files may hold
// a bare array of rows or an FMP style object with a historical array.
func LoadTable(path string, headerRows int) (*shared.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading price data from file with path '%s': %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		key := ""
		if gjson.GetBytes(data, historicalKey).IsArray() {
			key = historicalKey
		}
		return shared.ParseJSONTable(data, key)
	case ".csv":
		return shared.ParseCSVTable(bytes.NewReader(data), headerRows)
	default:
		return nil, fmt.Errorf("unsupported price data file '%s'", path)
	}
}

// Fetch returns the whole stored history of the provided symbol. Callers trim
// the normalized series to their date range.
func (f *FileSource) Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*shared.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.locate(symbol)
	if err != nil {
		return nil, err
	}

	table, err := LoadTable(path, f.cfg.HeaderRows)
	if err != nil {
		return nil, fmt.Errorf("loading %s history: %w", symbol, err)
	}

	f.cfg.Logger.Debug().Str("symbol", symbol).Str("path", path).Int("rows", table.Len()).
		Msg("loaded daily history")

	return table, nil
}
