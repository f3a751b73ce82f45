package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/service"
	"github.com/dnldd/stocksense/shared"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultAddress       = ":8080"
	defaultLogLevel      = "info"
	defaultHistoryMonths = 2
)

// Config is the configuration struct for the service.
type Config struct {
	// Targets represents the forecast targets by name.
	Targets []string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// FMPBaseURL overrides the FMP api base url.
	FMPBaseURL string
	// DataDir is the directory of offline price data files. When set it
	// replaces the FMP data source.
	DataDir string
	// CSVHeaderRows is the number of header rows of offline csv files.
	CSVHeaderRows int
	// ModelURL is the model server base url. Without it forecasts use the
	// offline persistence predictor.
	ModelURL string
	// LookBack is the number of prior days per model window.
	LookBack int
	// HistoryMonths is how many months of history a forecast run fetches.
	HistoryMonths int
	// PredictTimeout bounds each predictor call.
	PredictTimeout time.Duration
	// RefreshAt is the daily refresh time in HH:MM (new york time).
	RefreshAt string
	// Address is the api listen address.
	Address string
	// LegacyLower selects the legacy bollinger lower band on charts.
	LegacyLower bool
	// LogLevel is the minimum logged level.
	LogLevel string

	registeredFlags map[string]bool
}

// setDefaults fills unset fields with their defaults.
func (cfg *Config) setDefaults() {
	if len(cfg.Targets) == 0 {
		for _, target := range feature.Targets() {
			cfg.Targets = append(cfg.Targets, target.Name)
		}
	}
	if cfg.LookBack == 0 {
		cfg.LookBack = feature.DefaultLookBack
	}
	if cfg.HistoryMonths == 0 {
		cfg.HistoryMonths = defaultHistoryMonths
	}
	if cfg.RefreshAt == "" {
		cfg.RefreshAt = service.DefaultRefreshAt
	}
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Targets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no targets provided for forecast service"))
	}
	for _, name := range cfg.Targets {
		if _, err := feature.FindTarget(name); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if cfg.FMPAPIKey == "" && cfg.DataDir == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key or data directory must be provided"))
	}
	if cfg.CSVHeaderRows < 0 {
		errs = errors.Join(errs, fmt.Errorf("csv header rows cannot be negative"))
	}
	if cfg.LookBack <= 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback must be positive, got %d", cfg.LookBack))
	}
	if cfg.HistoryMonths <= 0 {
		errs = errors.Join(errs, fmt.Errorf("history months must be positive, got %d", cfg.HistoryMonths))
	}
	if cfg.PredictTimeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("predict timeout cannot be negative"))
	}
	if _, err := time.Parse(shared.SessionTimeLayout, cfg.RefreshAt); err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid refresh time '%s'", cfg.RefreshAt))
	}
	if cfg.Address == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid log level '%s'", cfg.LogLevel))
	}

	return errs
}

// targets resolves the configured forecast targets with the configured lookback.
func (cfg *Config) targets() ([]feature.Target, error) {
	targets := make([]feature.Target, 0, len(cfg.Targets))
	for _, name := range cfg.Targets {
		target, err := feature.FindTarget(name)
		if err != nil {
			return nil, err
		}
		target.LookBack = cfg.LookBack
		targets = append(targets, target)
	}

	return targets, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	if dur, ok := value.(*time.Duration); ok {
		var def time.Duration
		if defValue != "" {
			parsed, err := time.ParseDuration(defValue)
			if err != nil {
				return fmt.Errorf("%s: parsing duration: %w", name, err)
			}
			def = parsed
		}
		flag.DurationVar(dur, name, def, usage)
		return nil
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"targets", &cfg.Targets, "the forecast targets"},
		{"fmpapikey", &cfg.FMPAPIKey, "the FMP api key"},
		{"fmpbaseurl", &cfg.FMPBaseURL, "the FMP api base url"},
		{"datadir", &cfg.DataDir, "the offline price data directory"},
		{"csvheaderrows", &cfg.CSVHeaderRows, "the number of header rows of offline csv files"},
		{"modelurl", &cfg.ModelURL, "the model server base url"},
		{"lookback", &cfg.LookBack, "the number of prior days per model window"},
		{"historymonths", &cfg.HistoryMonths, "the months of history fetched per forecast"},
		{"predicttimeout", &cfg.PredictTimeout, "the predictor call timeout"},
		{"refreshat", &cfg.RefreshAt, "the daily refresh time (HH:MM, new york)"},
		{"address", &cfg.Address, "the api listen address"},
		{"legacylower", &cfg.LegacyLower, "use the legacy bollinger lower band on charts"},
		{"loglevel", &cfg.LogLevel, "the minimum log level"},
	}

	// Register command line arguments using loaded environment variables as defaults.
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.setDefaults()

	return cfg.Validate()
}
