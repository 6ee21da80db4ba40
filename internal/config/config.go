package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	SourceExcel  = "excel"
	SourceGoogle = "google"

	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"

	// DefaultConfigFile is read from the working directory when FLUSSI_CONFIG is unset.
	DefaultConfigFile = "flussi.toml"
)

type Config struct {
	// Input
	Source      string
	ExcelPath   string
	SheetPrefix string

	// Pivot layout
	FilterMarker  string
	BlankSentinel string

	// Output
	OutputDir     string
	OutputFormats []string
	CSVEncoding   string

	// Database (optional sink)
	SQLiteDBPath string

	// AMQP (optional sink)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleCacheTTL           time.Duration

	// Report
	SelectionsPath string
	TopN           int

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile is the TOML file that was applied, empty if none.
	ConfigFile string
}

// fileConfig mirrors the sections of flussi.toml.
type fileConfig struct {
	Source string `toml:"source"`
	Excel  struct {
		Path string `toml:"path"`
	} `toml:"excel"`
	Pivot struct {
		SheetPrefix   string `toml:"sheet_prefix"`
		FilterMarker  string `toml:"filter_marker"`
		BlankSentinel string `toml:"blank_sentinel"`
	} `toml:"pivot"`
	Output struct {
		Dir          string   `toml:"dir"`
		Formats      []string `toml:"formats"`
		CSVEncoding  string   `toml:"csv_encoding"`
		SQLiteDBPath string   `toml:"sqlite_db_path"`
	} `toml:"output"`
	AMQP struct {
		URL        string `toml:"url"`
		Exchange   string `toml:"exchange"`
		RoutingKey string `toml:"routing_key"`
	} `toml:"amqp"`
	Google struct {
		SpreadsheetID      string `toml:"spreadsheet_id"`
		ServiceAccountFile string `toml:"service_account_file"`
		CacheTTL           string `toml:"cache_ttl"`
	} `toml:"google"`
	Report struct {
		SelectionsPath string `toml:"selections_path"`
		TopN           int    `toml:"top_n"`
	} `toml:"report"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Source:         SourceExcel,
		ExcelPath:      "Flussi di cassa.xlsx",
		SheetPrefix:    "pivot",
		FilterMarker:   "esclud",
		BlankSentinel:  "(blank)",
		OutputDir:      ".",
		OutputFormats:  []string{FormatCSV, FormatJSON},
		CSVEncoding:    EncodingUTF8BOM,
		AMQPExchange:   "flussi",
		AMQPRoutingKey: "period.summary",
		GoogleCacheTTL: 5 * time.Minute,
		TopN:           5,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// FLUSSI_CONFIG (or flussi.toml when present), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("FLUSSI_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.applyFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Source, fc.Source)
	set(&c.ExcelPath, fc.Excel.Path)
	set(&c.SheetPrefix, fc.Pivot.SheetPrefix)
	set(&c.FilterMarker, fc.Pivot.FilterMarker)
	set(&c.BlankSentinel, fc.Pivot.BlankSentinel)
	set(&c.OutputDir, fc.Output.Dir)
	if len(fc.Output.Formats) > 0 {
		c.OutputFormats = normalizeList(fc.Output.Formats)
	}
	set(&c.CSVEncoding, fc.Output.CSVEncoding)
	set(&c.SQLiteDBPath, fc.Output.SQLiteDBPath)
	set(&c.AMQPURL, fc.AMQP.URL)
	set(&c.AMQPExchange, fc.AMQP.Exchange)
	set(&c.AMQPRoutingKey, fc.AMQP.RoutingKey)
	set(&c.GoogleSpreadsheetID, fc.Google.SpreadsheetID)
	set(&c.GoogleServiceAccountFile, fc.Google.ServiceAccountFile)
	if fc.Google.CacheTTL != "" {
		d, err := time.ParseDuration(fc.Google.CacheTTL)
		if err != nil {
			return fmt.Errorf("parse config file %s: google.cache_ttl: %w", path, err)
		}
		c.GoogleCacheTTL = d
	}
	set(&c.SelectionsPath, fc.Report.SelectionsPath)
	if fc.Report.TopN != 0 {
		c.TopN = fc.Report.TopN
	}
	set(&c.LogLevel, fc.Log.Level)
	set(&c.LogFormat, fc.Log.Format)

	c.ConfigFile = path
	return nil
}

func (c *Config) applyEnv() {
	c.Source = strings.ToLower(getEnv("SOURCE", c.Source))
	c.ExcelPath = getEnv("EXCEL_PATH", c.ExcelPath)
	c.SheetPrefix = getEnv("SHEET_PREFIX", c.SheetPrefix)
	c.FilterMarker = getEnv("FILTER_MARKER", c.FilterMarker)
	c.BlankSentinel = getEnv("BLANK_SENTINEL", c.BlankSentinel)

	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	if v := getEnv("OUTPUT_FORMATS", ""); v != "" {
		c.OutputFormats = normalizeList(strings.Split(v, ","))
	}
	c.CSVEncoding = strings.ToLower(getEnv("CSV_ENCODING", c.CSVEncoding))

	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPRoutingKey = getEnv("AMQP_ROUTING_KEY", c.AMQPRoutingKey)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleCacheTTL = getEnvDuration("GOOGLE_CACHE_TTL", c.GoogleCacheTTL)

	c.SelectionsPath = getEnv("SELECTIONS_PATH", c.SelectionsPath)
	c.TopN = getEnvInt("TOP_N", c.TopN)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))
}

// HasFormat reports whether the given output format is enabled.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.OutputFormats, format)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	// Validate source
	switch c.Source {
	case SourceExcel:
		if strings.TrimSpace(c.ExcelPath) == "" {
			problems = append(problems, "Excel path cannot be empty when using excel source")
		} else if _, err := os.Stat(c.ExcelPath); err != nil {
			problems = append(problems, fmt.Sprintf("Excel file not readable '%s': %v", c.ExcelPath, err))
		}
	case SourceGoogle:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "Google Spreadsheet ID is required when using google source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleCacheTTL < 0 {
			problems = append(problems, fmt.Sprintf("invalid Google cache TTL %v: must not be negative", c.GoogleCacheTTL))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid source '%s': must be one of [%s %s]", c.Source, SourceExcel, SourceGoogle))
	}

	if strings.TrimSpace(c.SheetPrefix) == "" {
		problems = append(problems, "sheet prefix cannot be empty")
	}
	if strings.TrimSpace(c.FilterMarker) == "" {
		problems = append(problems, "filter marker cannot be empty")
	}
	if strings.TrimSpace(c.BlankSentinel) == "" {
		problems = append(problems, "blank sentinel cannot be empty")
	}

	// Validate outputs
	validFormats := []string{FormatCSV, FormatJSON, FormatXLSX}
	for _, f := range c.OutputFormats {
		if !slices.Contains(validFormats, f) {
			problems = append(problems, fmt.Sprintf("invalid output format '%s': must be one of %v", f, validFormats))
		}
	}
	validEncodings := []string{EncodingUTF8BOM, EncodingUTF8, EncodingWindows1252}
	if !slices.Contains(validEncodings, c.CSVEncoding) {
		problems = append(problems, fmt.Sprintf("invalid CSV encoding '%s': must be one of %v", c.CSVEncoding, validEncodings))
	}
	if len(c.OutputFormats) > 0 {
		if strings.TrimSpace(c.OutputDir) == "" {
			problems = append(problems, "output directory cannot be empty")
		} else if err := ensureDir(c.OutputDir); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory '%s': %v", c.OutputDir, err))
		}
	}

	// Validate SQLite configuration if the sink is enabled
	if c.SQLiteDBPath != "" {
		if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := ensureDir(dir); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			problems = append(problems, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.SelectionsPath != "" {
		if _, err := os.Stat(c.SelectionsPath); err != nil {
			problems = append(problems, fmt.Sprintf("selections file not readable '%s': %v", c.SelectionsPath, err))
		}
	}
	if c.TopN < 1 || c.TopN > 100 {
		problems = append(problems, fmt.Sprintf("invalid top N %d: must be between 1 and 100", c.TopN))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
