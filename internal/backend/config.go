package backend

import (
	"fmt"

	"flussi/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.Source)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid source type in config: %s", appConfig.Source)
	}

	return Config{
		Source:    sourceType,
		ExcelPath: appConfig.ExcelPath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleCacheTTL:           appConfig.GoogleCacheTTL,

		OutputDir:     appConfig.OutputDir,
		OutputFormats: append([]string(nil), appConfig.OutputFormats...),
		CSVEncoding:   appConfig.CSVEncoding,

		SQLiteDBPath:   appConfig.SQLiteDBPath,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Source)
	}

	switch c.Source {
	case ExcelSource:
		if c.ExcelPath == "" {
			return fmt.Errorf("Excel path is required for excel source")
		}
	case GoogleSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for google source")
		}
	}

	if len(c.OutputFormats) > 0 && c.OutputDir == "" {
		return fmt.Errorf("output directory is required when file outputs are enabled")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPRoutingKey == "") {
		return fmt.Errorf("AMQP exchange and routing key are required when AMQP URL is set")
	}
	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{ExcelSource, GoogleSource}
}
