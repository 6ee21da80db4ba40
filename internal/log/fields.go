package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldSource      = "source"
	FieldSheet       = "sheet"
	FieldPeriod      = "period"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldAmount      = "amount"
	FieldAdvisory    = "advisory"
	FieldStatus      = "status"
	FieldCount       = "count"
	FieldSink        = "sink"
	FieldPath        = "path"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentExtract   = "extract"
	ComponentPivot     = "pivot"
	ComponentAggregate = "aggregate"
	ComponentExport    = "export"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpList        = "list"
	OpRead        = "read"
	OpVerify      = "verify"
	OpReconstruct = "reconstruct"
	OpFold        = "fold"
	OpExport      = "export"
	OpPublish     = "publish"
	OpMigrate     = "migrate"
	OpValidate    = "validate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeGate          = "gate_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSheet adds the sheet name and, when known, its period label.
func (f LogFields) WithSheet(sheet, period string) LogFields {
	f[FieldSheet] = sheet
	if period != "" {
		f[FieldPeriod] = period
	}
	return f
}

// WithCount adds a count field
func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog, keys in sorted order.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
