package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "json": true}
)

// Validate validates the entire configuration.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateServer(&c.Server, errs)
	validateMetrics(&c.Metrics, errs)
	validateSimulation(&c.Simulation, errs)
	validateLogging(&c.Logging, errs)

	if c.Presets != nil && c.Presets.Len() == 0 {
		errs.Add("presets", "at least one preset is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateServer(s *ServerConfig, errs *ValidationErrors) {
	if s.Addr == "" {
		errs.Add("server.addr", "listen address is required")
	}
	if s.ReadHeaderTimeout < 0 {
		errs.Add("server.readHeaderTimeout", "readHeaderTimeout cannot be negative")
	}
	if s.ShutdownTimeout < 0 {
		errs.Add("server.shutdownTimeout", "shutdownTimeout cannot be negative")
	}
}

func validateMetrics(m *MetricsConfig, errs *ValidationErrors) {
	if m.FlushInterval <= 0 {
		errs.Add("metrics.flushInterval", "flushInterval must be greater than 0")
	}
	if m.HistoryCapacity < 1 {
		errs.Add("metrics.historyCapacity", "historyCapacity must be at least 1")
	}
	if m.SketchSignificantFigures < 1 || m.SketchSignificantFigures > 5 {
		errs.Add("metrics.sketchSignificantFigures",
			fmt.Sprintf("sketchSignificantFigures must be between 1 and 5, got %d", m.SketchSignificantFigures))
	}
	if m.SketchMaxLatency <= 0 {
		errs.Add("metrics.sketchMaxLatency", "sketchMaxLatency must be greater than 0")
	}
	if m.SubscriberBuffer < 1 {
		errs.Add("metrics.subscriberBuffer", "subscriberBuffer must be at least 1")
	}
}

func validateSimulation(s *SimulationConfig, errs *ValidationErrors) {
	if s.MaxDelay < 0 {
		errs.Add("simulation.maxDelay", "maxDelay cannot be negative")
	}
	if s.MaxJitter < 0 {
		errs.Add("simulation.maxJitter", "maxJitter cannot be negative")
	}
	if s.MaxCPULoad < 0 {
		errs.Add("simulation.maxCPULoad", "maxCPULoad cannot be negative")
	}
	if s.MaxMemoryMB < 0 {
		errs.Add("simulation.maxMemoryMB", "maxMemoryMB cannot be negative")
	}
}

func validateLogging(l *LoggingConfig, errs *ValidationErrors) {
	if !validLevels[strings.ToLower(l.Level)] {
		errs.Add("logging.level", fmt.Sprintf("unknown log level: %s", l.Level))
	}
	if !validFormats[strings.ToLower(l.Format)] {
		errs.Add("logging.format", fmt.Sprintf("unknown log format: %s (use text or json)", l.Format))
	}
}
