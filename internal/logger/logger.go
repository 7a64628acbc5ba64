// Package logger provides centralized logging functionality for voxsearch.
// It configures structured logging with support for a log file and log levels.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// LogLevelEnv is the environment variable consulted when no level flag is given.
const LogLevelEnv = "VOXSEARCH_LOG_LEVEL"

// Logger is the global logger instance used throughout voxsearch.
var Logger *log.Logger

var output io.Writer = os.Stderr

func init() {
	Logger = log.New(os.Stderr)
	Logger.SetTimeFormat("")
	Logger.SetLevel(log.InfoLevel)
}

// Configure sets up the logger based on CLI flags and environment variables.
// CLI flags take precedence over environment variables.
func Configure(logLevel string, logFile string, testMode bool) error {
	level := logLevel
	if level == "" {
		level = strings.ToLower(os.Getenv(LogLevelEnv))
	}
	if level == "" {
		level = "info"
	}

	var out io.Writer = os.Stderr
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		out = file
	}

	output = out
	Logger = log.New(out)
	Logger.SetTimeFormat("")
	Logger.SetLevel(parseLogLevel(level))

	if testMode {
		// Deterministic output for golden comparisons.
		Logger.SetLevel(log.InfoLevel)
	}

	return nil
}

// SetOutput redirects the global logger, keeping its level. Used by tests.
func SetOutput(w io.Writer) {
	level := Logger.GetLevel()
	output = w
	Logger = log.New(w)
	Logger.SetTimeFormat("")
	Logger.SetLevel(level)
}

// SetLevel changes the global logger's level without reopening its output.
func SetLevel(level string) {
	Logger.SetLevel(parseLogLevel(level))
}

// parseLogLevel converts string to log level
func parseLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// Fatal logs a fatal message with optional key-value pairs and exits.
func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

// ServiceOperation logs service operation details for debugging.
func ServiceOperation(service string, operation string, details ...interface{}) {
	Debug("Service operation", "service", service, "operation", operation, "details", details)
}

// ProviderRequest logs an outbound provider request. The API key is never logged.
func ProviderRequest(requestID string, provider string, model string, endpoint string) {
	Debug("Provider request", "request_id", requestID, "provider", provider, "model", model, "endpoint", endpoint)
}

// Fallback logs a recovered remote failure that was answered by local extraction.
func Fallback(requestID string, provider string, err error) {
	Warn("Falling back to local extraction", "request_id", requestID, "provider", provider, "error", err)
}

// levelColors are the badge backgrounds used by NewStyledLogger.
var levelColors = map[log.Level]string{
	log.DebugLevel: "240",
	log.InfoLevel:  "33",
	log.WarnLevel:  "214",
	log.ErrorLevel: "196",
	log.FatalLevel: "88",
}

// NewStyledLogger creates a component logger with badge-styled levels, e.g. "Listen".
// It shares the global logger's output and level.
func NewStyledLogger(prefix string) *log.Logger {
	styles := log.DefaultStyles()
	for level, color := range levelColors {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(strings.ToUpper(level.String())).
			Padding(0, 1).
			Background(lipgloss.Color(color)).
			Foreground(lipgloss.Color("15"))
	}

	styles.Keys["provider"] = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	styles.Keys["request_id"] = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styles.Keys["query"] = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	componentLogger := log.NewWithOptions(output, log.Options{Prefix: prefix + " "})
	componentLogger.SetStyles(styles)
	componentLogger.SetLevel(Logger.GetLevel())
	return componentLogger
}
