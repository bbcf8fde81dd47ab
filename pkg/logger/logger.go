package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	return newLogger(logLevel, isDevelopment, os.Stdout)
}

func newLogger(logLevel string, isDevelopment bool, out io.Writer) *logrus.Logger {
	log := logrus.New()

	// Override with environment if not provided
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(out)
	return log
}

// WithService creates a logger with service context
func WithService(log *logrus.Logger, serviceName string) *logrus.Entry {
	return log.WithField("service", serviceName)
}

// WithRunContext tags every line of one pipeline invocation.
func WithRunContext(log *logrus.Logger, runID string, asOf time.Time) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"component":  "dynasty_etl",
		"run_id":     runID,
		"as_of_date": asOf.Format("2006-01-02"),
	})
}

// WithSource creates a logger for an ingestion adapter
func WithSource(log *logrus.Logger, source string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"component": "provider",
		"source":    source,
	})
}

// WithHTTPContext creates a logger with HTTP request context
func WithHTTPContext(log *logrus.Logger, method, path, userAgent string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"http_method":     method,
		"http_path":       path,
		"http_user_agent": userAgent,
	})
}
