package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		isDevelopment bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "production defaults to json",
			logLevel:      "info",
			isDevelopment: false,
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "development uses text",
			logLevel:      "debug",
			isDevelopment: true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "invalid level defaults to info",
			logLevel:      "loud",
			isDevelopment: false,
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "case insensitive level",
			logLevel:      "WARN",
			isDevelopment: false,
			expectedLevel: logrus.WarnLevel,
			expectJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", "")
			var buf bytes.Buffer
			log := newLogger(tt.logLevel, tt.isDevelopment, &buf)

			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}

func TestWithRunContext(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", false, &buf)

	asOf := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	WithRunContext(log, "run-123", asOf).Info("scoring complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-123", entry["run_id"])
	assert.Equal(t, "2025-08-01", entry["as_of_date"])
	assert.Equal(t, "dynasty_etl", entry["component"])
	assert.Equal(t, "scoring complete", entry["msg"])
}

func TestWithSource(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", false, &buf)

	WithSource(log, "sleeper").Warn("slow response")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sleeper", entry["source"])
	assert.Equal(t, "provider", entry["component"])
}
