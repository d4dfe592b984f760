package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("wallet_number", "4561234567890").Msg("wallet created")

	var output map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &output)
	require.NoError(t, err, "logger output should be valid JSON")

	assert.Equal(t, "wallet created", output["message"])
	assert.Equal(t, "4561234567890", output["wallet_number"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time", "should include timestamp")
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logDebug  bool
		wantEmpty bool
	}{
		{"debug level keeps debug", "debug", true, false},
		{"info level filters debug", "info", true, true},
		{"error level filters info", "error", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)

			if tt.logDebug {
				log.Debug().Msg("debug msg")
			} else {
				log.Info().Msg("info msg")
			}

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
			} else {
				assert.NotEmpty(t, buf.String())
			}
		})
	}
}

func TestNewWithWriter_InvalidLevel_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("bogus", &buf)

	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String(), "invalid level should default to info, filtering debug")

	log.Info().Msg("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestNew_PrettyMode(t *testing.T) {
	// Just ensure it doesn't panic. Pretty mode writes to stdout.
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}
