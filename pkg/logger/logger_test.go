package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf)).With("component", "test")

	l.Info("candidate scored",
		String("series_id", "T10Y2Y"),
		Int("n_dates", 41),
		Float64("r", 0.5),
		Bool("filled", true),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "test", got["component"])
	assert.Equal(t, "T10Y2Y", got["series_id"])
	assert.EqualValues(t, 41, got["n_dates"])
	assert.EqualValues(t, 0.5, got["r"])
	assert.Equal(t, true, got["filled"])
	assert.EqualValues(t, 1500, got["took"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "candidate scored", got["message"])
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Error("ignored", String("k", "v"))
}

func TestStringsJoins(t *testing.T) {
	k, v := Strings("ids", []string{"A", "B"}).GetKeyValue()
	assert.Equal(t, "ids", k)
	assert.Equal(t, "A, B", v)
}
