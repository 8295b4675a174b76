package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaultsKeepsExplicitFields(t *testing.T) {
	cfg := Config{Title: "Population", Mode: ModeBar, Width: 4}.WithDefaults()

	assert.Equal(t, ModeBar, cfg.Mode)
	assert.Equal(t, 4.0, cfg.Width)
	assert.Equal(t, 5.0, cfg.Height)
	assert.Equal(t, FormatPNG, cfg.Format)
	assert.Equal(t, "Population", cfg.Title)
}

func TestParseModeAndFormat(t *testing.T) {
	mode, err := ParseMode("BAR")
	require.NoError(t, err)
	assert.Equal(t, ModeBar, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLine, mode)

	_, err = ParseMode("pie")
	assert.Error(t, err)

	format, err := ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", format.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
