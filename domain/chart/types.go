package chart

import (
	"fmt"
	"strings"
)

// Mode selects how series are drawn.
type Mode string

const (
	ModeLine Mode = "line"
	ModeBar  Mode = "bar"
)

// Format is the encoded image type.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Config describes a chart independently of the data drawn on it.
type Config struct {
	Title   string  `yaml:"title" json:"title"`
	XLabel  string  `yaml:"x_label" json:"x_label"`
	YLabel  string  `yaml:"y_label" json:"y_label"`
	Mode    Mode    `yaml:"mode" json:"mode"`
	Markers bool    `yaml:"markers" json:"markers"`
	Width   float64 `yaml:"width" json:"width"`   // inches
	Height  float64 `yaml:"height" json:"height"` // inches
	Format  Format  `yaml:"format" json:"format"`
}

// DefaultConfig is a wide line chart of population by year.
func DefaultConfig() Config {
	return Config{
		XLabel: "Year",
		YLabel: "Population",
		Mode:   ModeLine,
		Width:  10,
		Height: 5,
		Format: FormatPNG,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	return c
}

// ParseMode accepts "line" or "bar"; empty yields line.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLine:
		return ModeLine, nil
	case ModeBar:
		return ModeBar, nil
	}
	return "", fmt.Errorf("unknown chart mode %q (want line or bar)", s)
}

// ParseFormat accepts "png" or "svg"; empty yields png.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unknown chart format %q (want png or svg)", s)
}
