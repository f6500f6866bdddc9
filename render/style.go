package render

import (
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Style denotes the plot template applied to every rendered buffer snapshot
type Style struct {
	Title     string  `yaml:"title"`      // Title of the plot
	XLabel    string  `yaml:"x_label"`    // Label of the x axis
	YLabel    string  `yaml:"y_label"`    // Label of the y axis
	Width     float64 `yaml:"width"`      // Width of the plot (in points)
	Height    float64 `yaml:"height"`     // Height of the plot (in points)
	LineColor string  `yaml:"line_color"` // Hex colour (#rrggbb) of the line
	LineWidth float64 `yaml:"line_width"` // Width of the line (in points)
	Points    bool    `yaml:"points"`     // Mark individual samples
	Grid      bool    `yaml:"grid"`       // Draw a background grid
}

// DefaultStyle returns the style used for keys not present in a style template
func DefaultStyle() Style {
	return Style{
		Title:     "Real-time Data Visualization",
		XLabel:    "Time",
		YLabel:    "Value",
		Width:     600,
		Height:    400,
		LineColor: "#667eea",
		LineWidth: 2,
		Points:    true,
		Grid:      true,
	}
}

// LoadStyle reads a YAML style template from disk
func LoadStyle(path string) (Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, errors.Wrapf(err, "failed to read plot template %s", path)
	}

	return ParseStyle(data)
}

// ParseStyle parses a YAML style template, using defaults for absent keys
func ParseStyle(data []byte) (Style, error) {
	style := DefaultStyle()
	if err := yaml.Unmarshal(data, &style); err != nil {
		return Style{}, errors.Wrap(err, "failed to parse plot template")
	}

	return style, style.Validate()
}

// Validate checks the style for consistency
func (s Style) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("invalid plot dimensions: %.1fx%.1f", s.Width, s.Height)
	}
	if s.LineWidth <= 0 {
		return errors.Errorf("invalid line width: %.1f", s.LineWidth)
	}
	if _, err := parseHexColor(s.LineColor); err != nil {
		return err
	}

	return nil
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, errors.Errorf("invalid colour: %s", s)
	}

	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid colour: %s", s)
	}

	return color.RGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 0xff,
	}, nil
}
