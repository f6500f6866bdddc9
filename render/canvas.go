package render

import (
	"bytes"
	"image/color"

	"github.com/fako1024/liveplot/pool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Canvas denotes a reusable rendering context, holding the resolved style and
// the scratch buffer the plot is encoded into
type Canvas struct {
	id        string
	style     Style
	lineColor color.RGBA
	buf       *bytes.Buffer
}

// NewCanvas creates a new canvas for the given style
func NewCanvas(style Style) (*Canvas, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	lineColor, err := parseHexColor(style.LineColor)
	if err != nil {
		return nil, err
	}

	return &Canvas{
		id:        uuid.New().String(),
		style:     style,
		lineColor: lineColor,
		buf:       bytes.NewBuffer(make([]byte, 0, 64*1024)),
	}, nil
}

// NewFactory returns a pool factory creating canvases for the given style
func NewFactory(style Style) pool.Factory {
	return func() (pool.Context, error) {
		c, err := NewCanvas(style)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ID returns the unique identifier of the canvas
func (c *Canvas) ID() string {
	return c.id
}

// Style returns the style of the canvas
func (c *Canvas) Style() Style {
	return c.style
}

// Close releases the scratch buffer of the canvas
func (c *Canvas) Close() error {
	if c.buf == nil {
		return errors.Errorf("canvas %s already closed", c.id)
	}
	c.buf = nil

	return nil
}
