// Package render turns buffer snapshots into SVG line plots.
//
// Rendering failures are never propagated as transport level errors: Render
// always returns an HTML fragment, which holds a visible error message if the
// plot could not be produced.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/fako1024/liveplot/pool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var svgStart = []byte("<svg")

// Renderer draws buffer snapshots on pooled canvases
type Renderer struct{}

// New instantiates a new renderer
func New() *Renderer {
	return &Renderer{}
}

// Render draws the values over their positions on the given canvas and returns
// the resulting SVG markup. On failure, the returned fragment carries an inline
// error message and err reports the underlying cause.
func (r *Renderer) Render(values []float64, positions []int, c pool.Context) (res template.HTML, err error) {

	// The plotting backend may panic on degenerate input, contain it
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic during rendering: %v", rec)
			res = ErrorFragment(err)
		}
	}()

	canvas, ok := c.(*Canvas)
	if !ok {
		err = errors.Errorf("unsupported render context type %T", c)
		return ErrorFragment(err), err
	}

	logrus.StandardLogger().Debugf("Rendering on canvas %s:\n%s", canvas.ID(), Bindings(values, positions))

	svg, err := drawSVG(values, positions, canvas)
	if err != nil {
		return ErrorFragment(err), err
	}

	return template.HTML(svg), nil
}

// ErrorFragment converts an error into an inline HTML fragment
func ErrorFragment(err error) template.HTML {
	return template.HTML(fmt.Sprintf("<div class=\"error\" style=\"color: red;\">Error: %s</div>", html.EscapeString(err.Error())))
}

// Bindings returns the snapshot as variable bindings of two numeric vector
// literals, e.g. "data <- c(5, 0, 7)" and "time <- c(0, 1, 2)"
func Bindings(values []float64, positions []int) string {
	return "data <- " + FloatVector(values) + "\ntime <- " + IntVector(positions) + "\n"
}

// FloatVector formats values as a comma-joined numeric vector literal
func FloatVector(values []float64) string {
	elems := make([]string, len(values))
	for i, v := range values {
		elems[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "c(" + strings.Join(elems, ", ") + ")"
}

// IntVector formats positions as a comma-joined numeric vector literal
func IntVector(positions []int) string {
	elems := make([]string, len(positions))
	for i, v := range positions {
		elems[i] = strconv.Itoa(v)
	}
	return "c(" + strings.Join(elems, ", ") + ")"
}

// checkRange rejects values the axis tick labelling cannot handle: non-finite
// values and value spans exceeding the float64 range
func checkRange(values []float64) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("non-finite value %v at index %d", v, i)
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(hi-lo, 0) {
		return errors.Errorf("value range [%g, %g] exceeds the plottable span", lo, hi)
	}

	return nil
}

func drawSVG(values []float64, positions []int, canvas *Canvas) ([]byte, error) {
	if canvas.buf == nil {
		return nil, errors.Errorf("canvas %s is closed", canvas.ID())
	}
	if len(values) != len(positions) {
		return nil, errors.Errorf("mismatching number of values (%d) and positions (%d)", len(values), len(positions))
	}
	if len(values) == 0 {
		return nil, errors.New("nothing to render")
	}
	if err := checkRange(values); err != nil {
		return nil, err
	}

	xys := make(plotter.XYs, len(values))
	for i := range values {
		xys[i].X = float64(positions[i])
		xys[i].Y = values[i]
	}

	p := plot.New()
	p.Title.Text = canvas.style.Title
	p.X.Label.Text = canvas.style.XLabel
	p.Y.Label.Text = canvas.style.YLabel
	if canvas.style.Grid {
		p.Add(plotter.NewGrid())
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create line")
	}
	line.LineStyle.Color = canvas.lineColor
	line.LineStyle.Width = vg.Points(canvas.style.LineWidth)
	p.Add(line)

	if canvas.style.Points {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create scatter")
		}
		scatter.GlyphStyle.Color = canvas.lineColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(canvas.style.LineWidth + 1)
		p.Add(scatter)
	}

	wt, err := p.WriterTo(vg.Points(canvas.style.Width), vg.Points(canvas.style.Height), "svg")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SVG writer")
	}

	canvas.buf.Reset()
	if _, err := wt.WriteTo(canvas.buf); err != nil {
		return nil, errors.Wrap(err, "failed to encode SVG")
	}

	// Strip the XML prolog so the result can be embedded into an HTML document
	out := canvas.buf.Bytes()
	if idx := bytes.Index(out, svgStart); idx > 0 {
		out = out[idx:]
	}

	// The scratch buffer is reused by the next render on this canvas
	res := make([]byte, len(out))
	copy(res, out)

	return res, nil
}
