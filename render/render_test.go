package render

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foreignContext struct{}

func (foreignContext) ID() string   { return "foreign" }
func (foreignContext) Close() error { return nil }

func TestVectors(t *testing.T) {
	assert.Equal(t, "c(5, 0, 7.5)", FloatVector([]float64{5, 0, 7.5}))
	assert.Equal(t, "c(0, 1, 2)", IntVector([]int{0, 1, 2}))
	assert.Equal(t, "c()", FloatVector(nil))
	assert.Equal(t, "data <- c(5, 0)\ntime <- c(0, 1)\n", Bindings([]float64{5, 0}, []int{0, 1}))
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle([]byte("title: Column 5\nwidth: 800\nline_color: \"#ff0000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "Column 5", style.Title)
	assert.Equal(t, 800., style.Width)
	assert.Equal(t, DefaultStyle().Height, style.Height)
	assert.Equal(t, "#ff0000", style.LineColor)

	c, err := parseHexColor(style.LineColor)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), c.R)
	assert.Equal(t, uint8(0), c.G)
}

func TestParseStyleInvalid(t *testing.T) {
	for _, doc := range []string{
		"width: -1",
		"line_width: 0",
		"line_color: blue",
		"line_color: \"#gggggg\"",
		"title: [unterminated",
	} {
		_, err := ParseStyle([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadStyle(t *testing.T) {
	_, err := LoadStyle(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "plot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: From file\n"), 0600))
	style, err := LoadStyle(path)
	require.NoError(t, err)
	assert.Equal(t, "From file", style.Title)
}

func TestRender(t *testing.T) {
	canvas, err := NewCanvas(DefaultStyle())
	require.NoError(t, err)
	defer canvas.Close()

	r := New()
	for n := 1; n <= 10; n++ {
		values := make([]float64, n)
		positions := make([]int, n)
		for i := 0; i < n; i++ {
			values[i] = math.Sin(float64(i))
			positions[i] = i
		}

		svg, err := r.Render(values, positions, canvas)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(svg), "<svg"), "unexpected prefix: %.40s", svg)
		assert.Contains(t, string(svg), "</svg>")
	}
}

func TestRenderFailures(t *testing.T) {
	canvas, err := NewCanvas(DefaultStyle())
	require.NoError(t, err)

	r := New()

	svg, err := r.Render([]float64{1, 2}, []int{0}, canvas)
	assert.Error(t, err)
	assert.Contains(t, string(svg), "class=\"error\"")

	svg, err = r.Render([]float64{math.NaN()}, []int{0}, canvas)
	assert.Error(t, err)
	assert.Contains(t, string(svg), "Error:")

	svg, err = r.Render([]float64{1}, []int{0}, foreignContext{})
	assert.Error(t, err)
	assert.Contains(t, string(svg), "unsupported render context type")

	require.NoError(t, canvas.Close())
	assert.Error(t, canvas.Close())
	_, err = r.Render([]float64{1}, []int{0}, canvas)
	assert.Error(t, err)
}

func TestRenderValueRange(t *testing.T) {
	canvas, err := NewCanvas(DefaultStyle())
	require.NoError(t, err)
	defer canvas.Close()

	r := New()
	for _, values := range [][]float64{
		{1e308, -1e308},
		{math.MaxFloat64, -math.MaxFloat64, 0},
		{1, math.Inf(1)},
		{math.Inf(-1), 1},
	} {
		type result struct {
			svg string
			err error
		}
		resChan := make(chan result, 1)
		go func() {
			svg, err := r.Render(values, make([]int, len(values)), canvas)
			resChan <- result{string(svg), err}
		}()

		select {
		case res := <-resChan:
			assert.Error(t, res.err, "%v", values)
			assert.Contains(t, res.svg, "class=\"error\"", "%v", values)
		case <-time.After(10 * time.Second):
			t.Fatalf("Render did not return for values %v", values)
		}
	}

	// Large but representable spans are still plotted
	svg, err := r.Render([]float64{1e300, -1e300}, []int{0, 1}, canvas)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "</svg>")
}

func TestErrorFragmentEscapes(t *testing.T) {
	_, err := ParseStyle([]byte("line_color: \"<script>\""))
	require.Error(t, err)

	fragment := string(ErrorFragment(err))
	assert.NotContains(t, fragment, "<script>")
	assert.Contains(t, fragment, "&lt;script&gt;")
}

func TestFactory(t *testing.T) {
	factory := NewFactory(DefaultStyle())

	c1, err := factory()
	require.NoError(t, err)
	c2, err := factory()
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID(), c2.ID())
	assert.Equal(t, DefaultStyle(), c1.(*Canvas).Style())

	style := DefaultStyle()
	style.Width = 0
	_, err = NewFactory(style)()
	assert.Error(t, err)
}
