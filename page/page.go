package page

import (
	"html/template"
	"io"

	"github.com/pkg/errors"
)

// RefreshInterval denotes the auto-refresh interval of the plot page (in seconds)
const RefreshInterval = 1

// Kind denotes the type of page to build
type Kind int

const (

	// Plot denotes a page showing a rendered plot
	Plot Kind = iota

	// NoData denotes the informational page shown if no samples exist
	NoData

	// Error denotes a page showing a request-level error
	Error
)

// Page denotes the content of a page
type Page struct {
	Kind     Kind
	Title    string        // Title of the document
	Plot     template.HTML // Rendered artifact (Plot pages)
	Count    int           // Number of points displayed (Plot pages)
	Capacity int           // Maximum number of points displayed (Plot pages)
	Message  string        // Message to display (Error pages)

	AutoRefresh bool // Instruct the client to reload the page periodically
}

var tmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
{{- if .AutoRefresh }}
<meta http-equiv="refresh" content="{{ .Interval }}">
{{- end }}
<meta charset="UTF-8">
<title>{{ .Title }}</title>
<style>
body { font-family: Arial, sans-serif; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); min-height: 100vh; display: flex; justify-content: center; align-items: center; margin: 0; padding: 20px; }
.container { background: white; padding: 40px; border-radius: 15px; box-shadow: 0 10px 40px rgba(0,0,0,0.3); max-width: 1200px; }
h1 { text-align: center; color: #333; margin-bottom: 30px; }
.plot-area { display: flex; justify-content: center; background: #f9f9f9; padding: 20px; border-radius: 10px; }
.info { text-align: center; margin-top: 20px; color: #666; }
.count { font-size: 1.2em; color: #667eea; font-weight: bold; }
.status { margin-top: 15px; color: #28a745; }
.error { color: red; }
</style>
</head>
<body>
<div class="container">
{{- if .IsNoData }}
<h1>No data! Import CSV first.</h1>
{{- else if .IsError }}
<h1>{{ .Title }}</h1>
<div class="error">Error: {{ .Message }}</div>
{{- else }}
<h1>{{ .Title }}</h1>
<div class="plot-area">{{ .Plot }}</div>
<div class="info">
<p>Data Points: <span class="count">{{ .Count }} / {{ .Capacity }}</span></p>
<p class="status">&#9679; Auto-refreshing every {{ .Interval }} second(s)</p>
</div>
{{- end }}
</div>
</body>
</html>
`))

// Build writes the page as HTML document to w
func Build(w io.Writer, p Page) error {
	if err := tmpl.Execute(w, struct {
		Page
		Interval int
		IsNoData bool
		IsError  bool
	}{
		Page:     p,
		Interval: RefreshInterval,
		IsNoData: p.Kind == NoData,
		IsError:  p.Kind == Error,
	}); err != nil {
		return errors.Wrap(err, "failed to build page")
	}

	return nil
}
