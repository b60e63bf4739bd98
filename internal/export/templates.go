package export

import (
	"bytes"
	"embed"
	"html/template"

	"labreport/api/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"sampleLabel": func() string { return render.SampleCalculationsLabel },
		"emptyText":   func() string { return render.EmptyDocumentText },
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		// Fallback to built-in template if file not found
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// RenderReportHTML renders a projected document as a standalone HTML page.
func RenderReportHTML(doc render.Document) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body>
  <h1>{{.Title}}</h1>
  {{range .Meta}}<p>{{.}}</p>{{end}}
  {{range .Sections}}
  <h2>{{.Heading}}</h2>
  {{if .Text}}<p>{{.Text}}</p>{{end}}
  {{if .Notes}}<p>{{.Notes}}</p>{{end}}
  {{if .SampleCalculations}}<h3>{{sampleLabel}}</h3><p>{{.SampleCalculations}}</p>{{end}}
  {{range .Tables}}
  {{if .Title}}<p><b>{{.Title}}</b></p>{{end}}{{if .Caption}}<p><b>{{.Caption}}</b></p>{{end}}
  <table border="1"><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</table>
  {{end}}
  {{else}}<p>{{emptyText}}</p>{{end}}
</body>
</html>`
