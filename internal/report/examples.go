package report

import (
	"embed"
	"strings"
)

//go:embed examples/*.json
var exampleFiles embed.FS

// ExampleKinds lists the bundled sample reports.
var ExampleKinds = []string{"chemistry", "physics"}

// ExampleReport loads a bundled sample report as a fresh Draft with a new id.
func ExampleReport(kind string) (Report, bool) {
	data, err := exampleFiles.ReadFile("examples/" + strings.ToLower(strings.TrimSpace(kind)) + ".json")
	if err != nil {
		return Report{}, false
	}
	return ParseReport(data), true
}
