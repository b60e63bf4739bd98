package report

import "regexp"

// SectionKind distinguishes free-text sections from table-bound data sections.
type SectionKind string

const (
	SectionText SectionKind = "text"
	SectionData SectionKind = "data"
)

// SectionSpec describes one entry of the fixed report schema. For data
// sections Key doubles as the table kind.
type SectionSpec struct {
	Kind                  SectionKind
	Key                   string
	NotesKey              string
	SampleCalculationsKey string
	Label                 string
}

const (
	KindRawData       = "rawData"
	KindProcessedData = "processedData"

	MaxHeaders = 12
	MaxRows    = 300

	genericMinColumns = 2
	trialHeader       = "Trial"
)

// Schema is the ordered section list every report follows.
var Schema = []SectionSpec{
	{Kind: SectionText, Key: "researchQuestion", Label: "Research Question"},
	{Kind: SectionText, Key: "backgroundInformation", Label: "Background Information"},
	{Kind: SectionText, Key: "variables", Label: "Variables"},
	{Kind: SectionText, Key: "hypothesis", Label: "Hypothesis"},
	{Kind: SectionText, Key: "materials", Label: "Materials"},
	{Kind: SectionText, Key: "procedure", Label: "Procedure"},
	{Kind: SectionData, Key: KindRawData, NotesKey: "rawDataNotes", Label: "Raw Data"},
	{
		Kind:                  SectionData,
		Key:                   KindProcessedData,
		NotesKey:              "processedDataNotes",
		SampleCalculationsKey: "processedDataSampleCalculations",
		Label:                 "Processed Data",
	},
	{Kind: SectionText, Key: "conclusion", Label: "Conclusion"},
	{Kind: SectionText, Key: "evaluation", Label: "Evaluation"},
	{Kind: SectionText, Key: "improvements", Label: "Improvements"},
	{Kind: SectionText, Key: "references", Label: "References (APA 7)"},
}

var tableTemplates = map[string][]string{
	KindRawData:       {trialHeader, "", "", "", ""},
	KindProcessedData: {trialHeader, "", "", "", ""},
}

// Auto-generated labels from older templates. Matching headers are blanked on
// structured tables so they do not survive a template change.
var legacyHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^independent`),
	regexp.MustCompile(`(?i)^dependent`),
	regexp.MustCompile(`(?i)^unit$`),
	regexp.MustCompile(`(?i)^observation`),
	regexp.MustCompile(`(?i)^measure`),
	regexp.MustCompile(`(?i)^processed`),
	regexp.MustCompile(`(?i)^sample`),
	regexp.MustCompile(`(?i)^uncertainty`),
	regexp.MustCompile(`(?i)^interpretation`),
	regexp.MustCompile(`(?i)^column\s+\d+$`),
}

// SectionKeys lists every free-text field key in schema order, including
// notes and sample-calculation fields of data sections.
func SectionKeys() []string {
	keys := make([]string, 0, len(Schema)+2)
	for _, section := range Schema {
		switch section.Kind {
		case SectionText:
			keys = append(keys, section.Key)
		case SectionData:
			keys = append(keys, section.NotesKey)
			if section.SampleCalculationsKey != "" {
				keys = append(keys, section.SampleCalculationsKey)
			}
		}
	}
	return keys
}

// TableKinds lists the table kinds bound to data sections, in schema order.
func TableKinds() []string {
	kinds := make([]string, 0, 2)
	for _, section := range Schema {
		if section.Kind == SectionData {
			kinds = append(kinds, section.Key)
		}
	}
	return kinds
}

// TemplateHeaders returns the suggested header labels for kind; generic kinds
// have none.
func TemplateHeaders(kind string) []string {
	return tableTemplates[kind]
}

// IsStructured reports whether kind has a header template and a forced Trial
// column.
func IsStructured(kind string) bool {
	return len(tableTemplates[kind]) > 0
}

// MinColumns is the narrowest width a normalized table of kind may have.
func MinColumns(kind string) int {
	if IsStructured(kind) {
		return len(tableTemplates[kind])
	}
	return genericMinColumns
}

func isLegacyHeader(value string, index int) bool {
	if index == 0 || value == "" {
		return false
	}
	for _, pattern := range legacyHeaderPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
