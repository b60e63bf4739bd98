package report

import "strings"

// PrintableSection is one schema entry that survived empty-section
// suppression. Text sections use Text; data sections use Notes,
// SampleCalculations and Tables.
type PrintableSection struct {
	Kind               SectionKind
	Key                string
	Label              string
	Text               string
	Notes              string
	SampleCalculations string
	Tables             []Table
}

// BuildPrintableSections walks the schema in order and keeps the sections
// that have something to print. Data sections only carry their tables with
// content. Every renderer goes through this function.
func BuildPrintableSections(r Report) []PrintableSection {
	var out []PrintableSection
	for _, section := range Schema {
		switch section.Kind {
		case SectionText:
			text := strings.TrimSpace(r.Sections[section.Key])
			if text == "" {
				continue
			}
			out = append(out, PrintableSection{
				Kind:  SectionText,
				Key:   section.Key,
				Label: section.Label,
				Text:  text,
			})
		case SectionData:
			notes := strings.TrimSpace(r.Sections[section.NotesKey])
			sample := ""
			if section.SampleCalculationsKey != "" {
				sample = strings.TrimSpace(r.Sections[section.SampleCalculationsKey])
			}
			var tables []Table
			for _, t := range NormalizeTableList(r.Tables[section.Key], section.Key) {
				if TableHasContent(t, section.Key) {
					tables = append(tables, t)
				}
			}
			if notes == "" && sample == "" && len(tables) == 0 {
				continue
			}
			out = append(out, PrintableSection{
				Kind:               SectionData,
				Key:                section.Key,
				Label:              section.Label,
				Notes:              notes,
				SampleCalculations: sample,
				Tables:             tables,
			})
		}
	}
	return out
}
