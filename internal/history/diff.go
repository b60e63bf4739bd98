package history

import (
	"reflect"
	"sort"

	"labreport/api/internal/report"
)

const tableMarker = "[table data]"

// DiffFields lists the fields that differ between two versions, sorted by
// field name. Bookkeeping fields (updatedAt, timeSpentSeconds) are ignored.
func DiffFields(from, to report.Report) []FieldChange {
	pairs := []FieldChange{
		{Field: "status", Before: string(from.Status), After: string(to.Status)},
		{Field: "teacher", Before: from.Teacher, After: to.Teacher},
		{Field: "teacherEmail", Before: from.TeacherEmail, After: to.TeacherEmail},
		{Field: "title", Before: from.Title, After: to.Title},
		{Field: "studentName", Before: from.StudentName, After: to.StudentName},
		{Field: "date", Before: from.Date, After: to.Date},
	}
	for _, key := range report.SectionKeys() {
		pairs = append(pairs, FieldChange{
			Field:  "sections." + key,
			Before: from.Sections[key],
			After:  to.Sections[key],
		})
	}

	result := make([]FieldChange, 0)
	for _, item := range pairs {
		if item.Before != item.After {
			result = append(result, item)
		}
	}
	for _, kind := range report.TableKinds() {
		if !reflect.DeepEqual(from.Tables[kind], to.Tables[kind]) {
			result = append(result, FieldChange{Field: "tables." + kind, Before: tableMarker, After: tableMarker})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Field < result[j].Field
	})
	return result
}

// HasChanges reports whether any user-visible field differs.
func HasChanges(from, to report.Report) bool {
	return len(DiffFields(from, to)) > 0
}
