package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireValidTable(t *testing.T, table Table) {
	t.Helper()
	require.NotEmpty(t, table.Headers)
	require.LessOrEqual(t, len(table.Headers), MaxHeaders)
	require.NotEmpty(t, table.Rows)
	for _, row := range table.Rows {
		require.Len(t, row, len(table.Headers))
	}
}

func TestNormalizeTableKeepsSuppliedRow(t *testing.T) {
	got := NormalizeTable(map[string]any{
		"headers": []any{},
		"rows":    []any{[]any{"1,2 g", "5 mL"}},
	}, KindRawData)

	assert.Equal(t, []string{"Trial", "", "", "", ""}, got.Headers)
	assert.Equal(t, [][]string{{"1,2 g", "5 mL", "", "", ""}}, got.Rows)
}

func TestNormalizeTableNeverFails(t *testing.T) {
	inputs := []any{
		nil,
		"table",
		42.0,
		true,
		[]any{1, 2},
		map[string]any{},
		map[string]any{"headers": "nope", "rows": "nope"},
		map[string]any{"headers": []any{nil, 3.5, true}, "rows": []any{"x", nil, []any{nil, 7.0}}},
		map[string]any{"title": 12.0, "rows": []any{[]any{}}},
		Table{},
		&Table{Title: "t"},
		(*Table)(nil),
	}
	for _, kind := range []string{KindRawData, KindProcessedData, "notes"} {
		for _, input := range inputs {
			got := NormalizeTable(input, kind)
			requireValidTable(t, got)
			if IsStructured(kind) {
				assert.Equal(t, "Trial", got.Headers[0])
			}
		}
	}
}

func TestNormalizeTableIsIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		map[string]any{"title": "  Masses ", "headers": []any{" Mass (g) "}, "rows": []any{[]any{1.0, 2.5, "x", nil}}},
		map[string]any{"headers": []any{"Independent variable", "Dependent variable", "Unit"}, "rows": []any{}},
		map[string]any{"headers": []any{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n"}},
		map[string]any{"rows": []any{[]any{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14"}}},
		map[string]any{"headers": []any{"Column 1", "Column 7"}, "rows": []any{[]any{"a"}, "skip", []any{"b", "c", "d"}}},
	}
	for _, kind := range []string{KindRawData, "generic"} {
		for _, input := range inputs {
			once := NormalizeTable(input, kind)
			assert.Equal(t, once, NormalizeTable(once, kind))
		}
	}
}

func TestNormalizeTableStructuredHeaders(t *testing.T) {
	got := NormalizeTable(map[string]any{
		"headers": []any{"Run", "Independent Variable", "Mass (g)", "unit", "Column 5", "Sample ID", "uncertainty (+/-)", "Temp"},
		"rows":    []any{[]any{"Trial 1"}},
	}, KindProcessedData)

	assert.Equal(t, []string{"Trial", "", "Mass (g)", "", "", "", "", "Temp"}, got.Headers)
	assert.Len(t, got.Rows[0], 8)
}

func TestNormalizeTableGenericKeepsLabels(t *testing.T) {
	got := NormalizeTable(map[string]any{
		"headers": []any{"Sample"},
		"rows":    []any{[]any{"a", "b", "c"}},
	}, "observations")

	assert.Equal(t, []string{"Sample", "Column 2", "Column 3"}, got.Headers)
}

func TestNormalizeTableCapsColumnsAndRows(t *testing.T) {
	wide := make([]any, 20)
	for i := range wide {
		wide[i] = "x"
	}
	rows := make([]any, MaxRows+10)
	for i := range rows {
		rows[i] = wide
	}
	got := NormalizeTable(map[string]any{"headers": wide, "rows": rows}, "generic")

	assert.Len(t, got.Headers, MaxHeaders)
	assert.Len(t, got.Rows, MaxRows)
	requireValidTable(t, got)
}

func TestNormalizeTableInitialRows(t *testing.T) {
	structured := NormalizeTable(map[string]any{"rows": []any{"not a row"}}, KindRawData)
	assert.Equal(t, [][]string{
		{"Trial 1", "", "", "", ""},
		{"Trial 2", "", "", "", ""},
		{"Trial 3", "", "", "", ""},
	}, structured.Rows)

	generic := NormalizeTable(map[string]any{}, "generic")
	assert.Equal(t, []string{"Column 1", "Column 2"}, generic.Headers)
	assert.Equal(t, [][]string{{"", ""}}, generic.Rows)
}

func TestNormalizeTableStringifiesCells(t *testing.T) {
	got := NormalizeTable(map[string]any{
		"rows": []any{[]any{1.5, 100.0, true, nil, " keep "}},
	}, "generic")
	assert.Equal(t, []string{"1.5", "100", "true", "", " keep "}, got.Rows[0])
}

func TestNormalizeTableList(t *testing.T) {
	single := NormalizeTableList(map[string]any{"title": "Only"}, KindRawData)
	require.Len(t, single, 1)
	assert.Equal(t, "Only", single[0].Title)

	many := NormalizeTableList([]any{map[string]any{"title": "A"}, nil}, KindRawData)
	require.Len(t, many, 2)
	assert.Equal(t, DefaultTable(KindRawData), many[1])

	assert.Equal(t, []Table{DefaultTable(KindRawData)}, NormalizeTableList([]any{}, KindRawData))
	assert.Equal(t, []Table{DefaultTable("x")}, NormalizeTableList("junk", "x"))
}

func TestTableHasContent(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		kind  string
		want  bool
	}{
		{"default structured", DefaultTable(KindRawData), KindRawData, false},
		{"default generic", DefaultTable("g"), "g", false},
		{"title", SetTitle(DefaultTable(KindRawData), "Masses"), KindRawData, true},
		{"blank title", SetTitle(DefaultTable(KindRawData), "   "), KindRawData, false},
		{"cell", SetCell(DefaultTable(KindRawData), 0, 1, "2.0"), KindRawData, true},
		{"custom header", SetHeader(DefaultTable(KindRawData), 2, "Mass"), KindRawData, true},
		{"generic label on structured", SetHeader(DefaultTable(KindRawData), 2, "Column 3"), KindRawData, false},
		{"generic label moved", SetHeader(DefaultTable("g"), 0, "Column 2"), "g", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TableHasContent(tt.table, tt.kind))
		})
	}
}

func TestAddRowLabelsTrials(t *testing.T) {
	table := DefaultTable(KindRawData)
	table = SetCell(table, 2, 0, "Trial 7")

	got := AddRow(table, KindRawData)
	require.Len(t, got.Rows, 4)
	assert.Equal(t, []string{"Trial 8", "", "", "", ""}, got.Rows[3])
	assert.Len(t, table.Rows, 3, "input must not change")

	generic := AddRow(DefaultTable("g"), "g")
	assert.Equal(t, []string{"", ""}, generic.Rows[1])

	trial := AddTrialRow(DefaultTable(KindProcessedData), KindProcessedData)
	assert.Equal(t, "Trial 4", trial.Rows[3][0])

	renamed := SetHeader(DefaultTable(KindRawData), 0, "Run")
	assert.Equal(t, "", AddRow(renamed, KindRawData).Rows[3][0])
}

func TestAddColumn(t *testing.T) {
	structured := AddColumn(DefaultTable(KindRawData), KindRawData)
	assert.Equal(t, []string{"Trial", "", "", "", "", ""}, structured.Headers)
	for _, row := range structured.Rows {
		assert.Len(t, row, 6)
	}

	generic := AddColumn(DefaultTable("g"), "g")
	assert.Equal(t, []string{"Column 1", "Column 2", "Column 3"}, generic.Headers)

	full := DefaultTable("g")
	for i := 0; i < 20; i++ {
		full = AddColumn(full, "g")
	}
	assert.Len(t, full.Headers, MaxHeaders)
}

func TestDeleteLastColumnNeverEmpties(t *testing.T) {
	table := DefaultTable(KindRawData)
	for i := 0; i < 10; i++ {
		table = DeleteLastColumn(table, KindRawData)
		requireValidTable(t, table)
	}
	assert.Equal(t, []string{"Trial"}, table.Headers)
	assert.Equal(t, [][]string{{"Trial 1"}, {"Trial 1"}, {"Trial 1"}}, table.Rows)

	generic := DeleteLastColumn(DeleteLastColumn(DefaultTable("g"), "g"), "g")
	assert.Equal(t, []string{"Column 1"}, generic.Headers)
	assert.Equal(t, [][]string{{""}}, generic.Rows)
}

func TestDeleteColumn(t *testing.T) {
	table := Table{Headers: []string{"A", "B", "C"}, Rows: [][]string{{"1", "2", "3"}}}
	got := DeleteColumn(table, "g", 1)
	assert.Equal(t, []string{"A", "C"}, got.Headers)
	assert.Equal(t, [][]string{{"1", "3"}}, got.Rows)
	assert.Equal(t, []string{"A", "B", "C"}, table.Headers)

	assert.Equal(t, table, DeleteColumn(table, "g", 9))

	only := DeleteColumn(Table{Headers: []string{"X"}, Rows: [][]string{{"v"}}}, KindRawData, 0)
	assert.Equal(t, []string{"Trial"}, only.Headers)
	assert.Equal(t, [][]string{{"Trial 1"}}, only.Rows)
}

func TestDeleteRowNeverEmpties(t *testing.T) {
	table := DefaultTable(KindRawData)
	table = DeleteRow(table, KindRawData, 0)
	assert.Equal(t, "Trial 2", table.Rows[0][0])
	table = DeleteRow(table, KindRawData, 0)
	table = SetCell(table, 0, 2, "data")
	table = DeleteRow(table, KindRawData, 0)
	assert.Equal(t, [][]string{{"Trial 1", "", "", "", ""}}, table.Rows)

	generic := DeleteRow(Table{Headers: []string{"A", "B"}, Rows: [][]string{{"x", "y"}}}, "g", 0)
	assert.Equal(t, [][]string{{"", ""}}, generic.Rows)
}

func TestTableListOps(t *testing.T) {
	list := AddTable([]Table{SetTitle(DefaultTable(KindRawData), "First")}, KindRawData)
	require.Len(t, list, 2)

	list = RemoveTable(list, KindRawData, 0)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].Title)

	list = RemoveTable([]Table{SetTitle(DefaultTable(KindRawData), "Last")}, KindRawData, 0)
	assert.Equal(t, []Table{DefaultTable(KindRawData)}, list)
}

func TestNextTrialNumber(t *testing.T) {
	assert.Equal(t, 1, NextTrialNumber(nil))
	assert.Equal(t, 4, NextTrialNumber([][]string{{"Trial 1"}, {"trial 3b"}, {"Mean"}, {}}))
}
