package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "Notes",
		Columns: []Column{{Title: "Title"}, {Title: "Category", Width: 40}},
		Rows: [][]string{
			{"Calculus, part 1", "Mathematics"},
			{"Short row"},
		},
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "Title,Category\n\"Calculus, part 1\",Mathematics\nShort row,\n", string(out))
}

func TestCSVNeutralizesFormulaCells(t *testing.T) {
	row := []string{"=HYPERLINK(\"http://x\")", "+1", "-2", "@SUM(A1)", "plain", "a=b"}
	out, err := CSV(Table{
		Columns: []Column{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}, {Title: "e"}, {Title: "f"}},
		Rows:    [][]string{row},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b,c,d,e,f\n\"'=HYPERLINK(\"\"http://x\"\")\",'+1,'-2,'@SUM(A1),plain,a=b\n", string(out))
	assert.Equal(t, "+1", row[1])
}

func TestPDF(t *testing.T) {
	out, err := Render(sampleTable(), FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	_, err := Render(sampleTable(), Format("xlsx"))
	assert.Error(t, err)

	_, err = CSV(Table{})
	assert.Error(t, err)
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]Column{{Width: 40}, {}, {}}, 100)
	assert.Equal(t, []float64{40, 30, 30}, widths)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "abcdefghi...", truncate("abcdefghijklmnop", 20))
}
