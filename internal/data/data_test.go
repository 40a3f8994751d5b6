package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

var sampleRows = [][]string{
	{"code", "is_vulnerable", "source"},
	{"strcpy(buf, input);", "1", "juliet"},
	{"strncpy(buf, input, n);", "0", "juliet"},
	{"eval(x)", "1", "cvefixes"},
	{"print(x)", "0", "juliet"},
}

func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, row := range rows {
		line := ""
		for i, cell := range row {
			if i > 0 {
				line += ","
			}
			line += `"` + cell + `"`
		}
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	return path
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadDatasetCSV(t *testing.T) {
	ds, err := LoadDataset(writeCSV(t, sampleRows), DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []int{1, 0, 1, 0}, ds.Labels)
	assert.Equal(t, "strcpy(buf, input);", ds.Texts[0])
	assert.True(t, ds.HasGroups)

	stats := ds.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Vulnerable)
	assert.Equal(t, 2, stats.Safe)
	require.Len(t, stats.Groups, 2)
	assert.Equal(t, GroupStats{Name: "juliet", Count: 3, Vulnerable: 1, Safe: 2}, stats.Groups[0])
	assert.Equal(t, GroupStats{Name: "cvefixes", Count: 1, Vulnerable: 1, Safe: 0}, stats.Groups[1])
}

func TestLoadDatasetXLSXMatchesCSV(t *testing.T) {
	fromCSV, err := LoadDataset(writeCSV(t, sampleRows), DefaultColumns())
	require.NoError(t, err)
	fromXLSX, err := LoadDataset(writeXLSX(t, sampleRows), DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, fromCSV.Texts, fromXLSX.Texts)
	assert.Equal(t, fromCSV.Labels, fromXLSX.Labels)
	assert.Equal(t, fromCSV.Groups, fromXLSX.Groups)
}

func TestLoadDatasetWithoutGroups(t *testing.T) {
	rows := [][]string{{"code", "is_vulnerable"}, {"a()", "1"}, {"b()", "0"}}
	ds, err := LoadDataset(writeCSV(t, rows), DefaultColumns())
	require.NoError(t, err)

	assert.False(t, ds.HasGroups)
	assert.Empty(t, ds.Stats().Groups)
}

func TestLoadDatasetErrors(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns())
	assert.Error(t, err)

	_, err = LoadDataset(writeCSV(t, [][]string{{"snippet", "is_vulnerable"}, {"a", "1"}}), DefaultColumns())
	assert.True(t, eris.Is(err, ErrMissingColumn))

	_, err = LoadDataset(writeCSV(t, [][]string{{"code", "label"}, {"a", "1"}}), DefaultColumns())
	assert.True(t, eris.Is(err, ErrMissingColumn))

	_, err = LoadDataset(writeCSV(t, [][]string{{"code", "is_vulnerable"}}), DefaultColumns())
	assert.True(t, eris.Is(err, ErrEmptyDataset))

	_, err = LoadDataset(writeCSV(t, [][]string{{"code", "is_vulnerable"}, {"a", "maybe"}}), DefaultColumns())
	assert.True(t, eris.Is(err, ErrInvalidLabel))
}

func TestValidator(t *testing.T) {
	dv := NewDataValidator()

	assert.NoError(t, dv.ValidateLabels([]int{0, 1, 1}))
	assert.Error(t, dv.ValidateLabels([]int{1, 1}))
	assert.Error(t, dv.ValidateLabels(nil))
	assert.True(t, eris.Is(dv.ValidateDataset(&Dataset{}), ErrEmptyDataset))
	assert.Error(t, dv.ValidateDataset(&Dataset{Texts: []string{"a"}, Labels: []int{0, 1}}))
}

func TestStreamingReaderBatches(t *testing.T) {
	rows := [][]string{{"id", "code"}, {"a", "x()"}, {"b", "y()"}, {"c", "z()"}}
	reader, err := NewStreamingReader(writeCSV(t, rows), "code", "id", 2)
	require.NoError(t, err)
	defer reader.Close()

	var ids, texts []string
	batches := 0
	total, err := NewBatchProcessor(reader).ProcessBatches(func(b *SnippetBatch) error {
		batches++
		ids = append(ids, b.IDs...)
		texts = append(texts, b.Texts...)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.Equal(t, 2, batches)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []string{"x()", "y()", "z()"}, texts)
}

func TestStreamingReaderRowNumberIDs(t *testing.T) {
	rows := [][]string{{"code"}, {"x()"}, {"y()"}}
	reader, err := NewStreamingReader(writeCSV(t, rows), "code", "id", 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, batch.IDs)

	_, err = NewStreamingReader(writeCSV(t, rows), "snippet", "id", 10)
	assert.True(t, eris.Is(err, ErrMissingColumn))
}

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDatasetUTF8BOMHeader(t *testing.T) {
	path := writeRaw(t, "\xEF\xBB\xBFcode,is_vulnerable\nstrcpy(buf, input);,1\nputs(x);,0\n")

	ds, err := LoadDataset(path, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, []string{"strcpy(buf, input);", "puts(x);"}, ds.Texts)
	assert.Equal(t, []int{1, 0}, ds.Labels)
}

func TestLoadDatasetBareQuoteInField(t *testing.T) {
	path := writeRaw(t, "code,is_vulnerable\nprintf(\"%s\" x),1\nputs(\"ok\");,0\n")

	ds, err := LoadDataset(path, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, `printf("%s" x)`, ds.Texts[0])
	assert.Equal(t, `puts("ok");`, ds.Texts[1])
	assert.Equal(t, []int{1, 0}, ds.Labels)
}

func TestStreamingReaderBOMAndBareQuotes(t *testing.T) {
	path := writeRaw(t, "\xEF\xBB\xBFcode,id\nprintf(\"%s\" x),a1\n")

	reader, err := NewStreamingReader(path, "code", "id", 5)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, 5, NewBatchProcessor(reader).GetBatchSize())

	batch, err := reader.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, batch.IDs)
	assert.Equal(t, []string{`printf("%s" x)`}, batch.Texts)
}
