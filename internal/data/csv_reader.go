package data

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"vulnclassifier/internal/preprocessing"
)

var (
	ErrMissingColumn = eris.New("required column missing")
	ErrEmptyDataset  = eris.New("dataset has no rows")
	ErrInvalidLabel  = eris.New("invalid label value")
)

// Columns names the table columns holding the snippet, its label and an
// optional source tag.
type Columns struct {
	Text  string
	Label string
	Group string
}

func DefaultColumns() Columns {
	return Columns{Text: "code", Label: "is_vulnerable", Group: "source"}
}

// Dataset holds aligned columns; it is not modified after loading.
type Dataset struct {
	Texts     []string
	Labels    []int
	Groups    []string
	HasGroups bool
	Source    string
}

func (d *Dataset) Len() int {
	return len(d.Texts)
}

// LoadDataset reads a CSV or XLSX table, picking the format by extension.
func LoadDataset(path string, cols Columns) (*Dataset, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	ds, err := fromRecords(records, cols)
	if err != nil {
		return nil, eris.Wrapf(err, "data: load %s", path)
	}
	ds.Source = path
	return ds, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "data: open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "data: parse csv %s", path)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = trimBOM(records[0][0])
	}
	return records, nil
}

// trimBOM drops a UTF-8 byte order mark left on the first header cell.
func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "data: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(ErrEmptyDataset, "data: %s has no sheets", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		records = append(records, cells)
	}
	return records, nil
}

func fromRecords(records [][]string, cols Columns) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}

	textIdx, ok := header[cols.Text]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", cols.Text)
	}
	labelIdx, ok := header[cols.Label]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", cols.Label)
	}
	groupIdx, hasGroups := header[cols.Group]
	if cols.Group == "" {
		hasGroups = false
	}

	rows := records[1:]
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	encoder := preprocessing.NewBinaryLabelEncoder()
	ds := &Dataset{
		Texts:     make([]string, len(rows)),
		Labels:    make([]int, len(rows)),
		HasGroups: hasGroups,
	}
	if hasGroups {
		ds.Groups = make([]string, len(rows))
	}

	for i, record := range rows {
		ds.Texts[i] = field(record, textIdx)

		label, err := encoder.Encode(field(record, labelIdx))
		if err != nil {
			// Row numbers are 1-based and count the header.
			return nil, eris.Wrapf(ErrInvalidLabel, "row %d: %v", i+2, err)
		}
		ds.Labels[i] = label

		if hasGroups {
			ds.Groups[i] = field(record, groupIdx)
		}
	}

	return ds, nil
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}
