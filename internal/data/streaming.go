package data

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// SnippetBatch is a run of consecutive unlabeled rows from a scoring input.
type SnippetBatch struct {
	IDs   []string
	Texts []string
	Size  int
}

// StreamingReader reads snippets to score without loading the whole file.
type StreamingReader struct {
	file      *os.File
	reader    *csv.Reader
	textCol   int
	idCol     int
	batchSize int
	rowNum    int
}

// NewStreamingReader opens a CSV whose textColumn holds the snippet. When
// idColumn is absent, the 1-based row number is used as the id.
func NewStreamingReader(filename, textColumn, idColumn string, batchSize int) (*StreamingReader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "data: open %s", filename)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, eris.Wrapf(err, "data: read headers of %s", filename)
	}

	if len(headers) > 0 {
		headers[0] = trimBOM(headers[0])
	}

	textCol, idCol := -1, -1
	for i, h := range headers {
		switch strings.TrimSpace(h) {
		case textColumn:
			textCol = i
		case idColumn:
			idCol = i
		}
	}
	if textCol < 0 {
		file.Close()
		return nil, eris.Wrapf(ErrMissingColumn, "column %q", textColumn)
	}

	if batchSize <= 0 {
		batchSize = 500
	}

	return &StreamingReader{
		file:      file,
		reader:    reader,
		textCol:   textCol,
		idCol:     idCol,
		batchSize: batchSize,
	}, nil
}

// ReadBatch returns io.EOF once no rows remain.
func (sr *StreamingReader) ReadBatch() (*SnippetBatch, error) {
	batch := &SnippetBatch{
		IDs:   make([]string, 0, sr.batchSize),
		Texts: make([]string, 0, sr.batchSize),
	}

	for len(batch.Texts) < sr.batchSize {
		record, err := sr.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "data: read record")
		}
		sr.rowNum++

		id := strconv.Itoa(sr.rowNum)
		if sr.idCol >= 0 {
			id = field(record, sr.idCol)
		}

		batch.IDs = append(batch.IDs, id)
		batch.Texts = append(batch.Texts, field(record, sr.textCol))
	}

	if len(batch.Texts) == 0 {
		return nil, io.EOF
	}

	batch.Size = len(batch.Texts)
	return batch, nil
}

func (sr *StreamingReader) Close() error {
	return sr.file.Close()
}
