package data

import (
	"io"

	"github.com/rotisserie/eris"
)

type BatchProcessor struct {
	reader *StreamingReader
}

func NewBatchProcessor(reader *StreamingReader) *BatchProcessor {
	return &BatchProcessor{reader: reader}
}

// ProcessBatches feeds every batch to processFn in file order and returns the
// number of rows processed.
func (bp *BatchProcessor) ProcessBatches(processFn func(*SnippetBatch) error) (int, error) {
	total := 0
	for batchNum := 0; ; batchNum++ {
		batch, err := bp.reader.ReadBatch()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, eris.Wrapf(err, "data: read batch %d", batchNum)
		}

		if err := processFn(batch); err != nil {
			return total, eris.Wrapf(err, "data: process batch %d", batchNum)
		}
		total += batch.Size
	}
}

func (bp *BatchProcessor) GetBatchSize() int {
	return bp.reader.batchSize
}
