package experiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
)

var comparisonHeader = []string{"Model", "Accuracy", "Precision", "Recall", "F1-Score", "Training Time (s)"}

type ComparisonRow struct {
	Model           string  `yaml:"model"`
	Accuracy        float64 `yaml:"accuracy"`
	Precision       float64 `yaml:"precision"`
	Recall          float64 `yaml:"recall"`
	F1              float64 `yaml:"f1_score"`
	TrainingSeconds float64 `yaml:"training_seconds"`
}

// Comparison is the per-model table sorted by accuracy, best first. Models
// with equal accuracy keep their bank order.
type Comparison struct {
	Rows []ComparisonRow
}

type Range struct {
	Min float64
	Max float64
}

type SummaryStats struct {
	Accuracy  Range
	Precision Range
	Recall    Range
	F1        Range
	Time      Range
	TimeMean  decimal.Decimal
	TimeSum   decimal.Decimal
}

func NewComparison(results []Result) *Comparison {
	rows := make([]ComparisonRow, len(results))
	for i, r := range results {
		rows[i] = ComparisonRow{
			Model:           r.Name,
			Accuracy:        r.Accuracy,
			Precision:       r.Precision,
			Recall:          r.Recall,
			F1:              r.F1,
			TrainingSeconds: r.TrainingTime.Seconds(),
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Accuracy > rows[j].Accuracy
	})

	return &Comparison{Rows: rows}
}

// Best returns the top row.
func (c *Comparison) Best() ComparisonRow {
	if len(c.Rows) == 0 {
		return ComparisonRow{}
	}
	return c.Rows[0]
}

// Fastest returns the first row, in table order, with the smallest training time.
func (c *Comparison) Fastest() ComparisonRow {
	if len(c.Rows) == 0 {
		return ComparisonRow{}
	}
	fastest := c.Rows[0]
	for _, row := range c.Rows[1:] {
		if row.TrainingSeconds < fastest.TrainingSeconds {
			fastest = row
		}
	}
	return fastest
}

func (c *Comparison) Summary() SummaryStats {
	var s SummaryStats
	if len(c.Rows) == 0 {
		return s
	}

	first := c.Rows[0]
	s.Accuracy = Range{first.Accuracy, first.Accuracy}
	s.Precision = Range{first.Precision, first.Precision}
	s.Recall = Range{first.Recall, first.Recall}
	s.F1 = Range{first.F1, first.F1}
	s.Time = Range{first.TrainingSeconds, first.TrainingSeconds}

	sum := decimal.Zero
	for _, row := range c.Rows {
		s.Accuracy.extend(row.Accuracy)
		s.Precision.extend(row.Precision)
		s.Recall.extend(row.Recall)
		s.F1.extend(row.F1)
		s.Time.extend(row.TrainingSeconds)
		sum = sum.Add(decimal.NewFromFloat(row.TrainingSeconds))
	}

	s.TimeSum = sum
	s.TimeMean = sum.Div(decimal.NewFromInt(int64(len(c.Rows))))
	return s
}

func (r *Range) extend(v float64) {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
}

func (row ComparisonRow) cells() []string {
	return []string{
		row.Model,
		decimal.NewFromFloat(row.Accuracy).String(),
		decimal.NewFromFloat(row.Precision).String(),
		decimal.NewFromFloat(row.Recall).String(),
		decimal.NewFromFloat(row.F1).String(),
		decimal.NewFromFloat(row.TrainingSeconds).String(),
	}
}

func (c *Comparison) WriteCSV(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", filename)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(comparisonHeader); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, row := range c.Rows {
		if err := writer.Write(row.cells()); err != nil {
			return eris.Wrapf(err, "report: write row %s", row.Model)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

func (c *Comparison) WriteXLSX(filename string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Comparison")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range comparisonHeader {
		header.AddCell().SetString(name)
	}

	for _, row := range c.Rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Model)
		for _, v := range []float64{row.Accuracy, row.Precision, row.Recall, row.F1, row.TrainingSeconds} {
			r.AddCell().SetFloat(v)
		}
	}

	if err := f.Save(filename); err != nil {
		return eris.Wrapf(err, "report: save %s", filename)
	}
	return nil
}

// Table renders the rows as fixed-width text.
func (c *Comparison) Table() string {
	width := len("Model")
	for _, row := range c.Rows {
		if len(row.Model) > width {
			width = len(row.Model)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %8s  %9s  %6s  %8s  %17s\n", width, comparisonHeader[0],
		comparisonHeader[1], comparisonHeader[2], comparisonHeader[3], comparisonHeader[4], comparisonHeader[5])
	for _, row := range c.Rows {
		fmt.Fprintf(&b, "%-*s  %8.4f  %9.4f  %6.4f  %8.4f  %17s\n", width, row.Model,
			row.Accuracy, row.Precision, row.Recall, row.F1,
			decimal.NewFromFloat(row.TrainingSeconds).StringFixed(2))
	}
	return b.String()
}

// Print writes the comparison, the highlighted models and summary statistics.
func (c *Comparison) Print(console *Console) {
	console.Section("MODEL COMPARISON")
	console.Printf("\n%s", c.Table())

	best := c.Best()
	fastest := c.Fastest()
	console.Println()
	console.Highlight("🏆 Best Accuracy: %s (%.4f)", best.Model, best.Accuracy)
	console.Highlight("⚡ Fastest Training: %s (%ss)", fastest.Model,
		decimal.NewFromFloat(fastest.TrainingSeconds).StringFixed(2))

	s := c.Summary()
	console.Section("SUMMARY STATISTICS")
	console.Printf("\n📈 Performance Range:\n")
	console.Printf("  Accuracy:  %.4f - %.4f\n", s.Accuracy.Min, s.Accuracy.Max)
	console.Printf("  Precision: %.4f - %.4f\n", s.Precision.Min, s.Precision.Max)
	console.Printf("  Recall:    %.4f - %.4f\n", s.Recall.Min, s.Recall.Max)
	console.Printf("  F1-Score:  %.4f - %.4f\n", s.F1.Min, s.F1.Max)

	console.Printf("\n⏱️  Training Time Range:\n")
	console.Printf("  Fastest: %ss\n", decimal.NewFromFloat(s.Time.Min).StringFixed(2))
	console.Printf("  Slowest: %ss\n", decimal.NewFromFloat(s.Time.Max).StringFixed(2))
	console.Printf("  Average: %ss\n", s.TimeMean.StringFixed(2))
	console.Printf("  Total:   %ss\n", s.TimeSum.StringFixed(2))
}
