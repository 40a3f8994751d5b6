package evaluation

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// ClassificationMetrics holds binary scores for the positive class plus the
// per-class and averaged figures of a classification report.
type ClassificationMetrics struct {
	Accuracy          float64              `json:"accuracy" yaml:"accuracy"`
	Precision         float64              `json:"precision" yaml:"precision"`
	Recall            float64              `json:"recall" yaml:"recall"`
	F1Score           float64              `json:"f1_score" yaml:"f1_score"`
	MacroPrecision    float64              `json:"macro_precision" yaml:"macro_precision"`
	MacroRecall       float64              `json:"macro_recall" yaml:"macro_recall"`
	MacroF1           float64              `json:"macro_f1" yaml:"macro_f1"`
	WeightedPrecision float64              `json:"weighted_precision" yaml:"weighted_precision"`
	WeightedRecall    float64              `json:"weighted_recall" yaml:"weighted_recall"`
	WeightedF1        float64              `json:"weighted_f1" yaml:"weighted_f1"`
	PerClassMetrics   map[int]ClassMetrics `json:"per_class_metrics" yaml:"per_class_metrics"`
	ConfusionMatrix   [][]int              `json:"confusion_matrix" yaml:"confusion_matrix"`
	Classes           []int                `json:"classes" yaml:"classes"`
	NumSamples        int                  `json:"num_samples" yaml:"num_samples"`
}

type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1Score   float64 `json:"f1_score" yaml:"f1_score"`
	Support   int     `json:"support" yaml:"support"`
}

// CalculateMetrics scores yPred against yTrue. classes must be ascending;
// the last class is the positive one. Undefined ratios evaluate to 0.
func CalculateMetrics(yTrue, yPred []int, classes []int) (*ClassificationMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, eris.Errorf("metrics: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, eris.New("metrics: no samples")
	}
	if len(classes) == 0 {
		return nil, eris.New("metrics: no classes")
	}

	confusionMatrix := buildConfusionMatrix(yTrue, yPred, classes)

	perClassMetrics := make(map[int]ClassMetrics, len(classes))
	var macroPrec, macroRec, macroF1 float64
	var weightedPrec, weightedRec, weightedF1 float64
	totalSupport := 0

	for i, class := range classes {
		tp := confusionMatrix[i][i]
		fp, fn := 0, 0
		for j := range classes {
			if j != i {
				fp += confusionMatrix[j][i]
				fn += confusionMatrix[i][j]
			}
		}

		precision := safeDivide(float64(tp), float64(tp+fp))
		recall := safeDivide(float64(tp), float64(tp+fn))
		f1 := safeDivide(2*precision*recall, precision+recall)
		support := tp + fn

		perClassMetrics[class] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1Score:   f1,
			Support:   support,
		}

		macroPrec += precision
		macroRec += recall
		macroF1 += f1

		weightedPrec += precision * float64(support)
		weightedRec += recall * float64(support)
		weightedF1 += f1 * float64(support)
		totalSupport += support
	}

	numClasses := float64(len(classes))

	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}

	positive := perClassMetrics[classes[len(classes)-1]]

	return &ClassificationMetrics{
		Accuracy:          float64(correct) / float64(len(yTrue)),
		Precision:         positive.Precision,
		Recall:            positive.Recall,
		F1Score:           positive.F1Score,
		MacroPrecision:    macroPrec / numClasses,
		MacroRecall:       macroRec / numClasses,
		MacroF1:           macroF1 / numClasses,
		WeightedPrecision: safeDivide(weightedPrec, float64(totalSupport)),
		WeightedRecall:    safeDivide(weightedRec, float64(totalSupport)),
		WeightedF1:        safeDivide(weightedF1, float64(totalSupport)),
		PerClassMetrics:   perClassMetrics,
		ConfusionMatrix:   confusionMatrix,
		Classes:           append([]int(nil), classes...),
		NumSamples:        len(yTrue),
	}, nil
}

// buildConfusionMatrix returns counts indexed [actual][predicted].
func buildConfusionMatrix(yTrue, yPred []int, classes []int) [][]int {
	numClasses := len(classes)
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}

	classToIdx := make(map[int]int)
	for i, class := range classes {
		classToIdx[class] = i
	}

	for i := range yTrue {
		trueIdx, trueOk := classToIdx[yTrue[i]]
		predIdx, predOk := classToIdx[yPred[i]]
		if trueOk && predOk {
			matrix[trueIdx][predIdx]++
		}
	}

	return matrix
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0.0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0.0
	}
	return result
}

func (m *ClassificationMetrics) FormatMetrics() string {
	result := fmt.Sprintf("  Accuracy:  %.4f (%.2f%%)\n", m.Accuracy, m.Accuracy*100)
	result += fmt.Sprintf("  Precision: %.4f\n", m.Precision)
	result += fmt.Sprintf("  Recall:    %.4f\n", m.Recall)
	result += fmt.Sprintf("  F1-Score:  %.4f\n", m.F1Score)
	return result
}

// FormatReport renders a per-class table with accuracy, macro and weighted
// averages. targetNames label the classes in order.
func (m *ClassificationMetrics) FormatReport(targetNames []string, digits int) string {
	width := len("weighted avg")
	for _, name := range targetNames {
		if len(name) > width {
			width = len(name)
		}
	}

	num := func(x float64) string {
		return fmt.Sprintf("%9.*f", digits, x)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")

	for i, class := range m.Classes {
		name := fmt.Sprintf("%d", class)
		if i < len(targetNames) {
			name = targetNames[i]
		}
		cm := m.PerClassMetrics[class]
		fmt.Fprintf(&b, "%*s %s %s %s %9d\n", width, name, num(cm.Precision), num(cm.Recall), num(cm.F1Score), cm.Support)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %s %9d\n", width, "accuracy", "", "", num(m.Accuracy), m.NumSamples)
	fmt.Fprintf(&b, "%*s %s %s %s %9d\n", width, "macro avg",
		num(m.MacroPrecision), num(m.MacroRecall), num(m.MacroF1), m.NumSamples)
	fmt.Fprintf(&b, "%*s %s %s %s %9d\n", width, "weighted avg",
		num(m.WeightedPrecision), num(m.WeightedRecall), num(m.WeightedF1), m.NumSamples)

	return b.String()
}

// FormatConfusionMatrix renders binary counts as actual x predicted.
func (m *ClassificationMetrics) FormatConfusionMatrix() string {
	cm := m.ConfusionMatrix
	if len(cm) != 2 {
		return fmt.Sprintf("%v\n", cm)
	}

	var b strings.Builder
	b.WriteString("                 Predicted\n")
	b.WriteString("                Safe  Vulnerable\n")
	fmt.Fprintf(&b, "Actual Safe     %5d  %5d\n", cm[0][0], cm[0][1])
	fmt.Fprintf(&b, "       Vuln     %5d  %5d\n", cm[1][0], cm[1][1])
	return b.String()
}
