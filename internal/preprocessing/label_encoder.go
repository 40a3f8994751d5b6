package preprocessing

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	LabelSafe       = 0
	LabelVulnerable = 1
)

// LabelEncoder maps label text to the binary class ids and back.
type LabelEncoder struct {
	ClassToInt map[string]int
	IntToClass map[int]string
}

// NewBinaryLabelEncoder knows the two classes Safe (0) and Vulnerable (1).
func NewBinaryLabelEncoder() *LabelEncoder {
	return &LabelEncoder{
		ClassToInt: map[string]int{
			"safe":       LabelSafe,
			"vulnerable": LabelVulnerable,
			"false":      LabelSafe,
			"true":       LabelVulnerable,
		},
		IntToClass: map[int]string{
			LabelSafe:       "Safe",
			LabelVulnerable: "Vulnerable",
		},
	}
}

// Encode accepts class names case-insensitively, booleans, and numeric 0/1.
func (le *LabelEncoder) Encode(label string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if val, ok := le.ClassToInt[key]; ok {
		return val, nil
	}

	f, err := strconv.ParseFloat(key, 64)
	if err == nil {
		if _, ok := le.IntToClass[int(f)]; ok && f == float64(int(f)) {
			return int(f), nil
		}
	}

	return 0, eris.Errorf("unknown label: %q", label)
}

func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	result := make([]int, len(labels))
	for i, label := range labels {
		val, err := le.Encode(label)
		if err != nil {
			return nil, err
		}
		result[i] = val
	}
	return result, nil
}

func (le *LabelEncoder) InverseTransform(encoded []int) ([]string, error) {
	result := make([]string, len(encoded))
	for i, val := range encoded {
		label, ok := le.IntToClass[val]
		if !ok {
			return nil, eris.Errorf("unknown encoding: %d", val)
		}
		result[i] = label
	}
	return result, nil
}

// ClassNames returns the display names ordered by class id.
func (le *LabelEncoder) ClassNames() []string {
	return []string{le.IntToClass[LabelSafe], le.IntToClass[LabelVulnerable]}
}
