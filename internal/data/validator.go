package data

import (
	"github.com/rotisserie/eris"

	"vulnclassifier/internal/preprocessing"
	"vulnclassifier/internal/sparse"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

func (dv *DataValidator) ValidateDataset(ds *Dataset) error {
	if ds == nil || ds.Len() == 0 {
		return ErrEmptyDataset
	}

	if len(ds.Texts) != len(ds.Labels) {
		return eris.Errorf("texts and labels have different lengths: %d vs %d", len(ds.Texts), len(ds.Labels))
	}

	if ds.HasGroups && len(ds.Groups) != len(ds.Texts) {
		return eris.Errorf("groups and texts have different lengths: %d vs %d", len(ds.Groups), len(ds.Texts))
	}

	return dv.ValidateLabels(ds.Labels)
}

func (dv *DataValidator) ValidateLabels(y []int) error {
	if len(y) == 0 {
		return eris.New("labels are empty")
	}

	classCount := make(map[int]int)
	for _, label := range y {
		if label != preprocessing.LabelSafe && label != preprocessing.LabelVulnerable {
			return eris.Wrapf(ErrInvalidLabel, "label %d", label)
		}
		classCount[label]++
	}

	if len(classCount) < 2 {
		return eris.Errorf("dataset must have both classes, found %d", len(classCount))
	}

	return nil
}

func (dv *DataValidator) ValidateTrainTestSplit(XTrain, XTest *sparse.Matrix, yTrain, yTest []int) error {
	if XTrain.NumRows() != len(yTrain) {
		return eris.Errorf("training set has %d rows and %d labels", XTrain.NumRows(), len(yTrain))
	}

	if XTest.NumRows() != len(yTest) {
		return eris.Errorf("test set has %d rows and %d labels", XTest.NumRows(), len(yTest))
	}

	if XTrain.NumCols != XTest.NumCols {
		return eris.Errorf("train and test sets have different feature counts: %d vs %d", XTrain.NumCols, XTest.NumCols)
	}

	return nil
}

// GroupStats is the label breakdown for one source tag.
type GroupStats struct {
	Name       string
	Count      int
	Vulnerable int
	Safe       int
}

type DatasetStats struct {
	Total      int
	Vulnerable int
	Safe       int
	Groups     []GroupStats
}

// Stats counts labels overall and per group, groups in first-seen order.
func (d *Dataset) Stats() DatasetStats {
	stats := DatasetStats{Total: d.Len()}
	groupIdx := make(map[string]int)

	for i, label := range d.Labels {
		vuln := label == preprocessing.LabelVulnerable
		if vuln {
			stats.Vulnerable++
		} else {
			stats.Safe++
		}

		if !d.HasGroups {
			continue
		}

		name := d.Groups[i]
		idx, ok := groupIdx[name]
		if !ok {
			idx = len(stats.Groups)
			groupIdx[name] = idx
			stats.Groups = append(stats.Groups, GroupStats{Name: name})
		}
		stats.Groups[idx].Count++
		if vuln {
			stats.Groups[idx].Vulnerable++
		} else {
			stats.Groups[idx].Safe++
		}
	}

	return stats
}
