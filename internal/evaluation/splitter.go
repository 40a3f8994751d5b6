package evaluation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
)

var ErrTooFewMembers = eris.New("least populated class has fewer than 2 members")

type TrainTestSplitter struct {
	testSize   float64
	randomSeed int64
	shuffle    bool
}

func NewTrainTestSplitter(testSize float64, randomSeed int64, shuffle bool) *TrainTestSplitter {
	return &TrainTestSplitter{
		testSize:   testSize,
		randomSeed: randomSeed,
		shuffle:    shuffle,
	}
}

// StratifiedSplitIndices partitions row indices so each class keeps its share
// of the test set. The result depends only on the seed and the order of y.
func (tts *TrainTestSplitter) StratifiedSplitIndices(y []int) ([]int, []int, error) {
	n := len(y)
	if n == 0 {
		return nil, nil, eris.New("cannot split empty dataset")
	}
	if tts.testSize <= 0 || tts.testSize >= 1 {
		return nil, nil, eris.Errorf("test size must be between 0 and 1, got %v", tts.testSize)
	}

	classIndices := make(map[int][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}

	classes := make([]int, 0, len(classIndices))
	for class, indices := range classIndices {
		if len(indices) < 2 {
			return nil, nil, eris.Wrapf(ErrTooFewMembers, "class %d has %d member(s)", class, len(indices))
		}
		classes = append(classes, class)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(tts.testSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, eris.Errorf("test size %d and train size %d must each be at least the number of classes %d",
			nTest, nTrain, len(classes))
	}

	testCounts := allocate(classes, classIndices, nTest, n)

	rng := rand.New(rand.NewSource(tts.randomSeed))
	var trainIndices, testIndices []int

	for _, class := range classes {
		indices := append([]int(nil), classIndices[class]...)
		if tts.shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		testCount := testCounts[class]
		trainIndices = append(trainIndices, indices[testCount:]...)
		testIndices = append(testIndices, indices[:testCount]...)
	}

	if tts.shuffle {
		rng.Shuffle(len(trainIndices), func(i, j int) {
			trainIndices[i], trainIndices[j] = trainIndices[j], trainIndices[i]
		})
		rng.Shuffle(len(testIndices), func(i, j int) {
			testIndices[i], testIndices[j] = testIndices[j], testIndices[i]
		})
	} else {
		sort.Ints(trainIndices)
		sort.Ints(testIndices)
	}

	return trainIndices, testIndices, nil
}

// allocate distributes nTest over the classes proportionally: floors first,
// then the remainder to the largest fractional parts, lower label on ties.
func allocate(classes []int, classIndices map[int][]int, nTest, n int) map[int]int {
	type share struct {
		class    int
		fraction float64
	}

	counts := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	assigned := 0

	for _, class := range classes {
		exact := float64(nTest) * float64(len(classIndices[class])) / float64(n)
		floor := int(math.Floor(exact))
		// Keep at least one training row per class.
		if floor > len(classIndices[class])-1 {
			floor = len(classIndices[class]) - 1
		}
		counts[class] = floor
		assigned += floor
		shares = append(shares, share{class: class, fraction: exact - float64(floor)})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].fraction > shares[j].fraction
	})

	// Classes at their cap are skipped; stop once a full pass adds nothing.
	for assigned < nTest {
		progressed := false
		for _, s := range shares {
			if assigned == nTest {
				break
			}
			if counts[s.class] < len(classIndices[s.class])-1 {
				counts[s.class]++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	return counts
}

// StratifiedSplitTexts applies StratifiedSplitIndices to aligned texts and labels.
func (tts *TrainTestSplitter) StratifiedSplitTexts(texts []string, y []int) ([]string, []string, []int, []int, error) {
	if len(texts) != len(y) {
		return nil, nil, nil, nil, eris.Errorf("texts and labels must have the same length: %d vs %d", len(texts), len(y))
	}

	trainIdx, testIdx, err := tts.StratifiedSplitIndices(y)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	XTrain := make([]string, len(trainIdx))
	yTrain := make([]int, len(trainIdx))
	for i, idx := range trainIdx {
		XTrain[i] = texts[idx]
		yTrain[i] = y[idx]
	}

	XTest := make([]string, len(testIdx))
	yTest := make([]int, len(testIdx))
	for i, idx := range testIdx {
		XTest[i] = texts[idx]
		yTest[i] = y[idx]
	}

	return XTrain, XTest, yTrain, yTest, nil
}
