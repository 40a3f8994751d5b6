package models

import (
	"math"
	"math/rand"
	"sort"

	"vulnclassifier/internal/sparse"
)

// binnedRow lists the non-zero bins of one training row, features ascending.
type binnedRow struct {
	features []int32
	bins     []uint8
}

func (r binnedRow) bin(feature int) uint8 {
	k := sort.Search(len(r.features), func(i int) bool { return int(r.features[i]) >= feature })
	if k < len(r.features) && int(r.features[k]) == feature {
		return r.bins[k]
	}
	return 0
}

// binnedData quantises a training matrix per feature. Bin 0 is reserved for
// zero; bins 1..len(bounds[f]) hold non-zero values <= bounds[f][b-1].
type binnedData struct {
	rows    []binnedRow
	bounds  [][]float64
	offsets []int
	total   int
	usable  []int
}

func newBinnedData(X *sparse.Matrix, maxBins int) *binnedData {
	if maxBins > 256 || maxBins < 2 {
		maxBins = 256
	}

	values := make([][]float64, X.NumCols)
	for _, row := range X.Rows {
		for k, j := range row.Indices {
			if row.Values[k] != 0 {
				values[j] = append(values[j], row.Values[k])
			}
		}
	}

	bd := &binnedData{
		rows:    make([]binnedRow, X.NumRows()),
		bounds:  make([][]float64, X.NumCols),
		offsets: make([]int, X.NumCols),
	}
	for j, vals := range values {
		bd.bounds[j] = binBounds(vals, maxBins-1)
		bd.offsets[j] = bd.total
		bd.total += len(bd.bounds[j]) + 1
		if len(bd.bounds[j]) > 0 {
			bd.usable = append(bd.usable, j)
		}
	}

	for i, row := range X.Rows {
		br := binnedRow{
			features: make([]int32, 0, row.Len()),
			bins:     make([]uint8, 0, row.Len()),
		}
		for k, j := range row.Indices {
			v := row.Values[k]
			if v == 0 {
				continue
			}
			b := sort.SearchFloat64s(bd.bounds[j], v) + 1
			br.features = append(br.features, int32(j))
			br.bins = append(br.bins, uint8(b))
		}
		bd.rows[i] = br
	}

	return bd
}

func (bd *binnedData) numBins(feature int) int {
	return len(bd.bounds[feature]) + 1
}

// threshold converts "bins 1..t go left" into a raw value threshold.
func (bd *binnedData) threshold(feature, t int) float64 {
	if t == 0 {
		return 0
	}
	return bd.bounds[feature][t-1]
}

// binBounds returns ascending inclusive upper bounds for at most maxBins
// non-zero bins; the last bound is +Inf.
func binBounds(vals []float64, maxBins int) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)

	distinct := make([]float64, 0, len(vals))
	for i, v := range vals {
		if i == 0 || v != vals[i-1] {
			distinct = append(distinct, v)
		}
	}

	if len(distinct) <= maxBins {
		bounds := make([]float64, len(distinct))
		for i := 0; i < len(distinct)-1; i++ {
			bounds[i] = (distinct[i] + distinct[i+1]) / 2
		}
		bounds[len(distinct)-1] = math.Inf(1)
		return bounds
	}

	bounds := make([]float64, 0, maxBins)
	for k := 1; k < maxBins; k++ {
		q := vals[k*len(vals)/maxBins]
		if len(bounds) > 0 && q <= bounds[len(bounds)-1] {
			continue
		}
		bounds = append(bounds, q)
	}
	return append(bounds, math.Inf(1))
}

type growerConfig struct {
	criterion       splitCriterion
	maxDepth        int
	maxLeaves       int
	minSamplesSplit int
	minSamplesLeaf  int
	minChildWeight  float64
	minGain         float64
	nodeFeatures    int
	missingAware    bool
}

type splitInfo struct {
	ok          bool
	feature     int
	bin         int
	defaultLeft bool
	gain        float64
}

type leafCandidate struct {
	node  *TreeNode
	rows  []int
	depth int
	stats nodeStats
	split splitInfo
}

// treeGrower fits one tree on binned data from per-row gradient and hessian
// values. It grows best-first, which with maxLeaves <= 0 yields the same
// tree as depth-first growth.
type treeGrower struct {
	cfg      growerConfig
	data     *binnedData
	grad     []float64
	hess     []float64
	rng      *rand.Rand
	features []int

	hist   []nodeStats
	active []bool
	pool   []int
}

func newTreeGrower(cfg growerConfig, data *binnedData, grad, hess []float64, features []int, rng *rand.Rand) *treeGrower {
	g := &treeGrower{
		cfg:    cfg,
		data:   data,
		grad:   grad,
		hess:   hess,
		rng:    rng,
		hist:   make([]nodeStats, data.total),
		active: make([]bool, len(data.bounds)),
	}
	g.useFeatures(features)
	return g
}

// useFeatures restricts split search to features; nil means every usable one.
func (g *treeGrower) useFeatures(features []int) {
	if features == nil {
		features = g.data.usable
	}
	g.features = features
	if cap(g.pool) < len(features) {
		g.pool = make([]int, len(features))
	}
	g.pool = g.pool[:len(features)]
}

func (g *treeGrower) grow(rows []int) *TreeNode {
	root := &TreeNode{}
	leaves := []*leafCandidate{g.evaluate(root, rows, 0)}

	for g.cfg.maxLeaves <= 0 || len(leaves) < g.cfg.maxLeaves {
		best := -1
		for i, c := range leaves {
			if c.split.ok && (best < 0 || c.split.gain > leaves[best].split.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		c := leaves[best]
		left, right := g.partition(c.rows, c.split)

		node := c.node
		node.Feature = c.split.feature
		node.Threshold = g.data.threshold(c.split.feature, c.split.bin)
		node.DefaultLeft = c.split.defaultLeft
		node.Gain = c.split.gain
		node.Left = &TreeNode{}
		node.Right = &TreeNode{}

		leaves[best] = g.evaluate(node.Left, left, c.depth+1)
		leaves = append(leaves, g.evaluate(node.Right, right, c.depth+1))
	}

	for _, c := range leaves {
		c.node.IsLeaf = true
		c.node.Value = g.cfg.criterion.leafValue(c.stats)
	}

	return root
}

func (g *treeGrower) evaluate(node *TreeNode, rows []int, depth int) *leafCandidate {
	stats := nodeStats{N: len(rows)}
	for _, r := range rows {
		stats.G += g.grad[r]
		stats.H += g.hess[r]
	}
	node.Samples = len(rows)

	c := &leafCandidate{node: node, rows: rows, depth: depth, stats: stats}
	if g.splittable(stats, depth) {
		c.split = g.bestSplit(rows, stats)
	}
	return c
}

func (g *treeGrower) splittable(s nodeStats, depth int) bool {
	if g.cfg.maxDepth > 0 && depth >= g.cfg.maxDepth {
		return false
	}
	if s.N < g.cfg.minSamplesSplit || s.N < 2*g.cfg.minSamplesLeaf || s.N < 2 {
		return false
	}
	return s.H >= 2*g.cfg.minChildWeight
}

func (g *treeGrower) valid(left, right nodeStats) bool {
	if left.N == 0 || right.N == 0 {
		return false
	}
	if left.N < g.cfg.minSamplesLeaf || right.N < g.cfg.minSamplesLeaf {
		return false
	}
	return left.H >= g.cfg.minChildWeight && right.H >= g.cfg.minChildWeight
}

func (g *treeGrower) candidateFeatures() []int {
	k := g.cfg.nodeFeatures
	if k <= 0 || k >= len(g.features) {
		return g.features
	}

	copy(g.pool, g.features)
	for i := 0; i < k; i++ {
		j := i + g.rng.Intn(len(g.pool)-i)
		g.pool[i], g.pool[j] = g.pool[j], g.pool[i]
	}
	return g.pool[:k]
}

func (g *treeGrower) bestSplit(rows []int, total nodeStats) splitInfo {
	feats := g.candidateFeatures()
	for _, f := range feats {
		g.active[f] = true
		off := g.data.offsets[f]
		clear(g.hist[off : off+g.data.numBins(f)])
	}

	for _, r := range rows {
		row := g.data.rows[r]
		gr, hr := g.grad[r], g.hess[r]
		for k, f := range row.features {
			if !g.active[f] {
				continue
			}
			s := &g.hist[g.data.offsets[f]+int(row.bins[k])]
			s.G += gr
			s.H += hr
			s.N++
		}
	}

	directions := []bool{true}
	if g.cfg.missingAware {
		directions = []bool{true, false}
	}

	best := splitInfo{gain: g.cfg.minGain}
	for _, f := range feats {
		g.active[f] = false
		off := g.data.offsets[f]
		bins := g.hist[off : off+g.data.numBins(f)]

		var nonZero nodeStats
		for b := 1; b < len(bins); b++ {
			nonZero.add(bins[b])
		}
		if nonZero.N == 0 {
			continue
		}
		zero := total.minus(nonZero)

		var leftNZ nodeStats
		for t := 0; t < len(bins); t++ {
			if t > 0 {
				if bins[t].N == 0 {
					continue
				}
				leftNZ.add(bins[t])
			}
			for _, defaultLeft := range directions {
				left := leftNZ
				if defaultLeft {
					left.add(zero)
				}
				right := total.minus(left)
				if !g.valid(left, right) {
					continue
				}
				gain := g.cfg.criterion.gain(left, right, total)
				if gain > best.gain {
					best = splitInfo{ok: true, feature: f, bin: t, defaultLeft: defaultLeft, gain: gain}
				}
			}
		}
	}

	return best
}

func (g *treeGrower) partition(rows []int, split splitInfo) ([]int, []int) {
	var left, right []int
	for _, r := range rows {
		b := int(g.data.rows[r].bin(split.feature))
		goLeft := split.defaultLeft
		if b != 0 {
			goLeft = b <= split.bin
		}
		if goLeft {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// sampleRows draws n row indices. Without replacement the result is sorted.
func sampleRows(n int, fraction float64, replace bool, rng *rand.Rand) []int {
	if replace {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		return rows
	}

	k := int(math.Round(fraction * float64(n)))
	if fraction >= 1 || k >= n {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	if k < 1 {
		k = 1
	}
	rows := rng.Perm(n)[:k]
	sort.Ints(rows)
	return rows
}

// sampleColumns keeps a random fraction of the usable features, sorted.
func sampleColumns(usable []int, fraction float64, rng *rand.Rand) []int {
	if fraction >= 1 || len(usable) == 0 {
		return usable
	}
	k := int(math.Round(fraction * float64(len(usable))))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(len(usable))[:k]
	cols := make([]int, k)
	for i, p := range perm {
		cols[i] = usable[p]
	}
	sort.Ints(cols)
	return cols
}
