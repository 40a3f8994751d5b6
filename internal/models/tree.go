package models

import (
	"vulnclassifier/internal/sparse"
)

// TreeNode is a node of a binary tree over sparse rows. A row goes left when
// its value is <= Threshold; a zero (absent) value follows DefaultLeft.
type TreeNode struct {
	IsLeaf      bool
	Value       float64
	Feature     int
	Threshold   float64
	DefaultLeft bool
	Left        *TreeNode
	Right       *TreeNode
	Samples     int
	Gain        float64
}

func (n *TreeNode) predict(row sparse.Vector) float64 {
	node := n
	for !node.IsLeaf {
		v := row.At(node.Feature)
		goLeft := node.DefaultLeft
		if v != 0 {
			goLeft = v <= node.Threshold
		}
		if goLeft {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func (n *TreeNode) leaves() int {
	if n.IsLeaf {
		return 1
	}
	return n.Left.leaves() + n.Right.leaves()
}

func (n *TreeNode) depth() int {
	if n.IsLeaf {
		return 0
	}
	l, r := n.Left.depth(), n.Right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// nodeStats aggregates first- and second-order statistics of the rows in a
// node. Classification trees store positives in G and weights in H.
type nodeStats struct {
	G float64
	H float64
	N int
}

func (s *nodeStats) add(o nodeStats) {
	s.G += o.G
	s.H += o.H
	s.N += o.N
}

func (s nodeStats) minus(o nodeStats) nodeStats {
	return nodeStats{G: s.G - o.G, H: s.H - o.H, N: s.N - o.N}
}

type splitCriterion interface {
	gain(left, right, parent nodeStats) float64
	leafValue(s nodeStats) float64
}

// giniCriterion is the weighted Gini impurity decrease. Leaves hold the
// fraction of positive samples.
type giniCriterion struct{}

func gini(s nodeStats) float64 {
	if s.H <= 0 {
		return 0
	}
	p := s.G / s.H
	return 1 - p*p - (1-p)*(1-p)
}

func (giniCriterion) gain(left, right, parent nodeStats) float64 {
	return parent.H*gini(parent) - left.H*gini(left) - right.H*gini(right)
}

func (giniCriterion) leafValue(s nodeStats) float64 {
	if s.H <= 0 {
		return 0
	}
	return s.G / s.H
}

// friedmanMSE scores splits on residual means. G holds residuals, H the
// hessians used for the Newton leaf step of log-loss boosting.
type friedmanMSE struct{}

func (friedmanMSE) gain(left, right, parent nodeStats) float64 {
	if left.N == 0 || right.N == 0 {
		return 0
	}
	nl, nr := float64(left.N), float64(right.N)
	diff := left.G/nl - right.G/nr
	return nl * nr / (nl + nr) * diff * diff
}

func (friedmanMSE) leafValue(s nodeStats) float64 {
	if s.H < 1e-150 {
		return 0
	}
	return s.G / s.H
}

// secondOrderGain is the regularised gain of Newton boosting with
// gradients in G and hessians in H.
type secondOrderGain struct {
	Lambda float64
	Gamma  float64
	Half   bool
}

func (c secondOrderGain) score(s nodeStats) float64 {
	denom := s.H + c.Lambda
	if denom <= 0 {
		return 0
	}
	return s.G * s.G / denom
}

func (c secondOrderGain) gain(left, right, parent nodeStats) float64 {
	g := c.score(left) + c.score(right) - c.score(parent)
	if c.Half {
		g *= 0.5
	}
	return g - c.Gamma
}

func (c secondOrderGain) leafValue(s nodeStats) float64 {
	if s.H+c.Lambda <= 0 {
		return 0
	}
	return -s.G / (s.H + c.Lambda)
}
