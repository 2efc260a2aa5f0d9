package anomaly

import (
	"math"
	"math/rand"
	"sort"
)

// =============================================================================
// ISOLATION FOREST
// =============================================================================
//
// Minimal isolation forest for the multivariate layer. Trees isolate points
// by random axis-aligned splits; anomalous points isolate in fewer splits.
// Scoring follows the standard formulation: s(x) = 2^(-E[h(x)]/c(n)), shifted
// so that decision < 0 marks an anomaly, with the zero point set at the
// contamination quantile of the training scores.

const (
	forestTrees         = 100
	forestContamination = 0.1
)

type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int // leaf only
}

type isoForest struct {
	trees      []*isoNode
	sampleSize int
	offset     float64
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	f := float64(n)
	return 2*(math.Log(f-1)+0.5772156649) - 2*(f-1)/f
}

func buildTree(rng *rand.Rand, data [][]float64, depth, maxDepth int) *isoNode {
	if depth >= maxDepth || len(data) <= 1 {
		return &isoNode{size: len(data)}
	}

	feat := rng.Intn(len(data[0]))
	lo, hi := data[0][feat], data[0][feat]
	for _, row := range data[1:] {
		if row[feat] < lo {
			lo = row[feat]
		}
		if row[feat] > hi {
			hi = row[feat]
		}
	}
	if lo == hi {
		return &isoNode{size: len(data)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range data {
		if row[feat] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &isoNode{
		feature: feat,
		split:   split,
		left:    buildTree(rng, left, depth+1, maxDepth),
		right:   buildTree(rng, right, depth+1, maxDepth),
	}
}

func pathLength(n *isoNode, x []float64, depth float64) float64 {
	if n.left == nil {
		return depth + avgPathLength(n.size)
	}
	if x[n.feature] < n.split {
		return pathLength(n.left, x, depth+1)
	}
	return pathLength(n.right, x, depth+1)
}

// fitForest trains on the full sample set and fixes the decision offset at
// the contamination quantile, matching how the training data itself scores.
func fitForest(rng *rand.Rand, data [][]float64) *isoForest {
	f := &isoForest{sampleSize: len(data)}
	maxDepth := int(math.Ceil(math.Log2(float64(len(data)))))
	for i := 0; i < forestTrees; i++ {
		f.trees = append(f.trees, buildTree(rng, data, 0, maxDepth))
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.rawScore(row)
	}
	sort.Float64s(scores)
	idx := int(forestContamination * float64(len(scores)))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.offset = scores[idx]
	return f
}

// rawScore is -s(x), in (-1, 0); lower means more anomalous.
func (f *isoForest) rawScore(x []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, x, 0)
	}
	mean := total / float64(len(f.trees))
	return -math.Pow(2, -mean/avgPathLength(f.sampleSize))
}

// Decision returns a signed score; negative values are anomalies, and more
// negative is more anomalous.
func (f *isoForest) Decision(x []float64) float64 {
	return f.rawScore(x) - f.offset
}
