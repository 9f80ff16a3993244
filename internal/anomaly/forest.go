package anomaly

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

const eulerGamma = 0.5772156649

// isolationForest is an immutable, trained ensemble of isolation trees.
// A new forest is built for every fit; nothing mutates it afterwards.
type isolationForest struct {
	trees       []*isolationTree
	numFeatures int
	sampleSize  int
	// normalizer is c(sampleSize), the expected path length of an
	// unsuccessful BST search over sampleSize points.
	normalizer float64
	// offset moves the decision boundary to zero so that the configured
	// contamination share of the training set scores below it.
	offset float64
}

// growForest builds numTrees trees over data. Per-tree seeds are drawn in
// order from a single source seeded with seed, so the result does not depend
// on goroutine scheduling.
func growForest(data [][]float64, numTrees, maxSamples int, seed int64) *isolationForest {
	n := len(data)
	size := maxSamples
	if size <= 0 || size > n {
		size = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(size))))

	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, numTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	f := &isolationForest{
		trees:       make([]*isolationTree, numTrees),
		numFeatures: len(data[0]),
		sampleSize:  size,
		normalizer:  averagePathLength(size),
	}

	var wg sync.WaitGroup
	for i := 0; i < numTrees; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seeds[idx]))
			f.trees[idx] = growTree(subsample(data, size, r), 0, maxDepth, r)
		}(i)
	}
	wg.Wait()

	return f
}

// calibrate sets the offset from the training scores so that a share of
// contamination of them falls below zero.
func (f *isolationForest) calibrate(data [][]float64, contamination float64) {
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = -f.rawScore(row)
	}
	sort.Float64s(scores)
	f.offset = percentile(scores, contamination*100)
}

// score returns the signed decision value for x. Negative values are
// outliers; lower is more anomalous.
func (f *isolationForest) score(x []float64) float64 {
	return -f.rawScore(x) - f.offset
}

// rawScore is s(x) = 2^(-E[h(x)]/c(psi)), in (0, 1]; near 1 means anomalous.
func (f *isolationForest) rawScore(x []float64) float64 {
	if f.normalizer == 0 {
		return 0.5
	}
	total := 0.0
	for _, t := range f.trees {
		total += t.pathLength(x, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/f.normalizer)
}

// subsample draws size rows without replacement using a partial
// Fisher-Yates shuffle.
func subsample(data [][]float64, size int, r *rand.Rand) [][]float64 {
	n := len(data)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + r.Intn(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	out := make([][]float64, size)
	for i := 0; i < size; i++ {
		out[i] = data[indices[i]]
	}
	return out
}

// isolationTree is a node of a random partition tree. Leaves carry the
// number of training points that reached them.
type isolationTree struct {
	feature int
	split   float64
	left    *isolationTree
	right   *isolationTree
	size    int
	leaf    bool
}

func growTree(data [][]float64, depth, maxDepth int, r *rand.Rand) *isolationTree {
	node := &isolationTree{size: len(data)}
	if len(data) <= 1 || depth >= maxDepth {
		node.leaf = true
		return node
	}

	// Only features that still vary within this node can split it.
	numFeatures := len(data[0])
	candidates := make([]int, 0, numFeatures)
	mins := make([]float64, numFeatures)
	maxs := make([]float64, numFeatures)
	for j := 0; j < numFeatures; j++ {
		lo, hi := data[0][j], data[0][j]
		for _, row := range data[1:] {
			if row[j] < lo {
				lo = row[j]
			}
			if row[j] > hi {
				hi = row[j]
			}
		}
		mins[j], maxs[j] = lo, hi
		if lo < hi {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		node.leaf = true
		return node
	}

	node.feature = candidates[r.Intn(len(candidates))]
	lo, hi := mins[node.feature], maxs[node.feature]
	node.split = lo + r.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[node.feature] < node.split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		node.leaf = true
		return node
	}

	node.left = growTree(left, depth+1, maxDepth, r)
	node.right = growTree(right, depth+1, maxDepth, r)
	return node
}

func (t *isolationTree) pathLength(x []float64, depth int) float64 {
	if t.leaf {
		return float64(depth) + averagePathLength(t.size)
	}
	if x[t.feature] < t.split {
		return t.left.pathLength(x, depth+1)
	}
	return t.right.pathLength(x, depth+1)
}

// averagePathLength is c(n), the average path length of an unsuccessful
// search in a binary search tree built from n points.
func averagePathLength(n int) float64 {
	switch {
	case n > 2:
		fn := float64(n)
		return 2.0*(math.Log(fn-1.0)+eulerGamma) - 2.0*(fn-1.0)/fn
	case n == 2:
		return 1.0
	default:
		return 0.0
	}
}

// percentile interpolates linearly between the closest ranks of an
// ascending slice. p is in [0, 100].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
