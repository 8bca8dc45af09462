package structure

import (
	"container/heap"
	"context"
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Clusterer partitions a coefficient × frame matrix into k temporally contiguous
// segments and returns their start frames: the first is 0 and they strictly increase.
type Clusterer interface {
	Boundaries(ctx context.Context, mfcc *mat.Dense, k, width int) ([]int, error)
}

var errNoFrames = errors.New("clusterer: empty feature matrix")

// Agglomerative is the in-process Clusterer. Each frame is first replaced by the
// cosine-affinity weighted mean of its context window, then adjacent segments are
// merged bottom-up with Ward's criterion until k remain.
type Agglomerative struct{}

func (Agglomerative) Boundaries(_ context.Context, mfcc *mat.Dense, k, width int) ([]int, error) {
	if mfcc == nil {
		return nil, errNoFrames
	}
	_, n := mfcc.Dims()
	if n == 0 {
		return nil, errNoFrames
	}
	frames := make([][]float64, n)
	for j := range frames {
		frames[j] = mat.Col(nil, j, mfcc)
	}
	return wardSegments(smoothByAffinity(frames, width), k), nil
}

// smoothByAffinity averages every frame with the neighbours inside a window of
// the given width, weighting each by its (non-negative) cosine similarity.
func smoothByAffinity(frames [][]float64, width int) [][]float64 {
	half := width / 2
	if half < 1 {
		return frames
	}
	norms := make([]float64, len(frames))
	for i, f := range frames {
		norms[i] = floats.Norm(f, 2)
	}

	out := make([][]float64, len(frames))
	for i, f := range frames {
		acc := make([]float64, len(f))
		copy(acc, f)
		wsum := 1.0
		lo, hi := max(0, i-half), min(len(frames)-1, i+half)
		for j := lo; j <= hi; j++ {
			if j == i || norms[i] == 0 || norms[j] == 0 {
				continue
			}
			w := floats.Dot(f, frames[j]) / (norms[i] * norms[j])
			if w <= 0 {
				continue
			}
			floats.AddScaled(acc, w, frames[j])
			wsum += w
		}
		floats.Scale(1/wsum, acc)
		out[i] = acc
	}
	return out
}

type mergeCandidate struct {
	cost        float64
	left, right int
	vl, vr      int
}

type mergeHeap []mergeCandidate

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].left < h[j].left
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(mergeCandidate)) }
func (h *mergeHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// wardSegments merges adjacent segments with the smallest Ward cost until k remain.
func wardSegments(frames [][]float64, k int) []int {
	n := len(frames)
	if k < 1 {
		k = 1
	}
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	size := make([]float64, n)
	sum := make([][]float64, n)
	prev := make([]int, n)
	next := make([]int, n)
	version := make([]int, n)
	alive := make([]bool, n)
	for i := range frames {
		size[i] = 1
		sum[i] = append([]float64(nil), frames[i]...)
		prev[i], next[i] = i-1, i+1
		alive[i] = true
	}
	next[n-1] = -1

	cost := func(a, b int) float64 {
		d := 0.0
		for c := range sum[a] {
			diff := sum[a][c]/size[a] - sum[b][c]/size[b]
			d += diff * diff
		}
		return size[a] * size[b] / (size[a] + size[b]) * d
	}

	h := &mergeHeap{}
	push := func(a, b int) {
		heap.Push(h, mergeCandidate{cost: cost(a, b), left: a, right: b, vl: version[a], vr: version[b]})
	}
	for i := 0; i < n-1; i++ {
		push(i, i+1)
	}

	clusters := n
	for clusters > k && h.Len() > 0 {
		c := heap.Pop(h).(mergeCandidate)
		a, b := c.left, c.right
		if !alive[a] || !alive[b] || next[a] != b || version[a] != c.vl || version[b] != c.vr {
			continue
		}
		size[a] += size[b]
		floats.Add(sum[a], sum[b])
		next[a] = next[b]
		if next[a] >= 0 {
			prev[next[a]] = a
		}
		alive[b] = false
		version[a]++
		clusters--

		if prev[a] >= 0 {
			push(prev[a], a)
		}
		if next[a] >= 0 {
			push(a, next[a])
		}
	}

	starts := make([]int, 0, k)
	for i := 0; i >= 0; i = next[i] {
		starts = append(starts, i)
	}
	return starts
}
