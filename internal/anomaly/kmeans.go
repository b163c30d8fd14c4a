package anomaly

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"sanctions-risk-engine/internal/types"
)

// KMeansResult is the best partition found across all restarts
type KMeansResult struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
}

// KMeans partitions points into k clusters. Each of nInit restarts seeds its
// centroids with k-means++ and runs Lloyd iterations until the total squared
// centroid shift falls to tol or maxIter is reached; the run with the lowest
// inertia wins. All randomness comes from seed.
func KMeans(points [][]float64, k, nInit, maxIter int, tol float64, seed int64) (*KMeansResult, error) {
	if len(points) < k {
		return nil, &types.InsufficientDataError{Operation: "k-means clustering", Required: k, Got: len(points)}
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(k)))

	var best *KMeansResult
	for run := 0; run < nInit; run++ {
		res := lloyd(points, seedCentroids(points, k, r), maxIter, tol)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

// seedCentroids picks k initial centroids with D² weighting
func seedCentroids(points [][]float64, k int, r *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[r.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		for i, p := range points {
			dist[i] = nearest(p, centroids).dist
		}
		total := floats.Sum(dist)
		if total == 0 {
			centroids = append(centroids, clone(points[r.IntN(len(points))]))
			continue
		}

		target := r.Float64() * total
		idx := len(points) - 1
		acc := 0.0
		for i, d := range dist {
			acc += d
			if acc > target {
				idx = i
				break
			}
		}
		centroids = append(centroids, clone(points[idx]))
	}
	return centroids
}

func lloyd(points, centroids [][]float64, maxIter int, tol float64) *KMeansResult {
	k := len(centroids)
	dims := len(points[0])
	labels := make([]int, len(points))

	iter := 0
	for iter < maxIter {
		iter++
		for i, p := range points {
			labels[i] = nearest(p, centroids).index
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		for c := range centroids {
			if counts[c] > 0 {
				continue
			}
			// empty cluster takes the point farthest from its own centroid
			far := farthest(points, labels, centroids)
			donor := labels[far]
			if counts[donor] < 2 {
				continue
			}
			floats.Sub(sums[donor], points[far])
			counts[donor]--
			labels[far] = c
			sums[c] = clone(points[far])
			counts[c] = 1
		}

		shift := 0.0
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			next := sums[c]
			floats.Scale(1/float64(counts[c]), next)
			shift += sqDist(next, centroids[c])
			centroids[c] = next
		}
		if shift <= tol {
			break
		}
	}

	for i, p := range points {
		labels[i] = nearest(p, centroids).index
	}
	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}
	return &KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia, Iterations: iter}
}

type match struct {
	index int
	dist  float64
}

func nearest(p []float64, centroids [][]float64) match {
	m := match{index: -1, dist: math.Inf(1)}
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < m.dist {
			m = match{index: c, dist: d}
		}
	}
	return m
}

func farthest(points [][]float64, labels []int, centroids [][]float64) int {
	idx, best := 0, -1.0
	for i, p := range points {
		if d := floats.Distance(p, centroids[labels[i]], 2); d > best {
			idx, best = i, d
		}
	}
	return idx
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
