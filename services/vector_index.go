package services

import (
	"fmt"
	"sort"
)

// flatIndex is an exact nearest-neighbor index over dense float32 vectors,
// searched by squared L2 distance. Rows are append-only and their positions
// line up one-to-one with the chunk store built alongside them.
type flatIndex struct {
	dim  int
	rows [][]float32
}

func newFlatIndex(dim int) (*flatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}
	return &flatIndex{dim: dim}, nil
}

// add appends a vector as the next row. The vector must match the index
// dimensionality.
func (ix *flatIndex) add(vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), ix.dim)
	}
	ix.rows = append(ix.rows, vec)
	return nil
}

func (ix *flatIndex) count() int {
	return len(ix.rows)
}

// search returns the positions of the k rows nearest to query, ordered by
// ascending distance. Fewer than k positions are returned when the index
// holds fewer rows. A dimensionality mismatch (e.g. the embedding model
// changed since the index was built) is an explicit error, never a silent
// nonsense result.
func (ix *flatIndex) search(query []float32, k int) ([]int, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid k %d", k)
	}

	type scored struct {
		pos  int
		dist float32
	}
	results := make([]scored, len(ix.rows))
	for i, row := range ix.rows {
		var d float32
		for j := range row {
			diff := row[j] - query[j]
			d += diff * diff
		}
		results[i] = scored{pos: i, dist: d}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].pos < results[j].pos
	})

	if len(results) > k {
		results = results[:k]
	}
	positions := make([]int, len(results))
	for i, r := range results {
		positions[i] = r.pos
	}
	return positions, nil
}
