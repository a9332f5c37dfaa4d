// Package vector provides the semantic half of hybrid search: an embedder
// turns query text into a unit vector, and a flat per-city index scores it
// against every place's precomputed embedding.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// Embedder turns text into an embedding vector. Implementations must be
// safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Hit is one index match: the row position inside the index file and its
// cosine similarity score. Position i corresponds to storage id i+1; the
// packs are built with rows in id order starting at 1.
type Hit struct {
	Position int
	Score    float32
}

// Index is a flat vector index over one city pack: n rows of dim float32
// values, all unit-normalized at build time.
type Index struct {
	dim  int
	rows [][]float32
}

// indexMagic guards against loading a file that isn't an index.
const indexMagic = uint32(0x666f6f64) // "food"

// LoadIndex reads a city's index file: a little-endian header
// (magic, dim, rows) followed by rows*dim float32 values.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("index %s: truncated header", path)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != indexMagic {
		return nil, fmt.Errorf("index %s: bad magic", path)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	n := int(binary.LittleEndian.Uint32(data[8:12]))
	if dim <= 0 {
		return nil, fmt.Errorf("index %s: invalid dimension %d", path, dim)
	}
	want := 12 + n*dim*4
	if len(data) != want {
		return nil, fmt.Errorf("index %s: have %d bytes, want %d", path, len(data), want)
	}

	rows := make([][]float32, n)
	off := 12
	for i := range rows {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		rows[i] = row
	}
	return &Index{dim: dim, rows: rows}, nil
}

// NewIndex builds an in-memory index from raw embeddings, normalizing each
// row. Used by the pack builder and tests.
func NewIndex(embeddings [][]float32) (*Index, error) {
	if len(embeddings) == 0 {
		return &Index{}, nil
	}
	dim := len(embeddings[0])
	rows := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("row %d: dimension %d, want %d", i, len(e), dim)
		}
		rows[i] = normalize(e)
	}
	return &Index{dim: dim, rows: rows}, nil
}

// WriteTo serializes the index in the LoadIndex format.
func (idx *Index) WriteTo(path string) error {
	buf := make([]byte, 12, 12+len(idx.rows)*idx.dim*4)
	binary.LittleEndian.PutUint32(buf[0:4], indexMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(idx.dim))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(idx.rows)))
	for _, row := range idx.rows {
		for _, v := range row {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			buf = append(buf, b[:]...)
		}
	}
	return os.WriteFile(path, buf, 0o644)
}

// Len returns the number of indexed rows.
func (idx *Index) Len() int {
	return len(idx.rows)
}

// Search scores the query vector against every row and returns the top k
// hits, best first. k is clamped to the row count; an empty index returns
// no hits.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(idx.rows) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(query), idx.dim)
	}
	q := normalize(query)

	hits := make([]Hit, len(idx.rows))
	for i, row := range idx.rows {
		hits[i] = Hit{Position: i, Score: dot(q, row)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
