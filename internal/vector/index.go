package vector

import (
	"context"
	"fmt"
	"strings"
)

// Point is one embedded record. Payload holds the metadata used for
// equality filtering and for rebuilding the record on read.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Filter is a conjunction of payload equality conditions.
type Filter map[string]any

// Index is a vector index with cosine similarity and payload filters.
// Search returns hits ordered by descending score.
type Index interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vec []float32, filter Filter, limit int) ([]Hit, error)
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// sameValue compares payload values, treating all numeric kinds alike
// since JSON round trips turn ints into float64.
func sameValue(a, b any) bool {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
