// Package confidence computes aggregate statistics over the nested
// confidence-tagged structures produced by document extraction. A leaf is any
// map carrying a "confidence" key; everything else is traversed.
package confidence

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// confidenceKey marks a map node as a scored leaf.
const confidenceKey = "confidence"

// Values returns every confidence score found at any depth that is present,
// non-null, and strictly greater than zero. Order is not significant.
func Values(data any) []float64 {
	var out []float64
	walk(data, "", func(_ string, score *float64, _ map[string]any) {
		if score != nil && *score > 0 {
			out = append(out, *score)
		}
	})
	return out
}

// FieldsAtOrBelow returns the paths of all leaves whose confidence is at or
// below threshold. A missing or null confidence counts as zero, so a
// threshold of 0 returns exactly the zero-confidence fields.
func FieldsAtOrBelow(data any, threshold float64) []string {
	var out []string
	walk(data, "", func(path string, score *float64, _ map[string]any) {
		v := 0.0
		if score != nil {
			v = *score
		}
		if v <= threshold {
			out = append(out, path)
		}
	})
	sort.Strings(out)
	return out
}

// walk visits every scored leaf in a nested structure of maps and slices,
// calling fn with the leaf's dot/bracket path and its score (nil when the
// confidence value is null or non-numeric).
func walk(data any, path string, fn func(path string, score *float64, leaf map[string]any)) {
	switch node := data.(type) {
	case map[string]any:
		if _, ok := node[confidenceKey]; ok {
			score := numeric(node[confidenceKey])
			fn(path, score, node)
			return
		}
		for k, v := range node {
			walk(v, joinPath(path, k), fn)
		}
	case []any:
		for i, v := range node {
			walk(v, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// numeric converts a JSON-decoded scalar to a float, or nil when the value
// is null or not a number.
func numeric(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

// MergeResult holds the structurally merged confidence tree and its summary
// statistics.
type MergeResult struct {
	Fields                   map[string]any `json:"fields"`
	OverallConfidence        float64        `json:"overall_confidence"`
	EvaluatedFieldCount      int            `json:"total_evaluated_fields_count"`
	ZeroConfidenceFieldCount int            `json:"zero_confidence_fields_count"`
	ZeroConfidenceFields     []string       `json:"zero_confidence_fields"`
	MinConfidence            float64        `json:"min_extracted_field_confidence"`
	MinConfidenceFields      []string       `json:"min_extracted_field_confidence_fields"`

	scores []float64
}

// Merge zips two confidence trees describing the same document into one.
// Each leaf takes the pointwise minimum of the two scores; a null on one
// side defers to the other, and a null on both sides marks the leaf as a
// zero-confidence field. All merged scores are rounded to three decimals.
// The two trees must share the same shape; mismatched keys or slice lengths
// are a caller contract violation and fail fast.
func Merge(a, b map[string]any) (*MergeResult, error) {
	res := &MergeResult{
		ZeroConfidenceFields: []string{},
		MinConfidenceFields:  []string{},
	}

	merged, err := mergeNode(a, b, "", res)
	if err != nil {
		return nil, err
	}
	res.Fields = merged.(map[string]any)

	if res.EvaluatedFieldCount > 0 {
		sum := 0.0
		for _, s := range res.scores {
			sum += s
		}
		res.OverallConfidence = round3(sum / float64(res.EvaluatedFieldCount))
	}
	sort.Strings(res.ZeroConfidenceFields)
	sort.Strings(res.MinConfidenceFields)
	return res, nil
}

func mergeNode(a, b any, path string, res *MergeResult) (any, error) {
	switch nodeA := a.(type) {
	case map[string]any:
		nodeB, ok := b.(map[string]any)
		if !ok {
			return nil, eris.Errorf("confidence: shape mismatch at %q: map vs %T", path, b)
		}

		_, leafA := nodeA[confidenceKey]
		_, leafB := nodeB[confidenceKey]
		if leafA || leafB {
			if !leafA || !leafB {
				return nil, eris.Errorf("confidence: shape mismatch at %q: scored leaf on one side only", path)
			}
			return mergeLeaf(nodeA, nodeB, path, res), nil
		}

		if len(nodeA) != len(nodeB) {
			return nil, eris.Errorf("confidence: shape mismatch at %q: %d keys vs %d", path, len(nodeA), len(nodeB))
		}
		out := make(map[string]any, len(nodeA))
		for k, va := range nodeA {
			vb, ok := nodeB[k]
			if !ok {
				return nil, eris.Errorf("confidence: shape mismatch at %q: key %q missing from second tree", path, k)
			}
			m, err := mergeNode(va, vb, joinPath(path, k), res)
			if err != nil {
				return nil, err
			}
			out[k] = m
		}
		return out, nil

	case []any:
		nodeB, ok := b.([]any)
		if !ok {
			return nil, eris.Errorf("confidence: shape mismatch at %q: slice vs %T", path, b)
		}
		if len(nodeA) != len(nodeB) {
			return nil, eris.Errorf("confidence: shape mismatch at %q: %d elements vs %d", path, len(nodeA), len(nodeB))
		}
		out := make([]any, len(nodeA))
		for i := range nodeA {
			m, err := mergeNode(nodeA[i], nodeB[i], fmt.Sprintf("%s[%d]", path, i), res)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil

	default:
		// Scalars outside scored leaves pass through from the first tree.
		return a, nil
	}
}

// mergeLeaf merges one scored leaf, preserving the non-confidence keys from
// the first tree (the sources are expected to agree on them).
func mergeLeaf(a, b map[string]any, path string, res *MergeResult) map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v
	}

	scoreA := numeric(a[confidenceKey])
	scoreB := numeric(b[confidenceKey])

	var merged *float64
	switch {
	case scoreA != nil && scoreB != nil:
		m := round3(math.Min(*scoreA, *scoreB))
		merged = &m
	case scoreA != nil:
		m := round3(*scoreA)
		merged = &m
	case scoreB != nil:
		m := round3(*scoreB)
		merged = &m
	}

	if merged == nil {
		res.ZeroConfidenceFieldCount++
		res.ZeroConfidenceFields = append(res.ZeroConfidenceFields, path)
		return out
	}

	out[confidenceKey] = *merged
	if *merged == 0 {
		res.ZeroConfidenceFieldCount++
		res.ZeroConfidenceFields = append(res.ZeroConfidenceFields, path)
		return out
	}

	res.EvaluatedFieldCount++
	res.scores = append(res.scores, *merged)
	if len(res.MinConfidenceFields) == 0 || *merged < res.MinConfidence {
		res.MinConfidence = *merged
		res.MinConfidenceFields = []string{path}
	} else if *merged == res.MinConfidence {
		res.MinConfidenceFields = append(res.MinConfidenceFields, path)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
