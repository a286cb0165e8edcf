package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(score any, value any) map[string]any {
	return map[string]any{"confidence": score, "value": value}
}

func TestValues(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(0.85, "test2"),
		}
		got := Values(data)
		assert.Len(t, got, 2)
		assert.ElementsMatch(t, []float64{0.95, 0.85}, got)
	})

	t.Run("nested", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"nested": map[string]any{
				"field2": leaf(0.85, "test2"),
				"deep": map[string]any{
					"field3": leaf(0.75, "test3"),
				},
			},
		}
		assert.ElementsMatch(t, []float64{0.95, 0.85, 0.75}, Values(data))
	})

	t.Run("list", func(t *testing.T) {
		data := map[string]any{
			"items": []any{leaf(0.95, "item1"), leaf(0.85, "item2")},
		}
		assert.ElementsMatch(t, []float64{0.95, 0.85}, Values(data))
	})

	t.Run("ignores zero", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(float64(0), "test2"),
		}
		assert.Equal(t, []float64{0.95}, Values(data))
	})

	t.Run("ignores null", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(nil, "test2"),
		}
		assert.Equal(t, []float64{0.95}, Values(data))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Values(map[string]any{}))
		assert.Empty(t, Values([]any{}))
	})

	t.Run("no scored leaves", func(t *testing.T) {
		data := map[string]any{
			"field1": map[string]any{"value": "test"},
			"field2": map[string]any{"value": "test2"},
		}
		assert.Empty(t, Values(data))
	})

	t.Run("mixed value types", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "string"),
			"field2": leaf(0.85, 123),
			"field3": leaf(0.75, true),
			"field4": leaf(0.65, nil),
		}
		assert.Len(t, Values(data), 4)
	})

	t.Run("deeply nested", func(t *testing.T) {
		data := map[string]any{
			"level1": map[string]any{
				"level2": map[string]any{
					"level3": map[string]any{
						"level4": map[string]any{
							"level5": leaf(0.95, "deep"),
						},
					},
				},
			},
		}
		assert.Equal(t, []float64{0.95}, Values(data))
	})
}

func TestFieldsAtOrBelow(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(0.85, "test2"),
		}
		got := FieldsAtOrBelow(data, 0.85)
		assert.Contains(t, got, "field2")
		assert.NotContains(t, got, "field1")
	})

	t.Run("nested path", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"nested": map[string]any{
				"field2": leaf(0.85, "test2"),
			},
		}
		assert.Equal(t, []string{"nested.field2"}, FieldsAtOrBelow(data, 0.85))
	})

	t.Run("zero threshold finds zero fields", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(float64(0), "test2"),
			"field3": leaf(float64(0), "test3"),
		}
		assert.Equal(t, []string{"field2", "field3"}, FieldsAtOrBelow(data, 0))
	})

	t.Run("null counts as zero", func(t *testing.T) {
		data := map[string]any{
			"field1": leaf(nil, "test"),
		}
		assert.Equal(t, []string{"field1"}, FieldsAtOrBelow(data, 0))
	})

	t.Run("list path", func(t *testing.T) {
		data := map[string]any{
			"items": []any{leaf(0.95, "item1"), leaf(0.85, "item2")},
		}
		assert.Equal(t, []string{"items[1]"}, FieldsAtOrBelow(data, 0.85))
	})
}

func TestMerge(t *testing.T) {
	t.Run("takes pointwise minimum", func(t *testing.T) {
		a := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(0.85, "test2"),
		}
		b := map[string]any{
			"field1": leaf(0.90, "test"),
			"field2": leaf(0.80, "test2"),
		}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.90, res.Fields["field1"].(map[string]any)["confidence"])
		assert.Equal(t, 0.80, res.Fields["field2"].(map[string]any)["confidence"])
		assert.Equal(t, 2, res.EvaluatedFieldCount)
	})

	t.Run("overall is the mean of merged scores", func(t *testing.T) {
		a := map[string]any{
			"field1": leaf(0.90, "test"),
			"field2": leaf(0.80, "test2"),
		}
		b := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(0.85, "test2"),
		}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.85, res.OverallConfidence)
		assert.Equal(t, 0.80, res.MinConfidence)
		assert.Equal(t, []string{"field2"}, res.MinConfidenceFields)
	})

	t.Run("zero scores are tracked, not averaged", func(t *testing.T) {
		a := map[string]any{
			"field1": leaf(0.95, "test"),
			"field2": leaf(float64(0), "test2"),
		}
		b := map[string]any{
			"field1": leaf(0.90, "test"),
			"field2": leaf(float64(0), "test2"),
		}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 1, res.ZeroConfidenceFieldCount)
		assert.Equal(t, []string{"field2"}, res.ZeroConfidenceFields)
		assert.Equal(t, 1, res.EvaluatedFieldCount)
		assert.Equal(t, 0.90, res.OverallConfidence)
	})

	t.Run("nested structure", func(t *testing.T) {
		a := map[string]any{
			"address": map[string]any{
				"street": leaf(0.95, "123 Main St"),
				"city":   leaf(0.90, "Springfield"),
			},
		}
		b := map[string]any{
			"address": map[string]any{
				"street": leaf(0.92, "123 Main St"),
				"city":   leaf(0.85, "Springfield"),
			},
		}
		res, err := Merge(a, b)
		require.NoError(t, err)

		addr := res.Fields["address"].(map[string]any)
		assert.Equal(t, 0.92, addr["street"].(map[string]any)["confidence"])
		assert.Equal(t, 0.85, addr["city"].(map[string]any)["confidence"])
	})

	t.Run("list structure", func(t *testing.T) {
		a := map[string]any{
			"items": []any{leaf(0.95, "item1"), leaf(0.85, "item2")},
		}
		b := map[string]any{
			"items": []any{leaf(0.90, "item1"), leaf(0.80, "item2")},
		}
		res, err := Merge(a, b)
		require.NoError(t, err)

		items := res.Fields["items"].([]any)
		assert.Equal(t, 0.90, items[0].(map[string]any)["confidence"])
		assert.Equal(t, 0.80, items[1].(map[string]any)["confidence"])
	})

	t.Run("all zero", func(t *testing.T) {
		a := map[string]any{"field1": leaf(float64(0), "test")}
		b := map[string]any{"field1": leaf(float64(0), "test")}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.0, res.OverallConfidence)
		assert.Equal(t, 0, res.EvaluatedFieldCount)
		assert.Equal(t, 1, res.ZeroConfidenceFieldCount)
	})

	t.Run("preserves leaf values", func(t *testing.T) {
		a := map[string]any{"field1": leaf(0.95, "test_value")}
		b := map[string]any{"field1": leaf(0.90, "test_value")}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, "test_value", res.Fields["field1"].(map[string]any)["value"])
	})

	t.Run("null on one side defers to the other", func(t *testing.T) {
		a := map[string]any{"field1": leaf(0.95, "test")}
		b := map[string]any{"field1": leaf(nil, "test")}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.95, res.Fields["field1"].(map[string]any)["confidence"])
		assert.Equal(t, 1, res.EvaluatedFieldCount)
	})

	t.Run("null on both sides is a zero-confidence field", func(t *testing.T) {
		a := map[string]any{"field1": leaf(nil, "test")}
		b := map[string]any{"field1": leaf(nil, "test")}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 1, res.ZeroConfidenceFieldCount)
		assert.Equal(t, []string{"field1"}, res.ZeroConfidenceFields)
		assert.Equal(t, 0, res.EvaluatedFieldCount)
	})

	t.Run("rounds to three decimals", func(t *testing.T) {
		a := map[string]any{"field1": leaf(0.123456, "test")}
		b := map[string]any{"field1": leaf(0.123789, "test")}
		res, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, 0.123, res.Fields["field1"].(map[string]any)["confidence"])
	})

	t.Run("min tracks ties", func(t *testing.T) {
		a := map[string]any{
			"field1": leaf(0.80, "x"),
			"field2": leaf(0.80, "y"),
			"field3": leaf(0.95, "z"),
		}
		res, err := Merge(a, a)
		require.NoError(t, err)

		assert.Equal(t, 0.80, res.MinConfidence)
		assert.Equal(t, []string{"field1", "field2"}, res.MinConfidenceFields)
	})

	t.Run("shape mismatch on slice length", func(t *testing.T) {
		a := map[string]any{"items": []any{leaf(0.95, "item1")}}
		b := map[string]any{"items": []any{leaf(0.95, "item1"), leaf(0.85, "item2")}}
		_, err := Merge(a, b)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shape mismatch")
	})

	t.Run("shape mismatch on missing key", func(t *testing.T) {
		a := map[string]any{"field1": leaf(0.95, "test")}
		b := map[string]any{"field2": leaf(0.95, "test")}
		_, err := Merge(a, b)
		require.Error(t, err)
	})

	t.Run("shape mismatch on kind", func(t *testing.T) {
		a := map[string]any{"field1": leaf(0.95, "test")}
		b := map[string]any{"field1": []any{leaf(0.95, "test")}}
		_, err := Merge(a, b)
		require.Error(t, err)
	})
}
