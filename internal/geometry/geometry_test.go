package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIoU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30), 0},
		{"touching edge", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 50.0 / 150.0},
		{"contained", NewBox(0, 0, 10, 10), NewBox(0, 0, 5, 10), 0.5},
		{"zero area both", NewBox(1, 1, 1, 1), NewBox(1, 1, 1, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, IoU(tt.b, tt.a), 1e-12, "IoU must be symmetric")
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestBoxCenterAndFinite(t *testing.T) {
	t.Parallel()

	b := NewBox(10, 20, 0, 0)
	assert.Equal(t, Box{X1: 0, Y1: 0, X2: 10, Y2: 20}, b)
	assert.Equal(t, Point{X: 5, Y: 10}, b.Center())
	assert.True(t, b.IsFinite())

	assert.False(t, Box{X1: math.NaN()}.IsFinite())
	assert.False(t, Box{Y2: math.Inf(1)}.IsFinite())
}

func TestBoxJSON(t *testing.T) {
	t.Parallel()

	var b Box
	require.NoError(t, json.Unmarshal([]byte(`[1, 2, 3, 4]`), &b))
	assert.Equal(t, Box{X1: 1, Y1: 2, X2: 3, Y2: 4}, b)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3,4]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[1, 2, 3]`), &b))
}

func TestPolygonContains(t *testing.T) {
	t.Parallel()

	square := Polygon{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	triangle := Polygon{{0, 0}, {10, 0}, {0, 10}}

	tests := []struct {
		name string
		poly Polygon
		p    Point
		want bool
	}{
		{"inside", square, Point{50, 50}, true},
		{"outside", square, Point{150, 50}, false},
		{"on edge", square, Point{100, 50}, true},
		{"on vertex", square, Point{0, 0}, true},
		{"on top edge", square, Point{30, 0}, true},
		{"triangle inside", triangle, Point{2, 2}, true},
		{"triangle hypotenuse", triangle, Point{5, 5}, true},
		{"triangle outside", triangle, Point{6, 6}, false},
		{"degenerate polygon", Polygon{{0, 0}, {1, 1}}, Point{0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.poly.Contains(tt.p))
		})
	}
}

func TestPolygonBounds(t *testing.T) {
	t.Parallel()

	poly := Polygon{{10, 5}, {40, 0}, {30, 50}}
	assert.Equal(t, Box{X1: 10, Y1: 0, X2: 40, Y2: 50}, poly.Bounds())
}
