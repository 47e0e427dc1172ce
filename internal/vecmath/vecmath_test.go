package vecmath

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		wantNorm float64
	}{
		{name: "already unit", in: []float32{1, 0, 0}, wantNorm: 1},
		{name: "scaled", in: []float32{3, 4}, wantNorm: 1},
		{name: "negative components", in: []float32{-2, 2, -2}, wantNorm: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if n := Norm(got); math.Abs(n-tt.wantNorm) > 1e-6 {
				t.Errorf("Norm(Normalize(%v)) = %v, want %v", tt.in, n, tt.wantNorm)
			}
		})
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	in := []float32{0, 0, 0}
	got := Normalize(in)
	for i, x := range got {
		if x != 0 {
			t.Errorf("Normalize(zero)[%d] = %v, want 0", i, x)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "scale invariant", a: []float32{1, 1}, b: []float32{10, 10}, want: 1},
		{name: "empty inputs", a: nil, b: nil, want: 0},
		{name: "mismatched length", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "zero norm left", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
		{name: "zero norm right", a: []float32{1, 2}, b: []float32{0, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineDistanceRange(t *testing.T) {
	a := []float32{1, 0}
	if d := CosineDistance(a, a); math.Abs(d) > 1e-6 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	if d := CosineDistance(a, []float32{-1, 0}); math.Abs(d-2) > 1e-6 {
		t.Errorf("distance to opposite = %v, want 2", d)
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		in   [][]float32
		want []float32
	}{
		{
			name: "simple average",
			in:   [][]float32{{1, 2}, {3, 4}},
			want: []float32{2, 3},
		},
		{
			name: "skips nil vectors",
			in:   [][]float32{nil, {2, 4}, nil},
			want: []float32{2, 4},
		},
		{
			name: "skips mismatched dims",
			in:   [][]float32{{1, 1}, {1, 1, 1}, {3, 3}},
			want: []float32{2, 2},
		},
		{name: "all nil", in: [][]float32{nil, nil}, want: nil},
		{name: "empty input", in: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mean(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Mean() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("Mean()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSteer(t *testing.T) {
	base := []float32{1, 1}
	axes := []Axis{
		{Pos: []float32{2, 0}, Neg: []float32{0, 0}},
		{Pos: []float32{0, 3}, Neg: []float32{0, 1}},
	}
	got := Steer(base, axes, []float64{0.5, 1})

	want := []float32{2, 3} // 1 + 0.5*2, 1 + 1*2
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Steer()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSteerSkipsMismatchedAxes(t *testing.T) {
	base := []float32{1, 1}
	axes := []Axis{{Pos: []float32{1, 2, 3}, Neg: []float32{0, 0, 0}}}
	got := Steer(base, axes, []float64{1})
	if got[0] != 1 || got[1] != 1 {
		t.Errorf("Steer with mismatched axis = %v, want base unchanged", got)
	}
}

func TestVectorCodec(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{name: "simple", in: []float32{0.25, -1, 3.5}},
		{name: "single element", in: []float32{42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeVector(EncodeVector(tt.in))
			if err != nil {
				t.Fatalf("DecodeVector: %v", err)
			}
			if len(got) != len(tt.in) {
				t.Fatalf("round trip length %d, want %d", len(got), len(tt.in))
			}
			for i := range got {
				if got[i] != tt.in[i] {
					t.Errorf("round trip [%d] = %v, want %v", i, got[i], tt.in[i])
				}
			}
		})
	}
}

func TestDecodeVectorErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
		wantNil bool
	}{
		{name: "empty string", in: "", wantNil: true},
		{name: "empty brackets", in: "[]", wantNil: true},
		{name: "missing brackets", in: "1,2,3", wantErr: true},
		{name: "bad element", in: "[1,x,3]", wantErr: true},
		{name: "whitespace tolerated", in: " [1, 2] "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeVector(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeVector(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantNil && got != nil {
				t.Errorf("DecodeVector(%q) = %v, want nil", tt.in, got)
			}
		})
	}
}
