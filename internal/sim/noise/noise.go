// Package noise produces deterministic value-noise fields. Every function is a
// pure function of its arguments; the same seed always reproduces the same field.
package noise

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"tilecraft.ai/internal/sim/world/logic/mathx"
)

const DefaultPersistence = 0.5

// Sample returns the lattice value for (seed, index) in [0,1).
func Sample(seed int64, index int) float64 {
	return mathx.Unit(mathx.Hash2(seed, index, 0))
}

// Sample2 is the 2D lattice value for (seed, x, y) in [0,1).
func Sample2(seed int64, x, y int) float64 {
	return mathx.Unit(mathx.Hash3(seed, x, y, 1))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// GenerateField builds length samples of multi-octave 1D value noise. Each octave
// doubles the frequency and multiplies the amplitude by persistence.
func GenerateField(seed int64, length int, scale float64, octaves int, amplitude, persistence float64) []float64 {
	if length <= 0 {
		return nil
	}
	out := make([]float64, length)
	for i := range out {
		total := 0.0
		frequency := 1.0
		amp := amplitude
		for o := 0; o < octaves; o++ {
			x := float64(i) * scale * frequency
			ix := math.Floor(x)
			frac := x - ix
			v1 := Sample(seed, int(ix))
			v2 := Sample(seed, int(ix)+1)
			total += lerp(v1, v2, frac) * amp
			amp *= persistence
			frequency *= 2
		}
		out[i] = total
	}
	return out
}

// Value2D is bilinear multi-octave value noise normalised to [0,1).
func Value2D(seed int64, x, y float64, octaves int, persistence float64) float64 {
	if octaves <= 0 {
		return 0
	}
	total := 0.0
	norm := 0.0
	frequency := 1.0
	amp := 1.0
	for o := 0; o < octaves; o++ {
		fx := x * frequency
		fy := y * frequency
		ix := math.Floor(fx)
		iy := math.Floor(fy)
		tx := fx - ix
		ty := fy - iy
		x0, y0 := int(ix), int(iy)
		top := lerp(Sample2(seed, x0, y0), Sample2(seed, x0+1, y0), tx)
		bottom := lerp(Sample2(seed, x0, y0+1), Sample2(seed, x0+1, y0+1), tx)
		total += lerp(top, bottom, ty) * amp
		norm += amp
		amp *= persistence
		frequency *= 2
	}
	return total / norm
}

// Field2D is a cave-shaping field over grid cells with values in [0,1].
type Field2D interface {
	At(col, row int) float64
}

// ValueField samples Value2D at twice the horizontal resolution of the grid and
// averages the two half-cell samples of each column.
type ValueField struct {
	Seed    int64
	Scale   float64
	Octaves int
}

func (f ValueField) At(col, row int) float64 {
	y := float64(row) * f.Scale
	a := Value2D(f.Seed, float64(col)*f.Scale, y, f.Octaves, DefaultPersistence)
	b := Value2D(f.Seed, (float64(col)+0.5)*f.Scale, y, f.Octaves, DefaultPersistence)
	return (a + b) / 2
}

// SimplexField is the opensimplex backend.
type SimplexField struct {
	noise opensimplex.Noise
	scale float64
}

func NewSimplexField(seed int64, scale float64) SimplexField {
	return SimplexField{noise: opensimplex.NewNormalized(seed), scale: scale}
}

func (f SimplexField) At(col, row int) float64 {
	return f.noise.Eval2(float64(col)*f.scale, float64(row)*f.scale)
}

// NewField picks a backend by name; unknown names use value noise.
func NewField(kind string, seed int64, scale float64, octaves int) Field2D {
	if kind == "simplex" {
		return NewSimplexField(seed, scale)
	}
	return ValueField{Seed: seed, Scale: scale, Octaves: octaves}
}
