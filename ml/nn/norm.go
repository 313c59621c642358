// Modul: norm.go
// Beschreibung: Normalisierungsschichten
// Hauptstrukturen:
//   - LayerNorm: Normalisierung ueber die letzte Dimension
//   - GroupNorm: Gruppen-Normalisierung ueber (C, T) pro Sample

package nn

import (
	"fmt"
	"math"

	"github.com/mindscene/mindscene/ml"
)

const normEpsilon = 1e-5

// LayerNorm normalisiert die letzte Tensordimension und wendet
// eine gelernte affine Transformation an.
type LayerNorm struct {
	Gamma *ml.Tensor // (dim)
	Beta  *ml.Tensor // (dim)
}

// NewLayerNorm erzeugt eine LayerNorm mit Gamma=1, Beta=0.
func NewLayerNorm(dim int) *LayerNorm {
	gamma := ml.NewTensor(dim)
	data := gamma.Data()
	for i := range data {
		data[i] = 1
	}
	return &LayerNorm{Gamma: gamma, Beta: ml.NewTensor(dim)}
}

// Forward normalisiert (..., dim) zeilenweise.
func (ln *LayerNorm) Forward(x *ml.Tensor) *ml.Tensor {
	dim := ln.Gamma.Dim(0)
	if x.Dim(x.Rank()-1) != dim {
		panic(fmt.Sprintf("nn: LayerNorm-Dimension %d passt nicht zu Eingabe %v", dim, x.Shape()))
	}
	out := x.Clone()
	data := out.Data()
	gamma := ln.Gamma.Data()
	beta := ln.Beta.Data()
	for base := 0; base < len(data); base += dim {
		row := data[base : base+dim]
		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= float64(dim)
		variance := 0.0
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float64(dim)
		inv := 1 / math.Sqrt(variance+normEpsilon)
		for i, v := range row {
			row[i] = (v-mean)*inv*gamma[i] + beta[i]
		}
	}
	return out
}

// GroupNorm normalisiert einen (B, C, T)-Tensor pro Sample und Gruppe
// ueber alle Kanal- und Zeitpositionen der Gruppe.
type GroupNorm struct {
	Groups int
	Gamma  *ml.Tensor // (C)
	Beta   *ml.Tensor // (C)
}

// NewGroupNorm erzeugt eine GroupNorm mit Gamma=1, Beta=0.
func NewGroupNorm(groups, channels int) *GroupNorm {
	if channels%groups != 0 {
		panic(fmt.Sprintf("nn: %d Kanaele nicht durch %d Gruppen teilbar", channels, groups))
	}
	gamma := ml.NewTensor(channels)
	data := gamma.Data()
	for i := range data {
		data[i] = 1
	}
	return &GroupNorm{Groups: groups, Gamma: gamma, Beta: ml.NewTensor(channels)}
}

// Forward normalisiert (B, C, T).
func (gn *GroupNorm) Forward(x *ml.Tensor) *ml.Tensor {
	if x.Rank() != 3 {
		panic(fmt.Sprintf("nn: GroupNorm verlangt Rang 3, Shape ist %v", x.Shape()))
	}
	b, c, t := x.Dim(0), x.Dim(1), x.Dim(2)
	if c != gn.Gamma.Dim(0) {
		panic(fmt.Sprintf("nn: GroupNorm-Kanaele %d passen nicht zu Eingabe %v", gn.Gamma.Dim(0), x.Shape()))
	}
	perGroup := c / gn.Groups
	out := x.Clone()
	data := out.Data()
	gamma := gn.Gamma.Data()
	beta := gn.Beta.Data()

	for s := 0; s < b; s++ {
		for g := 0; g < gn.Groups; g++ {
			start := (s*c + g*perGroup) * t
			end := start + perGroup*t
			seg := data[start:end]

			mean := 0.0
			for _, v := range seg {
				mean += v
			}
			mean /= float64(len(seg))
			variance := 0.0
			for _, v := range seg {
				d := v - mean
				variance += d * d
			}
			variance /= float64(len(seg))
			inv := 1 / math.Sqrt(variance+normEpsilon)

			for ch := 0; ch < perGroup; ch++ {
				gch := g*perGroup + ch
				row := seg[ch*t : (ch+1)*t]
				for i, v := range row {
					row[i] = (v-mean)*inv*gamma[gch] + beta[gch]
				}
			}
		}
	}
	return out
}

// ReLU liefert max(0, x) elementweise.
func ReLU(x *ml.Tensor) *ml.Tensor {
	return x.Map(func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	})
}
