// Modul: math.go
// Beschreibung: Rechenkerne auf Tensoren
// Hauptfunktionen:
//   - Add, Scale, Map, Exp: elementweise Operationen
//   - MatMul, BatchedMatMul: Matrixprodukte ueber gonum
//   - Softmax, MaxAlong: Normalisierung und Aggregation
//   - Upsample2Linear: lineare 1D-Interpolation (Faktor 2)
//   - DiffAlong, GradientAlong: finite Differenzen

package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Add liefert die elementweise Summe zweier formgleicher Tensoren.
func Add(a, b *Tensor) *Tensor {
	if len(a.data) != len(b.data) {
		panic(fmt.Sprintf("ml: Add mit Shapes %v und %v", a.shape, b.shape))
	}
	out := a.Clone()
	floats.Add(out.data, b.data)
	return out
}

// Scale liefert eine mit s skalierte Kopie.
func (t *Tensor) Scale(s float64) *Tensor {
	out := t.Clone()
	floats.Scale(s, out.data)
	return out
}

// Map wendet f elementweise an und liefert eine Kopie.
func (t *Tensor) Map(f func(float64) float64) *Tensor {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = f(v)
	}
	return out
}

// Exp liefert die elementweise Exponentialfunktion.
func (t *Tensor) Exp() *Tensor { return t.Map(math.Exp) }

// MatMul multipliziert zwei Rang-2 Tensoren ueber gonum.
func MatMul(a, b *Tensor) *Tensor {
	out := NewTensor(a.Dim(0), b.Dim(1))
	out.Matrix().Mul(a.Matrix(), b.Matrix())
	return out
}

// BatchedMatMul multipliziert die Matrix m (r, k) gegen die letzten beiden
// Dimensionen von t (..., k, c) und liefert (..., r, c).
func BatchedMatMul(m, t *Tensor) *Tensor {
	if m.Rank() != 2 || t.Rank() < 2 {
		panic(fmt.Sprintf("ml: BatchedMatMul mit Shapes %v und %v", m.shape, t.shape))
	}
	r, k := m.Dim(0), m.Dim(1)
	tk := t.shape[t.Rank()-2]
	c := t.shape[t.Rank()-1]
	if tk != k {
		panic(fmt.Sprintf("ml: BatchedMatMul innere Dimension %d != %d", tk, k))
	}
	batch := t.Len() / (k * c)

	newShape := t.Shape()
	newShape[len(newShape)-2] = r
	out := NewTensor(newShape...)

	mm := m.Matrix()
	for b := 0; b < batch; b++ {
		src := mat.NewDense(k, c, t.data[b*k*c:(b+1)*k*c])
		dst := mat.NewDense(r, c, out.data[b*r*c:(b+1)*r*c])
		dst.Mul(mm, src)
	}
	return out
}

// Softmax normalisiert die letzte Dimension zu einer Verteilung.
// Der Zeilenmaximalwert wird vorab abgezogen (numerische Stabilitaet).
func Softmax(t *Tensor) *Tensor {
	out := t.Clone()
	n := t.shape[t.Rank()-1]
	for base := 0; base < len(out.data); base += n {
		row := out.data[base : base+n]
		max := floats.Max(row)
		for i, v := range row {
			row[i] = math.Exp(v - max)
		}
		sum := floats.Sum(row)
		floats.Scale(1/sum, row)
	}
	return out
}

// MaxAlong reduziert die Dimension dim per Maximum und entfernt sie.
func MaxAlong(t *Tensor, dim int) *Tensor {
	outer, n, inner := t.split(dim)
	if n == 0 {
		panic(fmt.Sprintf("ml: MaxAlong ueber leere Dimension %d", dim))
	}
	newShape := make([]int, 0, t.Rank()-1)
	for i, d := range t.shape {
		if i != dim {
			newShape = append(newShape, d)
		}
	}
	out := NewTensor(newShape...)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			max := t.data[o*n*inner+in]
			for i := 1; i < n; i++ {
				if v := t.data[(o*n+i)*inner+in]; v > max {
					max = v
				}
			}
			out.data[o*inner+in] = max
		}
	}
	return out
}

// Upsample2Linear verdoppelt die letzte Dimension eines (B, C, T)-Tensors
// per linearer Interpolation ohne Eckpunkt-Ausrichtung: das Ausgabe-Sample j
// liest an der Quellposition (j+0.5)/2 - 0.5, am Rand geklemmt.
func Upsample2Linear(t *Tensor) *Tensor {
	if t.Rank() != 3 {
		panic(fmt.Sprintf("ml: Upsample2Linear verlangt Rang 3, Shape ist %v", t.shape))
	}
	b, c, n := t.Dim(0), t.Dim(1), t.Dim(2)
	out := NewTensor(b, c, 2*n)
	for bc := 0; bc < b*c; bc++ {
		src := t.data[bc*n : (bc+1)*n]
		dst := out.data[bc*2*n : (bc+1)*2*n]
		for j := 0; j < 2*n; j++ {
			pos := (float64(j)+0.5)/2 - 0.5
			if pos <= 0 {
				dst[j] = src[0]
				continue
			}
			if pos >= float64(n-1) {
				dst[j] = src[n-1]
				continue
			}
			i0 := int(math.Floor(pos))
			frac := pos - float64(i0)
			dst[j] = (1-frac)*src[i0] + frac*src[i0+1]
		}
	}
	return out
}

// DiffAlong bildet Vorwaertsdifferenzen entlang der Dimension dim;
// die Dimension schrumpft um eins.
func DiffAlong(t *Tensor, dim int) *Tensor {
	outer, n, inner := t.split(dim)
	if n < 2 {
		panic(fmt.Sprintf("ml: DiffAlong verlangt mindestens 2 Elemente in Dimension %d", dim))
	}
	newShape := t.Shape()
	newShape[dim] = n - 1
	out := NewTensor(newShape...)
	for o := 0; o < outer; o++ {
		for i := 0; i < n-1; i++ {
			for in := 0; in < inner; in++ {
				out.data[(o*(n-1)+i)*inner+in] = t.data[(o*n+i+1)*inner+in] - t.data[(o*n+i)*inner+in]
			}
		}
	}
	return out
}

// GradientAlong bildet zentrale Differenzen entlang der Dimension dim
// (einseitig an den Raendern, Schrittweite 1). Die Shape bleibt erhalten.
// Bei Laenge 1 ist der Gradient null.
func GradientAlong(t *Tensor, dim int) *Tensor {
	outer, n, inner := t.split(dim)
	out := NewTensor(t.Shape()...)
	if n < 2 {
		return out
	}
	at := func(o, i, in int) float64 { return t.data[(o*n+i)*inner+in] }
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			out.data[(o*n+0)*inner+in] = at(o, 1, in) - at(o, 0, in)
			out.data[(o*n+n-1)*inner+in] = at(o, n-1, in) - at(o, n-2, in)
			for i := 1; i < n-1; i++ {
				out.data[(o*n+i)*inner+in] = (at(o, i+1, in) - at(o, i-1, in)) / 2
			}
		}
	}
	return out
}
