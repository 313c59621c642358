// Package ml - Dichter Tensor mit flachem Speicher
//
// Dieses Paket stellt die Tensor-Grundlage fuer alle Netzwerk-Komponenten
// bereit. Ein Tensor ist ein zeilenweise (row-major) abgelegtes float64-Array
// mit expliziter Shape. Alle 2D-Matrixprodukte laufen ueber gonum/mat,
// elementweise Operationen arbeiten direkt auf dem flachen Speicher.
//
// Hauptkomponenten:
// - Tensor: Shape + flacher Datenpuffer
// - Konstruktoren: NewTensor, NewTensorFrom
// - Formoperationen: Reshape, Permute, Slice, Concat
//
// Fehlerverhalten: Dimensionsverletzungen loesen wie in gonum ein Panic aus.
// Die exportierte Modell-Schnittstelle validiert Eingaben vor dem Rechnen,
// so dass Aufrufer nur Fehler, nie Panics sehen.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor ist ein dichter n-dimensionaler float64-Tensor.
// Der Speicher ist immer zusammenhaengend und zeilenweise organisiert.
type Tensor struct {
	shape []int
	data  []float64
}

// NewTensor erzeugt einen Null-Tensor mit der gegebenen Shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("ml: negative Dimension %d in Shape %v", d, shape))
		}
		n *= d
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  make([]float64, n),
	}
}

// NewTensorFrom erzeugt einen Tensor ueber einem bestehenden Datenpuffer.
// Der Puffer wird uebernommen, nicht kopiert.
func NewTensorFrom(data []float64, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		panic(fmt.Sprintf("ml: Datenlaenge %d passt nicht zu Shape %v", len(data), shape))
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  data,
	}
}

// Rank liefert die Anzahl der Dimensionen.
func (t *Tensor) Rank() int { return len(t.shape) }

// Dim liefert die Groesse der Dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Shape liefert eine Kopie der Shape.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Len liefert die Gesamtzahl der Elemente.
func (t *Tensor) Len() int { return len(t.data) }

// Data liefert den flachen Datenpuffer (geteilter Speicher).
func (t *Tensor) Data() []float64 { return t.data }

// offset berechnet den flachen Index fuer einen Mehrfach-Index.
func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("ml: Index-Rang %d passt nicht zu Tensor-Rang %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("ml: Index %v ausserhalb von Shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + x
	}
	return off
}

// At liest das Element am Mehrfach-Index.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.offset(idx)] }

// Set schreibt das Element am Mehrfach-Index.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.offset(idx)] = v }

// Clone liefert eine tiefe Kopie.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape: append([]int(nil), t.shape...),
		data:  append([]float64(nil), t.data...),
	}
}

// Reshape liefert eine Sicht mit neuer Shape auf denselben Speicher.
// Die Elementanzahl muss unveraendert bleiben.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(t.data) {
		panic(fmt.Sprintf("ml: Reshape %v -> %v aendert Elementanzahl", t.shape, shape))
	}
	return &Tensor{
		shape: append([]int(nil), shape...),
		data:  t.data,
	}
}

// Matrix liefert eine gonum-Sicht auf einen Rang-2 Tensor.
// Der Speicher wird geteilt, nicht kopiert.
func (t *Tensor) Matrix() *mat.Dense {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("ml: Matrix() verlangt Rang 2, Shape ist %v", t.shape))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// Permute liefert eine umsortierte Kopie der Achsen.
// order muss eine Permutation von 0..Rank-1 sein.
func (t *Tensor) Permute(order ...int) *Tensor {
	r := len(t.shape)
	if len(order) != r {
		panic(fmt.Sprintf("ml: Permute-Ordnung %v passt nicht zu Rang %d", order, r))
	}
	newShape := make([]int, r)
	seen := make([]bool, r)
	for i, o := range order {
		if o < 0 || o >= r || seen[o] {
			panic(fmt.Sprintf("ml: ungueltige Permutation %v", order))
		}
		seen[o] = true
		newShape[i] = t.shape[o]
	}
	out := NewTensor(newShape...)

	oldStride := strides(t.shape)
	newStride := strides(newShape)
	idx := make([]int, r)
	for flat := range out.data {
		// Mehrfach-Index im Zieltensor rekonstruieren
		rem := flat
		for i := 0; i < r; i++ {
			idx[i] = rem / newStride[i]
			rem %= newStride[i]
		}
		src := 0
		for i := 0; i < r; i++ {
			src += idx[i] * oldStride[order[i]]
		}
		out.data[flat] = t.data[src]
	}
	return out
}

// Slice liefert eine Kopie des Bereichs [start, end) entlang der Dimension dim.
func (t *Tensor) Slice(dim, start, end int) *Tensor {
	if dim < 0 || dim >= len(t.shape) {
		panic(fmt.Sprintf("ml: Slice-Dimension %d ausserhalb von Rang %d", dim, len(t.shape)))
	}
	if start < 0 || end > t.shape[dim] || start > end {
		panic(fmt.Sprintf("ml: Slice [%d:%d] ausserhalb von Dimension %d (Shape %v)", start, end, dim, t.shape))
	}
	outer, n, inner := t.split(dim)
	newShape := t.Shape()
	newShape[dim] = end - start
	out := NewTensor(newShape...)
	for o := 0; o < outer; o++ {
		srcBase := (o*n + start) * inner
		dstBase := o * (end - start) * inner
		copy(out.data[dstBase:dstBase+(end-start)*inner], t.data[srcBase:srcBase+(end-start)*inner])
	}
	return out
}

// Concat verkettet Tensoren entlang der Dimension dim.
// Alle uebrigen Dimensionen muessen uebereinstimmen.
func Concat(dim int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("ml: Concat ohne Eingaben")
	}
	ref := ts[0]
	total := 0
	for _, t := range ts {
		if t.Rank() != ref.Rank() {
			panic("ml: Concat mit unterschiedlichem Rang")
		}
		for i := range t.shape {
			if i != dim && t.shape[i] != ref.shape[i] {
				panic(fmt.Sprintf("ml: Concat-Shape %v passt nicht zu %v (dim %d)", t.shape, ref.shape, dim))
			}
		}
		total += t.shape[dim]
	}
	newShape := ref.Shape()
	newShape[dim] = total
	out := NewTensor(newShape...)

	outer, _, inner := ref.split(dim)
	dstRow := total * inner
	off := 0
	for _, t := range ts {
		n := t.shape[dim]
		for o := 0; o < outer; o++ {
			src := o * n * inner
			dst := o*dstRow + off
			copy(out.data[dst:dst+n*inner], t.data[src:src+n*inner])
		}
		off += n * inner
	}
	return out
}

// split zerlegt die Shape in (outer, dim, inner) Bloecke.
func (t *Tensor) split(dim int) (outer, n, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= t.shape[i]
	}
	for i := dim + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}
	return outer, t.shape[dim], inner
}

// strides berechnet die row-major Schrittweiten einer Shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}
