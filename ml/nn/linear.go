// Modul: linear.go
// Beschreibung: Voll verbundene Schicht
// Hauptstrukturen:
//   - Linear: y = x*W + b ueber die letzte Dimension

package nn

import (
	"math/rand"

	"github.com/mindscene/mindscene/ml"
)

// Linear ist eine voll verbundene Schicht ueber die letzte Tensordimension.
// Fuehrende Dimensionen werden als Batch behandelt.
type Linear struct {
	Weight *ml.Tensor // (in, out)
	Bias   *ml.Tensor // (out) oder nil
}

// NewLinear erzeugt eine Linear-Schicht mit Xavier-Initialisierung.
func NewLinear(rng *rand.Rand, in, out int) *Linear {
	w := ml.NewTensor(in, out)
	XavierUniform(rng, w, in, out)
	return &Linear{
		Weight: w,
		Bias:   ml.NewTensor(out),
	}
}

// Forward wendet die Schicht auf (..., in) an und liefert (..., out).
func (l *Linear) Forward(x *ml.Tensor) *ml.Tensor {
	in := l.Weight.Dim(0)
	out := l.Weight.Dim(1)
	batch := x.Len() / in

	newShape := x.Shape()
	newShape[len(newShape)-1] = out

	if batch == 0 {
		// gonum verweigert 0-dimensionale Matrizen; leere Batches
		// (z.B. Szenen ohne Fahrspuren) liefern leere Ausgaben.
		return ml.NewTensor(newShape...)
	}

	flat := x.Reshape(batch, in)
	y := ml.MatMul(flat, l.Weight)
	if l.Bias != nil {
		data := y.Data()
		bias := l.Bias.Data()
		for b := 0; b < batch; b++ {
			row := data[b*out : (b+1)*out]
			for i := range row {
				row[i] += bias[i]
			}
		}
	}

	return y.Reshape(newShape...)
}
