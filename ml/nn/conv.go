// Modul: conv.go
// Beschreibung: 1D-Faltung fuer Zeitreihen
// Hauptstrukturen:
//   - Conv1d: Faltung ueber die Zeitachse eines (B, C, T)-Tensors

package nn

import (
	"fmt"
	"math/rand"

	"github.com/mindscene/mindscene/ml"
)

// Conv1d faltet einen (B, Cin, T)-Tensor zu (B, Cout, T').
// T' = (T + 2*Padding - Kernel)/Stride + 1.
type Conv1d struct {
	Weight  *ml.Tensor // (out, in, kernel)
	Bias    *ml.Tensor // (out) oder nil
	Stride  int
	Padding int
}

// NewConv1d erzeugt eine Conv1d ohne Bias (der Bias entfaellt, wenn eine
// Normalisierung folgt) mit Xavier-Initialisierung.
func NewConv1d(rng *rand.Rand, in, out, kernel, stride, padding int) *Conv1d {
	w := ml.NewTensor(out, in, kernel)
	XavierUniform(rng, w, in*kernel, out*kernel)
	return &Conv1d{Weight: w, Stride: stride, Padding: padding}
}

// Forward faltet die Eingabe ueber die Zeitachse.
func (c *Conv1d) Forward(x *ml.Tensor) *ml.Tensor {
	if x.Rank() != 3 {
		panic(fmt.Sprintf("nn: Conv1d verlangt Rang 3, Shape ist %v", x.Shape()))
	}
	b, cin, t := x.Dim(0), x.Dim(1), x.Dim(2)
	cout := c.Weight.Dim(0)
	kernel := c.Weight.Dim(2)
	if cin != c.Weight.Dim(1) {
		panic(fmt.Sprintf("nn: Conv1d-Kanaele %d passen nicht zu Eingabe %v", c.Weight.Dim(1), x.Shape()))
	}
	outT := (t+2*c.Padding-kernel)/c.Stride + 1
	if outT < 1 {
		panic(fmt.Sprintf("nn: Conv1d-Ausgabelaenge %d fuer Eingabelaenge %d", outT, t))
	}
	out := ml.NewTensor(b, cout, outT)

	xd := x.Data()
	wd := c.Weight.Data()
	od := out.Data()
	for s := 0; s < b; s++ {
		for f := 0; f < cout; f++ {
			for o := 0; o < outT; o++ {
				sum := 0.0
				if c.Bias != nil {
					sum = c.Bias.Data()[f]
				}
				for ic := 0; ic < cin; ic++ {
					for k := 0; k < kernel; k++ {
						pos := o*c.Stride + k - c.Padding
						if pos < 0 || pos >= t {
							continue
						}
						sum += xd[(s*cin+ic)*t+pos] * wd[(f*cin+ic)*kernel+k]
					}
				}
				od[(s*cout+f)*outT+o] = sum
			}
		}
	}
	return out
}
