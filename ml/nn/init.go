// Modul: init.go
// Beschreibung: Gewichtsinitialisierung fuer alle Layer
// Hauptfunktionen:
//   - XavierUniform: gleichverteilte Initialisierung nach Glorot

package nn

import (
	"math"
	"math/rand"

	"github.com/mindscene/mindscene/ml"
)

// XavierUniform fuellt den Tensor gleichverteilt aus
// [-sqrt(6/(fanIn+fanOut)), +sqrt(6/(fanIn+fanOut))].
func XavierUniform(rng *rand.Rand, t *ml.Tensor, fanIn, fanOut int) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := t.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
}
