// Modul: blocks.go
// Beschreibung: Wiederkehrende Bausteine der Szenen-Netzwerke
// Hauptstrukturen:
//   - projection: Linear + LayerNorm + ReLU
//   - mlp: Kette von Projektionen mit optionalem linearem Kopf

package scene

import (
	"math/rand"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/ml/nn"
)

// projection ist der Standard-Projektionsblock Linear+LayerNorm+ReLU,
// wie ihn alle Netzwerkteile fuer Breitenwechsel verwenden.
type projection struct {
	lin  *nn.Linear
	norm *nn.LayerNorm
}

func newProjection(rng *rand.Rand, in, out int) *projection {
	return &projection{
		lin:  nn.NewLinear(rng, in, out),
		norm: nn.NewLayerNorm(out),
	}
}

func (p *projection) forward(x *ml.Tensor) *ml.Tensor {
	return nn.ReLU(p.norm.Forward(p.lin.Forward(x)))
}

// mlp kettet Projektionsbloecke; ein optionaler linearer Kopf
// (ohne Norm und Aktivierung) bildet auf die Zieldimension ab.
type mlp struct {
	blocks []*projection
	head   *nn.Linear
}

// newMLP erzeugt eine Projektion dims[0] -> dims[1] -> ... -> dims[n-1].
func newMLP(rng *rand.Rand, dims ...int) *mlp {
	m := &mlp{}
	for i := 0; i+1 < len(dims); i++ {
		m.blocks = append(m.blocks, newProjection(rng, dims[i], dims[i+1]))
	}
	return m
}

// newMLPWithHead haengt einen linearen Kopf auf headOut an.
func newMLPWithHead(rng *rand.Rand, headOut int, dims ...int) *mlp {
	m := newMLP(rng, dims...)
	m.head = nn.NewLinear(rng, dims[len(dims)-1], headOut)
	return m
}

func (m *mlp) forward(x *ml.Tensor) *ml.Tensor {
	for _, b := range m.blocks {
		x = b.forward(x)
	}
	if m.head != nil {
		x = m.head.Forward(x)
	}
	return x
}
