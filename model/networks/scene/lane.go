// Modul: lane.go
// Beschreibung: Fahrspur-Encoder (permutationsinvariante Punkt-Aggregation)
// Hauptstrukturen:
//   - LaneNet: Projektion + zwei PointAggregateBlocks
//   - pointAggregateBlock: MLP, Max-Pool, Broadcast-Konkat, Residuum
//
// Dieselbe Instanz kodiert auch die Ziel-Knoten des Decoders: die
// Gewichtsteilung ist beabsichtigt, nicht Duplikation.

package scene

import (
	"math/rand"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/ml/nn"
)

// pointAggregateBlock verfeinert Punktmerkmale, aggregiert per Max-Pool
// ueber die Punktachse und fusioniert beides mit Residuum und LayerNorm.
// aggreOut kollabiert die Punktachse der Ausgabe.
type pointAggregateBlock struct {
	fc1      *mlp
	fc2      *mlp
	norm     *nn.LayerNorm
	aggreOut bool
}

func newPointAggregateBlock(rng *rand.Rand, hidden int, aggreOut bool) *pointAggregateBlock {
	return &pointAggregateBlock{
		fc1:      newMLP(rng, hidden, hidden, hidden),
		fc2:      newMLP(rng, 2*hidden, hidden, hidden),
		norm:     nn.NewLayerNorm(hidden),
		aggreOut: aggreOut,
	}
}

// maxPoolPoints aggregiert (L, P, H) per Maximum ueber die Punktachse.
func maxPoolPoints(x *ml.Tensor) *ml.Tensor {
	return ml.MaxAlong(x, 1)
}

func (b *pointAggregateBlock) forward(x *ml.Tensor) *ml.Tensor {
	refined := b.fc1.forward(x) // (L, P, H)
	pooled := maxPoolPoints(refined)

	l, p, h := refined.Dim(0), refined.Dim(1), refined.Dim(2)
	cat := ml.NewTensor(l, p, 2*h)
	for i := 0; i < l; i++ {
		for j := 0; j < p; j++ {
			for k := 0; k < h; k++ {
				cat.Set(refined.At(i, j, k), i, j, k)
				cat.Set(pooled.At(i, k), i, j, h+k)
			}
		}
	}

	out := b.norm.Forward(ml.Add(x, b.fc2.forward(cat)))
	if b.aggreOut {
		return maxPoolPoints(out)
	}
	return out
}

// LaneNet kodiert Fahrspur-Segmente (L, LanePoints, InLane) zu (L, DLane).
type LaneNet struct {
	proj   *projection
	aggre1 *pointAggregateBlock
	aggre2 *pointAggregateBlock
}

func newLaneNet(rng *rand.Rand, opts Options) *LaneNet {
	return &LaneNet{
		proj:   newProjection(rng, opts.inLane, opts.dLane),
		aggre1: newPointAggregateBlock(rng, opts.dLane, false),
		aggre2: newPointAggregateBlock(rng, opts.dLane, true),
	}
}

// Forward liefert ein Embedding pro Segment.
func (l *LaneNet) Forward(lanes *ml.Tensor) *ml.Tensor {
	x := l.proj.forward(lanes)
	x = l.aggre1.forward(x)
	return l.aggre2.forward(x)
}
