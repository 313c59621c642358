// Modul: fusion.go
// Beschreibung: Relationale Self-Attention ueber den Szenen-Graphen
// Hauptstrukturen:
//   - relaFusionLayer: Kanten-konditionierte Attention-Schicht
//   - relaFusionNet: Stapel von Fusionsschichten
//   - FusionNet: Orchestrierung pro Szene (Projektion, CLS, RPE-Padding)
//
// Jede Schicht baut pro geordnetem Tokenpaar (i, j) einen Memory-Vektor
// aus Kante und beiden Knoten. Token i attendiert ueber die Memory-Spalte
// {memory(j, i)}; die Kanten werden (ausser in der letzten Schicht)
// residual mitaktualisiert. Der CLS-Token nimmt ohne Sonderbehandlung an
// der Attention teil und sammelt so den Szenenkontext ein.

package scene

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/ml/nn"
	"github.com/mindscene/mindscene/model"
)

// relaFusionLayer ist eine Fusionsschicht mit Kanten-Update.
type relaFusionLayer struct {
	projMemory *projection
	updateEdge bool
	projEdge   *projection
	normEdge   *nn.LayerNorm

	attn             *nn.MultiheadAttention
	linear1, linear2 *nn.Linear
	norm2, norm3     *nn.LayerNorm
}

func newRelaFusionLayer(rng *rand.Rand, dEdge, dModel, dFFN, nHead int, updateEdge bool) *relaFusionLayer {
	l := &relaFusionLayer{
		projMemory: newProjection(rng, dModel+dModel+dEdge, dModel),
		updateEdge: updateEdge,
		attn:       nn.NewMultiheadAttention(rng, dModel, nHead),
		linear1:    nn.NewLinear(rng, dModel, dFFN),
		linear2:    nn.NewLinear(rng, dFFN, dModel),
		norm2:      nn.NewLayerNorm(dModel),
		norm3:      nn.NewLayerNorm(dModel),
	}
	if updateEdge {
		l.projEdge = newProjection(rng, dModel, dEdge)
		l.normEdge = nn.NewLayerNorm(dEdge)
	}
	return l
}

// buildMemory konkateniert pro Paar (i, j) [Kante; Quellknoten j; Zielknoten i]
// und projiziert auf die Modellbreite.
func (l *relaFusionLayer) buildMemory(node, edge *ml.Tensor) *ml.Tensor {
	n := node.Dim(0)
	d := node.Dim(1)
	de := edge.Dim(2)
	cat := ml.NewTensor(n, n, de+2*d)
	catData := cat.Data()
	nodeData := node.Data()
	edgeData := edge.Data()
	row := de + 2*d
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			base := (i*n + j) * row
			copy(catData[base:base+de], edgeData[(i*n+j)*de:(i*n+j+1)*de])
			copy(catData[base+de:base+de+d], nodeData[j*d:(j+1)*d])
			copy(catData[base+de+d:base+row], nodeData[i*d:(i+1)*d])
		}
	}
	return l.projMemory.forward(cat)
}

// forward aktualisiert Knoten (N, d) und Kanten (N, N, dEdge).
// edgeMask blendet pro Query i die Schluessel j mit edgeMask[i][j]=true aus;
// nil bedeutet keine Maskierung.
func (l *relaFusionLayer) forward(node, edge *ml.Tensor, edgeMask [][]bool) (*ml.Tensor, *ml.Tensor) {
	n := node.Dim(0)
	d := node.Dim(1)

	memory := l.buildMemory(node, edge)
	if l.updateEdge {
		edge = l.normEdge.Forward(ml.Add(edge, l.projEdge.forward(memory)))
	}

	// Token i attendiert ueber die Memory-Spalte {memory(j, i)}.
	xPrime := ml.NewTensor(n, d)
	memData := memory.Data()
	for i := 0; i < n; i++ {
		keys := ml.NewTensor(n, d)
		keyData := keys.Data()
		for j := 0; j < n; j++ {
			copy(keyData[j*d:(j+1)*d], memData[(j*n+i)*d:(j*n+i+1)*d])
		}
		var mask []bool
		if edgeMask != nil {
			mask = edgeMask[i]
		}
		out := l.attn.Forward(node.Slice(0, i, i+1), keys, keys, mask)
		copy(xPrime.Data()[i*d:(i+1)*d], out.Data())
	}

	x := l.norm2.Forward(ml.Add(node, xPrime))
	ffn := l.linear2.Forward(nn.ReLU(l.linear1.Forward(x)))
	x = l.norm3.Forward(ml.Add(x, ffn))
	return x, edge
}

// relaFusionNet stapelt Fusionsschichten; die letzte Schicht laesst die
// Kanten unveraendert, da nichts mehr darauf aufbaut.
type relaFusionNet struct {
	layers []*relaFusionLayer
}

func newRelaFusionNet(rng *rand.Rand, dModel, dEdge, nHead, nLayer int, updateEdge bool) *relaFusionNet {
	net := &relaFusionNet{}
	for i := 0; i < nLayer; i++ {
		update := updateEdge && i != nLayer-1
		net.layers = append(net.layers, newRelaFusionLayer(rng, dEdge, dModel, dModel*2, nHead, update))
	}
	return net
}

func (f *relaFusionNet) forward(node, edge *ml.Tensor, edgeMask [][]bool) *ml.Tensor {
	for _, l := range f.layers {
		node, edge = l.forward(node, edge, edgeMask)
	}
	return node
}

// FusionNet projiziert Aktor- und Fahrspur-Embeddings auf die gemeinsame
// Breite und fusioniert jede Szene ueber den relationalen Graphen.
type FusionNet struct {
	dEmbed, dRPE int

	projActor *projection
	projLane  *projection
	projRPE   *projection
	fuseScene *relaFusionNet
}

func newFusionNet(rng *rand.Rand, opts Options) *FusionNet {
	return &FusionNet{
		dEmbed:    opts.dEmbed,
		dRPE:      opts.dRPE,
		projActor: newProjection(rng, opts.dActor, opts.dEmbed),
		projLane:  newProjection(rng, opts.dLane, opts.dEmbed),
		projRPE:   newProjection(rng, opts.dRPEIn, opts.dRPE),
		fuseScene: newRelaFusionNet(rng, opts.dEmbed, opts.dRPE, opts.nSceneHead, opts.nSceneLayer, opts.updateEdge),
	}
}

// sceneResult sammelt die Fusionsausgabe einer Szene.
type sceneResult struct {
	actors *ml.Tensor
	lanes  *ml.Tensor
	cls    *ml.Tensor
}

// gatherRows kopiert die Zeilen idcs aus einem (R, d)-Tensor.
func gatherRows(t *ml.Tensor, idcs []int) *ml.Tensor {
	d := t.Dim(1)
	out := ml.NewTensor(len(idcs), d)
	for i, idx := range idcs {
		copy(out.Data()[i*d:(i+1)*d], t.Data()[idx*d:(idx+1)*d])
	}
	return out
}

// scatterRows schreibt die Zeilen von src an die Positionen idcs in dst.
func scatterRows(dst, src *ml.Tensor, idcs []int) {
	d := dst.Dim(1)
	for i, idx := range idcs {
		copy(dst.Data()[idx*d:(idx+1)*d], src.Data()[i*d:(i+1)*d])
	}
}

// Forward fusioniert alle Szenen des Batches und liefert aktualisierte
// Aktoren, Fahrspuren und den CLS-Szenenkontext. Die Szenen sind
// unabhaengig und laufen parallel; Aktor- und Fahrspurzeilen landen
// wieder an ihren urspruenglichen Batch-Positionen, der CLS-Kontext
// folgt der Szenenreihenfolge.
func (f *FusionNet) Forward(actors *ml.Tensor, actorIdcs [][]int, lanes *ml.Tensor, laneIdcs [][]int, rpes []model.SceneRPE) (*ml.Tensor, *ml.Tensor, *ml.Tensor) {
	pActors := f.projActor.forward(actors)
	pLanes := f.projLane.forward(lanes)

	results := make([]sceneResult, len(actorIdcs))
	var g errgroup.Group
	for s := range actorIdcs {
		s := s
		g.Go(func() error {
			results[s] = f.fuseOne(pActors, actorIdcs[s], pLanes, laneIdcs[s], rpes[s])
			return nil
		})
	}
	// Die Szenen-Funktionen liefern nie Fehler; Wait dient der Synchronisation.
	_ = g.Wait()

	outActors := ml.NewTensor(actors.Dim(0), f.dEmbed)
	outLanes := ml.NewTensor(lanes.Dim(0), f.dEmbed)
	clsParts := make([]*ml.Tensor, len(results))
	for s, r := range results {
		scatterRows(outActors, r.actors, actorIdcs[s])
		scatterRows(outLanes, r.lanes, laneIdcs[s])
		clsParts[s] = r.cls
	}
	return outActors, outLanes, ml.Concat(0, clsParts...)
}

// fuseOne fusioniert eine einzelne Szene.
func (f *FusionNet) fuseOne(pActors *ml.Tensor, aIdcs []int, pLanes *ml.Tensor, lIdcs []int, rpe model.SceneRPE) sceneResult {
	nA, nL := len(aIdcs), len(lIdcs)
	tokens := ml.Concat(0,
		gatherRows(pActors, aIdcs),
		gatherRows(pLanes, lIdcs),
		ml.NewTensor(1, f.dEmbed), // CLS startet als Nullvektor
	)
	n := nA + nL + 1

	// RPE projizieren und in den (N, N)-Block einbetten; die CLS-Zeile und
	// -Spalte bleiben null ("keine Relation"), es wird nicht maskiert.
	projected := f.projRPE.forward(rpe.Scene.Permute(1, 2, 0))
	edge := ml.NewTensor(n, n, f.dRPE)
	for i := 0; i < n-1; i++ {
		src := projected.Data()[i*(n-1)*f.dRPE : (i+1)*(n-1)*f.dRPE]
		dst := edge.Data()[i*n*f.dRPE : i*n*f.dRPE+(n-1)*f.dRPE]
		copy(dst, src)
	}

	out := f.fuseScene.forward(tokens, edge, nil)
	return sceneResult{
		actors: out.Slice(0, 0, nA),
		lanes:  out.Slice(0, nA, n-1),
		cls:    out.Slice(0, n-1, n),
	}
}
