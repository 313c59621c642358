// Modul: decoder.go
// Beschreibung: Multi-modaler Trajektorien-Decoder
// Hauptstrukturen:
//   - SceneDecoder: K Hypothesen mit Wahrscheinlichkeiten pro Zielaktor
//   - Prediction/Aux: Ausgabe pro Szene
//
// Der Szenenkontext wird in K Modus-Vektoren expandiert und per
// Selbstattention ueber die Modi verfeinert (verhindert doppelte Modi).
// Aktor-Embeddings werden analog expandiert, ohne Modus-Attention.
// Modus 0 erhaelt zusaetzlich den Ziel-Bias aus Zielknoten-Merkmal und
// Ziel-RPE und ist damit die fest verankerte zielkonditionierte Hypothese.

package scene

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/ml/nn"
)

// Aux enthaelt die abgeleiteten Verlaeufe einer Szene.
type Aux struct {
	Vel    *ml.Tensor // (A, K, steps, 2) Geschwindigkeit
	CovVel *ml.Tensor // (A, K, steps, 2) Varianz-Geschwindigkeit
	Params *ml.Tensor // (A, K, P, 5) Rohparameter; nil bei Wegpunkt-Ausgabe
}

// Prediction ist die Decoder-Ausgabe einer Szene. Die Zeilenreihenfolge
// entspricht der Aktor-Indexliste der Szene.
type Prediction struct {
	Probs *ml.Tensor // (A, K), jede Zeile summiert zu 1
	Traj  *ml.Tensor // (A, K, steps, 4): x, y, var_x, var_y
	Aux   Aux
}

// SceneDecoder expandiert fusionierte Embeddings in K Trajektorien-Modi.
type SceneDecoder struct {
	hidden   int
	numModes int
	basis    trajectoryBasis

	actorProj *mlp
	ctxProj   *mlp
	ctxSAT    *nn.TransformerEncoder

	projRPE *projection
	projTgt *mlp

	clsHead *mlp
	regHead *mlp
}

func newSceneDecoder(rng *rand.Rand, opts Options) (*SceneDecoder, error) {
	basis, err := newTrajectoryBasis(opts.paramOut, opts.predLen)
	if err != nil {
		return nil, err
	}

	d := opts.dEmbed
	dimMM := d * opts.numModes
	dimInter := dimMM / 2

	return &SceneDecoder{
		hidden:    d,
		numModes:  opts.numModes,
		basis:     basis,
		actorProj: newMLP(rng, d, dimInter, dimMM),
		ctxProj:   newMLP(rng, d, dimInter, dimMM),
		ctxSAT:    nn.NewTransformerEncoder(rng, decoderLayers, d, decoderHeads, d*decoderFFNFactor),
		projRPE:   newProjection(rng, opts.dRPETgt, d),
		projTgt:   newMLP(rng, 2*d, d, d),
		clsHead:   newMLPWithHead(rng, 1, d, d, d),
		regHead:   newMLPWithHead(rng, basis.paramLen()*5, d, d, d),
	}, nil
}

// Forward dekodiert alle Szenen des Batches. ctx ist der CLS-Kontext
// (Szenen, d), actors die fusionierten Aktor-Embeddings, tgtFeat das
// geteilte Zielknoten-Embedding und tgtRPE die rohen Ziel-RPE-Merkmale.
func (dec *SceneDecoder) Forward(ctx, actors *ml.Tensor, actorIdcs [][]int, tgtFeat, tgtRPE *ml.Tensor) []Prediction {
	tgt := dec.projTgt.forward(ml.Concat(1, tgtFeat, dec.projRPE.forward(tgtRPE)))

	results := make([]Prediction, len(actorIdcs))
	var g errgroup.Group
	for s := range actorIdcs {
		s := s
		g.Go(func() error {
			results[s] = dec.decodeOne(ctx.Slice(0, s, s+1), gatherRows(actors, actorIdcs[s]), tgt.Slice(0, s, s+1))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// decodeOne dekodiert eine Szene mit A Zielaktoren.
func (dec *SceneDecoder) decodeOne(ctxRow, group, tgtRow *ml.Tensor) Prediction {
	d := dec.hidden
	k := dec.numModes
	a := group.Dim(0)

	// Kontext in K Modi expandieren und ueber die Modi verfeinern.
	ctxModes := dec.ctxProj.forward(ctxRow).Reshape(k, d)
	ctxModes = dec.ctxSAT.Forward(ctxModes)

	// Aktoren expandieren; nur der Kontextpfad bekommt Modus-Attention.
	actorModes := dec.actorProj.forward(group).Reshape(a, k, d)

	// embed = Kontext + Aktor + Ziel-Bias (nur Modus 0).
	embed := ml.NewTensor(a, k, d)
	embedData := embed.Data()
	ctxData := ctxModes.Data()
	actorData := actorModes.Data()
	tgtData := tgtRow.Data()
	for i := 0; i < a; i++ {
		for m := 0; m < k; m++ {
			base := (i*k + m) * d
			for x := 0; x < d; x++ {
				v := ctxData[m*d+x] + actorData[base+x]
				if m == 0 {
					v += tgtData[x]
				}
				embedData[base+x] = v
			}
		}
	}

	// Klassifikation aus dem Kontextpfad, pro Aktorzeile ausgegeben.
	logits := dec.clsHead.forward(ctxModes).Reshape(1, k)
	probRow := ml.Softmax(logits)
	probs := ml.NewTensor(a, k)
	for i := 0; i < a; i++ {
		copy(probs.Data()[i*k:(i+1)*k], probRow.Data())
	}

	// Regression: (A, K, P, 5); Kanaele 0-1 Position, 2-4 Log-Varianz,
	// von der nur die ersten beiden Kanaele in die Ausgabe eingehen.
	params := dec.regHead.forward(embed).Reshape(a, k, dec.basis.paramLen(), 5)
	posParams := params.Slice(3, 0, 2)
	covParams := params.Slice(3, 2, 4)

	pos := dec.basis.position(posParams)
	cov := dec.basis.position(covParams)
	vel := dec.basis.velocity(posParams)
	covVel := dec.basis.covVelocity(covParams)

	traj := ml.Concat(3, pos, cov.Exp())

	aux := Aux{Vel: vel, CovVel: covVel}
	if dec.basis.emitParams() {
		aux.Params = params
	}
	return Prediction{Probs: probs, Traj: traj, Aux: aux}
}
