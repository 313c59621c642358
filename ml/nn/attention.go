// Modul: attention.go
// Beschreibung: Multi-Head Attention
// Hauptstrukturen:
//   - MultiheadAttention: skaliertes Skalarprodukt ueber mehrere Koepfe
//
// Query, Key und Value sind Rang-2 Sequenzen (L, d). Ein optionaler
// Key-Mask blendet einzelne Schluessel vor der Softmax aus.

package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mindscene/mindscene/ml"
)

// MultiheadAttention ist eine skalierte Skalarprodukt-Attention
// mit getrennten Q/K/V-Projektionen und Ausgabeprojektion.
type MultiheadAttention struct {
	NumHeads int
	HeadDim  int

	Query  *Linear
	Key    *Linear
	Value  *Linear
	Output *Linear
}

// NewMultiheadAttention erzeugt eine Attention mit numHeads Koepfen.
// modelDim muss durch numHeads teilbar sein.
func NewMultiheadAttention(rng *rand.Rand, modelDim, numHeads int) *MultiheadAttention {
	if modelDim%numHeads != 0 {
		panic(fmt.Sprintf("nn: Modelldimension %d nicht durch %d Koepfe teilbar", modelDim, numHeads))
	}
	return &MultiheadAttention{
		NumHeads: numHeads,
		HeadDim:  modelDim / numHeads,
		Query:    NewLinear(rng, modelDim, modelDim),
		Key:      NewLinear(rng, modelDim, modelDim),
		Value:    NewLinear(rng, modelDim, modelDim),
		Output:   NewLinear(rng, modelDim, modelDim),
	}
}

// Forward berechnet Attention von query (Lq, d) ueber key/value (Lk, d).
// keyMask blendet Schluessel j mit keyMask[j]=true aus; nil = keine Maske.
func (a *MultiheadAttention) Forward(query, key, value *ml.Tensor, keyMask []bool) *ml.Tensor {
	lq := query.Dim(0)
	lk := key.Dim(0)
	d := a.NumHeads * a.HeadDim

	q := a.Query.Forward(query).Data()
	k := a.Key.Forward(key).Data()
	v := a.Value.Forward(value).Data()

	ctx := ml.NewTensor(lq, d)
	ctxData := ctx.Data()
	scale := 1 / math.Sqrt(float64(a.HeadDim))
	scores := make([]float64, lk)

	for h := 0; h < a.NumHeads; h++ {
		off := h * a.HeadDim
		for i := 0; i < lq; i++ {
			qRow := q[i*d+off : i*d+off+a.HeadDim]
			for j := 0; j < lk; j++ {
				if keyMask != nil && keyMask[j] {
					scores[j] = math.Inf(-1)
					continue
				}
				kRow := k[j*d+off : j*d+off+a.HeadDim]
				dot := 0.0
				for x := range qRow {
					dot += qRow[x] * kRow[x]
				}
				scores[j] = dot * scale
			}
			softmaxInPlace(scores)
			out := ctxData[i*d+off : i*d+off+a.HeadDim]
			for j := 0; j < lk; j++ {
				w := scores[j]
				if w == 0 {
					continue
				}
				vRow := v[j*d+off : j*d+off+a.HeadDim]
				for x := range out {
					out[x] += w * vRow[x]
				}
			}
		}
	}
	return a.Output.Forward(ctx)
}

// softmaxInPlace normalisiert scores zu einer Verteilung.
// -Inf-Eintraege (maskierte Schluessel) erhalten Gewicht 0.
func softmaxInPlace(scores []float64) {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	sum := 0.0
	for i, s := range scores {
		if math.IsInf(s, -1) {
			scores[i] = 0
			continue
		}
		scores[i] = math.Exp(s - max)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
}
