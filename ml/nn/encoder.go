// Modul: encoder.go
// Beschreibung: Transformer-Encoder (Post-Norm)
// Hauptstrukturen:
//   - TransformerEncoderLayer: Self-Attention + Feedforward mit Residuen
//   - TransformerEncoder: Stapel von Encoder-Schichten

package nn

import (
	"math/rand"

	"github.com/mindscene/mindscene/ml"
)

// TransformerEncoderLayer ist eine Post-Norm Encoder-Schicht:
// x = norm1(x + attn(x)); x = norm2(x + ffn(x)).
type TransformerEncoderLayer struct {
	SelfAttn *MultiheadAttention
	Linear1  *Linear
	Linear2  *Linear
	Norm1    *LayerNorm
	Norm2    *LayerNorm
}

// NewTransformerEncoderLayer erzeugt eine Encoder-Schicht.
func NewTransformerEncoderLayer(rng *rand.Rand, modelDim, numHeads, ffnDim int) *TransformerEncoderLayer {
	return &TransformerEncoderLayer{
		SelfAttn: NewMultiheadAttention(rng, modelDim, numHeads),
		Linear1:  NewLinear(rng, modelDim, ffnDim),
		Linear2:  NewLinear(rng, ffnDim, modelDim),
		Norm1:    NewLayerNorm(modelDim),
		Norm2:    NewLayerNorm(modelDim),
	}
}

// Forward verarbeitet eine Sequenz (L, d).
func (l *TransformerEncoderLayer) Forward(x *ml.Tensor) *ml.Tensor {
	attn := l.SelfAttn.Forward(x, x, x, nil)
	x = l.Norm1.Forward(ml.Add(x, attn))
	ffn := l.Linear2.Forward(ReLU(l.Linear1.Forward(x)))
	return l.Norm2.Forward(ml.Add(x, ffn))
}

// TransformerEncoder stapelt mehrere Encoder-Schichten.
type TransformerEncoder struct {
	Layers []*TransformerEncoderLayer
}

// NewTransformerEncoder erzeugt einen Encoder mit numLayers Schichten.
func NewTransformerEncoder(rng *rand.Rand, numLayers, modelDim, numHeads, ffnDim int) *TransformerEncoder {
	layers := make([]*TransformerEncoderLayer, numLayers)
	for i := range layers {
		layers[i] = NewTransformerEncoderLayer(rng, modelDim, numHeads, ffnDim)
	}
	return &TransformerEncoder{Layers: layers}
}

// Forward verarbeitet eine Sequenz (L, d) durch alle Schichten.
func (e *TransformerEncoder) Forward(x *ml.Tensor) *ml.Tensor {
	for _, l := range e.Layers {
		x = l.Forward(x)
	}
	return x
}
