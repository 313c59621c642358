// Modul: actor.go
// Beschreibung: Aktor-Merkmalextraktor (zeitliche Conv-Pyramide)
// Hauptstrukturen:
//   - ActorNet: mehrskalige 1D-Conv-Pyramide mit Top-Down-Fusion
//   - res1d: residualer 1D-Conv-Block mit GroupNorm
//
// Die Pyramide halbiert ab Stufe 1 die Zeitaufloesung und verdoppelt die
// Kanalbreite (Start 32). Laterale Projektionen bringen jede Stufe auf die
// gemeinsame Breite; der Top-Down-Pfad interpoliert linear (Faktor 2) und
// addiert von grob nach fein. Die Ausgabe ist der letzte Zeitschritt.

package scene

import (
	"math/rand"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/ml/nn"
)

// convBlock ist Conv1d + GroupNorm mit optionaler ReLU-Aktivierung.
type convBlock struct {
	conv *nn.Conv1d
	norm *nn.GroupNorm
	act  bool
}

func newConvBlock(rng *rand.Rand, in, out, kernel, stride int, act bool) *convBlock {
	return &convBlock{
		conv: nn.NewConv1d(rng, in, out, kernel, stride, kernel/2),
		norm: nn.NewGroupNorm(1, out),
		act:  act,
	}
}

func (b *convBlock) forward(x *ml.Tensor) *ml.Tensor {
	x = b.norm.Forward(b.conv.Forward(x))
	if b.act {
		x = nn.ReLU(x)
	}
	return x
}

// res1d ist ein residualer Block aus zwei 3er-Faltungen mit GroupNorm.
// Bei Stride- oder Breitenwechsel gleicht eine 1er-Faltung den Skip-Pfad an.
type res1d struct {
	conv1, conv2 *nn.Conv1d
	norm1, norm2 *nn.GroupNorm
	down         *convBlock // nil, wenn der Skip-Pfad identisch durchlaeuft
}

func newRes1d(rng *rand.Rand, in, out, stride int) *res1d {
	r := &res1d{
		conv1: nn.NewConv1d(rng, in, out, 3, stride, 1),
		conv2: nn.NewConv1d(rng, out, out, 3, 1, 1),
		norm1: nn.NewGroupNorm(1, out),
		norm2: nn.NewGroupNorm(1, out),
	}
	if stride != 1 || in != out {
		r.down = newConvBlock(rng, in, out, 1, stride, false)
	}
	return r
}

func (r *res1d) forward(x *ml.Tensor) *ml.Tensor {
	out := nn.ReLU(r.norm1.Forward(r.conv1.Forward(x)))
	out = r.norm2.Forward(r.conv2.Forward(out))
	skip := x
	if r.down != nil {
		skip = r.down.forward(x)
	}
	return nn.ReLU(ml.Add(out, skip))
}

// ActorNet kodiert Aktor-Historien (A, InActor, T) zu Embeddings (A, DActor).
type ActorNet struct {
	groups  [][]*res1d
	lateral []*convBlock
	output  *res1d
}

// newActorNet baut die Pyramide mit nFpnScale Stufen auf.
func newActorNet(rng *rand.Rand, opts Options) *ActorNet {
	a := &ActorNet{}
	in := opts.inActor
	for s := 0; s < opts.nFpnScale; s++ {
		out := 32 << s
		stride := 2
		if s == 0 {
			stride = 1
		}
		group := []*res1d{
			newRes1d(rng, in, out, stride),
			newRes1d(rng, out, out, 1),
		}
		a.groups = append(a.groups, group)
		a.lateral = append(a.lateral, newConvBlock(rng, out, opts.dActor, 3, 1, false))
		in = out
	}
	a.output = newRes1d(rng, opts.dActor, opts.dActor, 1)
	return a
}

// Forward liefert ein Embedding pro Aktor.
func (a *ActorNet) Forward(actors *ml.Tensor) *ml.Tensor {
	out := actors
	outputs := make([]*ml.Tensor, 0, len(a.groups))
	for _, group := range a.groups {
		for _, block := range group {
			out = block.forward(out)
		}
		outputs = append(outputs, out)
	}

	out = a.lateral[len(outputs)-1].forward(outputs[len(outputs)-1])
	for i := len(outputs) - 2; i >= 0; i-- {
		out = ml.Upsample2Linear(out)
		out = ml.Add(out, a.lateral[i].forward(outputs[i]))
	}

	out = a.output.forward(out)
	t := out.Dim(2)
	return out.Slice(2, t-1, t).Reshape(out.Dim(0), out.Dim(1))
}
