// Modul: basis.go
// Beschreibung: Trajektorien-Parametrisierungen des Decoders
// Hauptstrukturen:
//   - trajectoryBasis: geschlossene Auswahl {bezier, monomial, raw}
//   - bezierBasis: Bernstein-Basis ueber 8 Kontrollpunkte
//   - monomialBasis: Potenzbasis ueber 8 Koeffizienten
//   - rawBasis: direkte Wegpunkte mit zentralen Differenzen
//
// Jede Parametrisierung besitzt ihre einmal vorberechneten Basismatrizen
// und ihre eigene Ableitungsstrategie. Die Matrizen werden bei der
// Konstruktion gebaut und danach nur gelesen.

package scene

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/model"
)

// trajectoryBasis wertet Positions- und Geschwindigkeitsverlaeufe aus
// regressierten Parametern (..., paramLen, c) aus.
type trajectoryBasis interface {
	// paramLen ist die Anzahl Stuetzpunkte pro Modus.
	paramLen() int
	// position liefert den Verlauf (..., steps, c).
	position(p *ml.Tensor) *ml.Tensor
	// velocity leitet den Positionsverlauf ab.
	velocity(p *ml.Tensor) *ml.Tensor
	// covVelocity leitet den Kovarianzverlauf ab.
	covVelocity(p *ml.Tensor) *ml.Tensor
	// emitParams meldet, ob die Rohparameter in der Aux-Ausgabe erscheinen.
	emitParams() bool
}

// newTrajectoryBasis waehlt die Parametrisierung; ein unbekannter Wert ist
// ein endgueltiger Konstruktionsfehler.
func newTrajectoryBasis(paramOut model.ParamOut, steps int) (trajectoryBasis, error) {
	switch paramOut {
	case model.ParamOutBezier:
		return newBezierBasis(steps), nil
	case model.ParamOutMonomial:
		return newMonomialBasis(steps), nil
	case model.ParamOutNone:
		return rawBasis{steps: steps}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedParamOut, paramOut)
	}
}

// linspace liefert steps Stuetzstellen in [0, 1] einschliesslich der Raender.
func linspace(steps int) []float64 {
	ts := make([]float64, steps)
	if steps == 1 {
		return ts
	}
	for i := range ts {
		ts[i] = float64(i) / float64(steps-1)
	}
	return ts
}

// bezierBasis wertet eine Bezier-Kurve vom Grad nOrder aus.
type bezierBasis struct {
	steps int
	matT  *ml.Tensor // (steps, nOrder+1) Bernstein-Basis
	matTp *ml.Tensor // (steps, nOrder) gradskalierte Ableitungsbasis
}

func newBezierBasis(steps int) *bezierBasis {
	ts := linspace(steps)
	matT := ml.NewTensor(steps, nOrder+1)
	matTp := ml.NewTensor(steps, nOrder)
	for s, t := range ts {
		for i := 0; i <= nOrder; i++ {
			c := float64(combin.Binomial(nOrder, i))
			matT.Set(c*pow(1-t, nOrder-i)*pow(t, i), s, i)
		}
		for i := 0; i < nOrder; i++ {
			c := float64(nOrder) * float64(combin.Binomial(nOrder-1, i))
			matTp.Set(c*pow(1-t, nOrder-1-i)*pow(t, i), s, i)
		}
	}
	return &bezierBasis{steps: steps, matT: matT, matTp: matTp}
}

func (b *bezierBasis) paramLen() int { return nOrder + 1 }
func (b *bezierBasis) emitParams() bool { return true }

func (b *bezierBasis) position(p *ml.Tensor) *ml.Tensor {
	return ml.BatchedMatMul(b.matT, p)
}

// velocity verwendet die Differenzen der Kontrollpunkte; die Skalierung
// setzt einen festen Zeitschritt von 0.1 s voraus.
func (b *bezierBasis) velocity(p *ml.Tensor) *ml.Tensor {
	diff := ml.DiffAlong(p, p.Rank()-2)
	return ml.BatchedMatMul(b.matTp, diff).Scale(1 / (float64(b.steps) * timeStep))
}

func (b *bezierBasis) covVelocity(p *ml.Tensor) *ml.Tensor {
	return b.velocity(p)
}

// monomialBasis wertet ein Polynom in der Potenzbasis aus.
type monomialBasis struct {
	steps int
	matT  *ml.Tensor // (steps, nOrder+1) Potenzen t^i
	matTp *ml.Tensor // (steps, nOrder) Ableitungszeilen (i+1)*t^i
}

func newMonomialBasis(steps int) *monomialBasis {
	ts := linspace(steps)
	matT := ml.NewTensor(steps, nOrder+1)
	matTp := ml.NewTensor(steps, nOrder)
	for s, t := range ts {
		for i := 0; i <= nOrder; i++ {
			matT.Set(pow(t, i), s, i)
		}
		for i := 0; i < nOrder; i++ {
			matTp.Set(float64(i+1)*pow(t, i), s, i)
		}
	}
	return &monomialBasis{steps: steps, matT: matT, matTp: matTp}
}

func (b *monomialBasis) paramLen() int { return nOrder + 1 }
func (b *monomialBasis) emitParams() bool { return true }

func (b *monomialBasis) position(p *ml.Tensor) *ml.Tensor {
	return ml.BatchedMatMul(b.matT, p)
}

// velocity wendet die Ableitungsbasis direkt auf die Koeffizienten ab dem
// linearen Term an (exakte analytische Ableitung).
func (b *monomialBasis) velocity(p *ml.Tensor) *ml.Tensor {
	dim := p.Rank() - 2
	coeffs := p.Slice(dim, 1, p.Dim(dim))
	return ml.BatchedMatMul(b.matTp, coeffs).Scale(1 / (float64(b.steps) * timeStep))
}

// covVelocity verwendet Koeffizienten-Differenzen wie die Bezier-Basis.
func (b *monomialBasis) covVelocity(p *ml.Tensor) *ml.Tensor {
	diff := ml.DiffAlong(p, p.Rank()-2)
	return ml.BatchedMatMul(b.matTp, diff).Scale(1 / (float64(b.steps) * timeStep))
}

// rawBasis behandelt die Parameter als Wegpunkte pro Zeitschritt.
type rawBasis struct {
	steps int
}

func (b rawBasis) paramLen() int { return b.steps }
func (b rawBasis) emitParams() bool { return false }

func (b rawBasis) position(p *ml.Tensor) *ml.Tensor { return p.Clone() }

// velocity bildet zentrale Differenzen ueber die Zeitachse
// (einseitig an den Raendern).
func (b rawBasis) velocity(p *ml.Tensor) *ml.Tensor {
	return ml.GradientAlong(p, p.Rank()-2).Scale(1 / timeStep)
}

func (b rawBasis) covVelocity(p *ml.Tensor) *ml.Tensor {
	return b.velocity(p)
}

// pow ist eine Ganzzahl-Potenz mit 0^0 = 1.
func pow(x float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= x
	}
	return out
}
