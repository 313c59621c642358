// MODUL: layers_test
// ZWECK: Tests fuer die Netzwerkschichten
// INPUT: Deterministisch initialisierte Schichten und Beispieltensoren
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing, testify, math/rand
// HINWEISE: Prueft Shapes, Normalisierungsmomente, Faltungswerte und
//           Attention-Eigenschaften (identische Schluessel, Maske)

package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindscene/mindscene/ml"
)

func testRNG() *rand.Rand { return rand.New(rand.NewSource(42)) }

func TestLinearShape(t *testing.T) {
	l := NewLinear(testRNG(), 4, 6)
	x := ml.NewTensor(2, 3, 4)
	y := l.Forward(x)
	require.Equal(t, []int{2, 3, 6}, y.Shape(), "Linear muss nur die letzte Dimension aendern")
}

func TestLinearKnownValues(t *testing.T) {
	l := &Linear{
		Weight: ml.NewTensorFrom([]float64{1, 0, 0, 1, 1, 1}, 3, 2),
		Bias:   ml.NewTensorFrom([]float64{10, 20}, 2),
	}
	x := ml.NewTensorFrom([]float64{1, 2, 3}, 1, 3)
	y := l.Forward(x)
	assert.InDelta(t, 14.0, y.At(0, 0), 1e-12)
	assert.InDelta(t, 25.0, y.At(0, 1), 1e-12)
}

func TestLinearEmptyBatch(t *testing.T) {
	l := NewLinear(testRNG(), 4, 6)
	x := ml.NewTensor(0, 4)
	y := l.Forward(x)
	require.Equal(t, []int{0, 6}, y.Shape(), "leerer Batch muss leere Ausgabe liefern")
}

func TestLayerNormMoments(t *testing.T) {
	ln := NewLayerNorm(8)
	rng := testRNG()
	x := ml.NewTensor(3, 8)
	for i := range x.Data() {
		x.Data()[i] = rng.NormFloat64()*5 + 3
	}
	y := ln.Forward(x)
	for r := 0; r < 3; r++ {
		mean, variance := 0.0, 0.0
		for c := 0; c < 8; c++ {
			mean += y.At(r, c)
		}
		mean /= 8
		for c := 0; c < 8; c++ {
			d := y.At(r, c) - mean
			variance += d * d
		}
		variance /= 8
		assert.InDelta(t, 0.0, mean, 1e-9, "Zeile %d: Mittelwert nicht 0", r)
		assert.InDelta(t, 1.0, variance, 1e-3, "Zeile %d: Varianz nicht 1", r)
	}
}

func TestGroupNormSingleGroupMoments(t *testing.T) {
	gn := NewGroupNorm(1, 4)
	rng := testRNG()
	x := ml.NewTensor(2, 4, 5)
	for i := range x.Data() {
		x.Data()[i] = rng.NormFloat64() * 3
	}
	y := gn.Forward(x)
	for s := 0; s < 2; s++ {
		mean, variance := 0.0, 0.0
		for c := 0; c < 4; c++ {
			for p := 0; p < 5; p++ {
				mean += y.At(s, c, p)
			}
		}
		mean /= 20
		for c := 0; c < 4; c++ {
			for p := 0; p < 5; p++ {
				d := y.At(s, c, p) - mean
				variance += d * d
			}
		}
		variance /= 20
		assert.InDelta(t, 0.0, mean, 1e-9, "Sample %d: Mittelwert nicht 0", s)
		assert.InDelta(t, 1.0, variance, 1e-3, "Sample %d: Varianz nicht 1", s)
	}
}

func TestConv1dIdentityKernel(t *testing.T) {
	// Kernel [0, 1, 0] mit Padding 1 reproduziert die Eingabe
	c := &Conv1d{
		Weight:  ml.NewTensorFrom([]float64{0, 1, 0}, 1, 1, 3),
		Stride:  1,
		Padding: 1,
	}
	x := ml.NewTensorFrom([]float64{1, 2, 3, 4}, 1, 1, 4)
	y := c.Forward(x)
	require.Equal(t, []int{1, 1, 4}, y.Shape())
	assert.Equal(t, x.Data(), y.Data())
}

func TestConv1dStrideShape(t *testing.T) {
	c := NewConv1d(testRNG(), 3, 8, 3, 2, 1)
	x := ml.NewTensor(2, 3, 20)
	y := c.Forward(x)
	// (20 + 2 - 3)/2 + 1 = 10
	require.Equal(t, []int{2, 8, 10}, y.Shape())
}

func TestAttentionIdenticalKeys(t *testing.T) {
	// Bei identischen Schluesseln ist die Attention-Ausgabe unabhaengig
	// von der Query gleich dem projizierten Value.
	a := NewMultiheadAttention(testRNG(), 8, 2)
	q1 := ml.NewTensor(1, 8)
	q2 := ml.NewTensor(1, 8)
	for i := range q2.Data() {
		q2.Data()[i] = float64(i)
	}
	kv := ml.NewTensor(4, 8)
	for j := 0; j < 4; j++ {
		for i := 0; i < 8; i++ {
			kv.Set(math.Cos(float64(i)), j, i)
		}
	}

	y1 := a.Forward(q1, kv, kv, nil)
	y2 := a.Forward(q2, kv, kv, nil)
	for i := 0; i < 8; i++ {
		assert.InDelta(t, y1.At(0, i), y2.At(0, i), 1e-9,
			"identische Schluessel muessen query-unabhaengig sein")
	}
}

func TestAttentionMaskBlocksKeys(t *testing.T) {
	// Maskierte Schluessel duerfen die Ausgabe nicht beeinflussen:
	// Maske auf Keys 2..3 muss dasselbe liefern wie nur Keys 0..1.
	a := NewMultiheadAttention(testRNG(), 8, 2)
	q := ml.NewTensor(2, 8)
	for i := range q.Data() {
		q.Data()[i] = float64(i) * 0.1
	}
	kv := ml.NewTensor(4, 8)
	for i := range kv.Data() {
		kv.Data()[i] = math.Sin(float64(i))
	}

	masked := a.Forward(q, kv, kv, []bool{false, false, true, true})
	short := a.Forward(q, kv.Slice(0, 0, 2), kv.Slice(0, 0, 2), nil)
	for i := range masked.Data() {
		assert.InDelta(t, short.Data()[i], masked.Data()[i], 1e-9,
			"maskierte Schluessel muessen wirkungslos sein")
	}
}

func TestEncoderShapeAndFinite(t *testing.T) {
	enc := NewTransformerEncoder(testRNG(), 2, 8, 2, 16)
	x := ml.NewTensor(5, 8)
	for i := range x.Data() {
		x.Data()[i] = float64(i%7) - 3
	}
	y := enc.Forward(x)
	require.Equal(t, []int{5, 8}, y.Shape())
	for i, v := range y.Data() {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "Ausgabe[%d] nicht endlich", i)
	}
}

func TestXavierUniformBounds(t *testing.T) {
	w := ml.NewTensor(16, 16)
	XavierUniform(testRNG(), w, 16, 16)
	limit := math.Sqrt(6.0 / 32.0)
	nonzero := false
	for _, v := range w.Data() {
		require.LessOrEqual(t, math.Abs(v), limit, "Gewicht ausserhalb der Xavier-Grenzen")
		if v != 0 {
			nonzero = true
		}
	}
	assert.True(t, nonzero, "Initialisierung darf nicht ueberall 0 sein")
}
