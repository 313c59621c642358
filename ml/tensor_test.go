// MODUL: tensor_test
// ZWECK: Tests fuer Tensor-Grundoperationen
// INPUT: Synthetische Tensoren
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing
// HINWEISE: Testet Shape-Operationen, Slice, Concat und Permute

package ml

import (
	"testing"
)

func TestNewTensorShape(t *testing.T) {
	x := NewTensor(2, 3, 4)
	if x.Rank() != 3 {
		t.Fatalf("Rang = %d, erwartet 3", x.Rank())
	}
	if x.Len() != 24 {
		t.Errorf("Laenge = %d, erwartet 24", x.Len())
	}
	if x.Dim(1) != 3 {
		t.Errorf("Dim(1) = %d, erwartet 3", x.Dim(1))
	}
}

func TestAtSetRoundtrip(t *testing.T) {
	x := NewTensor(2, 3)
	x.Set(1.5, 1, 2)
	if got := x.At(1, 2); got != 1.5 {
		t.Errorf("At(1,2) = %f, erwartet 1.5", got)
	}
	// Row-major: (1,2) liegt am flachen Index 5
	if got := x.Data()[5]; got != 1.5 {
		t.Errorf("Data()[5] = %f, erwartet 1.5", got)
	}
}

func TestReshapeSharesData(t *testing.T) {
	x := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	y := x.Reshape(3, 2)
	y.Set(9, 0, 0)
	if x.At(0, 0) != 9 {
		t.Error("Reshape muss den Speicher teilen")
	}
}

func TestSlice(t *testing.T) {
	x := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	s := x.Slice(0, 1, 3)
	if s.Dim(0) != 2 || s.Dim(1) != 2 {
		t.Fatalf("Slice-Shape = %v, erwartet [2 2]", s.Shape())
	}
	if s.At(0, 0) != 3 || s.At(1, 1) != 6 {
		t.Errorf("Slice-Inhalt falsch: %v", s.Data())
	}

	// Slice ueber die letzte Dimension
	c := x.Slice(1, 1, 2)
	want := []float64{2, 4, 6}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Spalten-Slice[%d] = %f, erwartet %f", i, v, want[i])
		}
	}
}

func TestConcatDim0(t *testing.T) {
	a := NewTensorFrom([]float64{1, 2}, 1, 2)
	b := NewTensorFrom([]float64{3, 4, 5, 6}, 2, 2)
	c := Concat(0, a, b)
	if c.Dim(0) != 3 || c.Dim(1) != 2 {
		t.Fatalf("Concat-Shape = %v, erwartet [3 2]", c.Shape())
	}
	want := []float64{1, 2, 3, 4, 5, 6}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Concat[%d] = %f, erwartet %f", i, v, want[i])
		}
	}
}

func TestConcatLastDim(t *testing.T) {
	a := NewTensorFrom([]float64{1, 2}, 2, 1)
	b := NewTensorFrom([]float64{3, 4}, 2, 1)
	c := Concat(1, a, b)
	if c.At(0, 0) != 1 || c.At(0, 1) != 3 || c.At(1, 0) != 2 || c.At(1, 1) != 4 {
		t.Errorf("Concat entlang letzter Dimension falsch: %v", c.Data())
	}
}

func TestConcatEmpty(t *testing.T) {
	a := NewTensor(0, 3)
	b := NewTensorFrom([]float64{1, 2, 3}, 1, 3)
	c := Concat(0, a, b)
	if c.Dim(0) != 1 {
		t.Errorf("Concat mit leerem Tensor: Shape %v", c.Shape())
	}
}

func TestPermute(t *testing.T) {
	// (2, 3) -> (3, 2) Transposition
	x := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	y := x.Permute(1, 0)
	if y.Dim(0) != 3 || y.Dim(1) != 2 {
		t.Fatalf("Permute-Shape = %v, erwartet [3 2]", y.Shape())
	}
	if y.At(0, 1) != 4 || y.At(2, 0) != 3 {
		t.Errorf("Permute-Inhalt falsch: %v", y.Data())
	}
}

func TestPermuteRank3(t *testing.T) {
	// (F, N, M) -> (N, M, F) wie bei der RPE-Aufbereitung
	x := NewTensor(2, 3, 3)
	x.Set(7, 1, 2, 0)
	y := x.Permute(1, 2, 0)
	if y.Dim(0) != 3 || y.Dim(1) != 3 || y.Dim(2) != 2 {
		t.Fatalf("Permute-Shape = %v, erwartet [3 3 2]", y.Shape())
	}
	if y.At(2, 0, 1) != 7 {
		t.Errorf("Permute-Inhalt falsch: At(2,0,1) = %f", y.At(2, 0, 1))
	}
}

func TestMatrixSharesData(t *testing.T) {
	x := NewTensorFrom([]float64{1, 2, 3, 4}, 2, 2)
	m := x.Matrix()
	m.Set(0, 0, 9)
	if x.At(0, 0) != 9 {
		t.Error("Matrix() muss den Speicher teilen")
	}
}
