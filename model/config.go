// Package model - Konfiguration und Eingabe-Kontrakt
//
// Dieses Paket definiert die Konstruktionskonfiguration der Netzwerke
// sowie den typisierten Eingabe-Kontrakt eines Batches. Die Validierung
// schlaegt frueh und endgueltig fehl: eine unbekannte Parametrisierung
// ist ein Konstruktionsfehler, verletzte Tensor-Shapes sind Fehler des
// Aufrufers und werden nie still korrigiert.
package model

import (
	"errors"
	"fmt"
)

// Fehler-Definitionen
var (
	ErrUnsupportedParamOut = errors.New("model: unsupported trajectory parameterization")
	ErrInvalidConfig       = errors.New("model: invalid configuration")
	ErrShapeMismatch       = errors.New("model: input shape mismatch")
)

// ParamOut waehlt die Trajektorien-Parametrisierung des Decoders.
type ParamOut string

const (
	// ParamOutBezier regressiert Bezier-Kontrollpunkte (Bernstein-Basis).
	ParamOutBezier ParamOut = "bezier"
	// ParamOutMonomial regressiert Monom-Koeffizienten (Potenzbasis).
	ParamOutMonomial ParamOut = "monomial"
	// ParamOutNone regressiert rohe Wegpunkte ohne Basis.
	ParamOutNone ParamOut = "none"
)

// Config enthaelt alle Konstruktionsparameter des Szenen-Praediktors.
type Config struct {
	InActor int // Eingangskanaele der Aktor-Historien
	InLane  int // Merkmale pro Fahrspur-Punkt

	NFpnScale int // Stufen der Conv-Pyramide

	DActor  int // Breite der Aktor-Embeddings
	DLane   int // Breite der Fahrspur-Embeddings
	DEmbed  int // gemeinsame Fusions- und Decoderbreite
	DRPE    int // Breite der projizierten Kanten-Merkmale
	DRPEIn  int // rohe RPE-Merkmale pro Token-Paar
	DRPETgt int // rohe RPE-Merkmale pro Zielaktor

	Dropout    float64 // nur Schnittstellen-Kompatibilitaet, Forward ist Inferenz
	UpdateEdge bool    // Kanten-Update in den Fusionsschichten

	NSceneHead  int // Attention-Koepfe der Fusion
	NSceneLayer int // Fusionsschichten

	ParamOut ParamOut // Trajektorien-Parametrisierung
	PredLen  int      // vorhergesagte Zeitschritte
	NumModes int      // Anzahl Modi K

	Seed int64 // Seed der Gewichtsinitialisierung
}

// DefaultConfig liefert die Standardkonfiguration.
func DefaultConfig() Config {
	return Config{
		InActor:     3,
		InLane:      10,
		NFpnScale:   4,
		DActor:      128,
		DLane:       128,
		DEmbed:      128,
		DRPE:        128,
		DRPEIn:      5,
		DRPETgt:     11,
		Dropout:     0.1,
		UpdateEdge:  true,
		NSceneHead:  8,
		NSceneLayer: 6,
		ParamOut:    ParamOutBezier,
		PredLen:     30,
		NumModes:    6,
	}
}

// Validate prueft die Konfiguration und schlaegt bei der ersten
// Verletzung fehl. Es gibt keine stillen Korrekturen.
func (c Config) Validate() error {
	switch c.ParamOut {
	case ParamOutBezier, ParamOutMonomial, ParamOutNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedParamOut, c.ParamOut)
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"InActor", c.InActor},
		{"InLane", c.InLane},
		{"NFpnScale", c.NFpnScale},
		{"DActor", c.DActor},
		{"DLane", c.DLane},
		{"DEmbed", c.DEmbed},
		{"DRPE", c.DRPE},
		{"DRPEIn", c.DRPEIn},
		{"DRPETgt", c.DRPETgt},
		{"NSceneHead", c.NSceneHead},
		{"NSceneLayer", c.NSceneLayer},
		{"PredLen", c.PredLen},
		{"NumModes", c.NumModes},
	} {
		if f.value < 1 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.DEmbed%c.NSceneHead != 0 {
		return fmt.Errorf("%w: DEmbed=%d nicht durch NSceneHead=%d teilbar", ErrInvalidConfig, c.DEmbed, c.NSceneHead)
	}
	return nil
}
