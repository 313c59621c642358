// Modul: options.go
// Beschreibung: Interne Optionen des Szenen-Praediktors
// Hauptstrukturen:
//   - Options: aus model.Config abgeleitete Konstruktionsparameter

package scene

import "github.com/mindscene/mindscene/model"

// Polynomgrad der Bezier- und Monom-Parametrisierung (8 Kontrollpunkte).
const nOrder = 7

// Attention-Koepfe und FFN-Faktor der Modus-Selbstattention im Decoder.
const (
	decoderHeads     = 4
	decoderFFNFactor = 12
	decoderLayers    = 2
)

// Zeitschrittweite der Trajektorien in Sekunden.
const timeStep = 0.1

// Options enthaelt alle abgeleiteten Konstruktionsparameter.
type Options struct {
	inActor, inLane       int
	nFpnScale             int
	dActor, dLane, dEmbed int
	dRPE, dRPEIn, dRPETgt int
	nSceneHead            int
	nSceneLayer           int
	updateEdge            bool
	paramOut              model.ParamOut
	predLen               int
	numModes              int
}

// newOptions leitet die internen Optionen aus einer validierten
// Konfiguration ab.
func newOptions(cfg model.Config) Options {
	return Options{
		inActor:     cfg.InActor,
		inLane:      cfg.InLane,
		nFpnScale:   cfg.NFpnScale,
		dActor:      cfg.DActor,
		dLane:       cfg.DLane,
		dEmbed:      cfg.DEmbed,
		dRPE:        cfg.DRPE,
		dRPEIn:      cfg.DRPEIn,
		dRPETgt:     cfg.DRPETgt,
		nSceneHead:  cfg.NSceneHead,
		nSceneLayer: cfg.NSceneLayer,
		updateEdge:  cfg.UpdateEdge,
		paramOut:    cfg.ParamOut,
		predLen:     cfg.PredLen,
		numModes:    cfg.NumModes,
	}
}
