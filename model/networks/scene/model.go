// Package scene - Szenen-Praediktor fuer Multi-Agenten-Trajektorien
//
// Dieses Paket implementiert das vollstaendige Vorwaertsnetzwerk:
// ActorNet (zeitliche Conv-Pyramide), LaneNet (Punkt-Aggregation),
// FusionNet (relationale Self-Attention mit Kanten-Merkmalen und
// CLS-Token) und SceneDecoder (multi-modale Trajektorien mit
// Unsicherheitsschaetzung).
//
// Hauptkomponenten:
// - ScenePredNet: Kompositionswurzel, sequenziert alle Teilnetze
// - New: Konstruktion mit validierter Konfiguration und Seed
// - Forward: ein reiner Vorwaertsdurchlauf ueber einen Batch

package scene

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mindscene/mindscene/model"
)

// ScenePredNet orchestriert Kodierung, Fusion und Dekodierung.
// Nach der Konstruktion sind alle Parameter unveraenderlich; Forward
// haelt keinerlei Zustand zwischen Aufrufen.
type ScenePredNet struct {
	cfg model.Config

	actorNet  *ActorNet
	laneNet   *LaneNet
	fusionNet *FusionNet
	decoder   *SceneDecoder
}

// New baut den Szenen-Praediktor auf. Eine unbekannte Parametrisierung
// oder eine ungueltige Dimension schlaegt sofort und endgueltig fehl.
func New(cfg model.Config) (*ScenePredNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DEmbed%decoderHeads != 0 {
		return nil, fmt.Errorf("%w: DEmbed=%d nicht durch %d Decoder-Koepfe teilbar",
			model.ErrInvalidConfig, cfg.DEmbed, decoderHeads)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	opts := newOptions(cfg)

	decoder, err := newSceneDecoder(rng, opts)
	if err != nil {
		return nil, err
	}

	net := &ScenePredNet{
		cfg:       cfg,
		actorNet:  newActorNet(rng, opts),
		laneNet:   newLaneNet(rng, opts),
		fusionNet: newFusionNet(rng, opts),
		decoder:   decoder,
	}

	slog.Debug("scene predictor initialized",
		"d_embed", cfg.DEmbed,
		"fpn_scales", cfg.NFpnScale,
		"fusion_layers", cfg.NSceneLayer,
		"fusion_heads", cfg.NSceneHead,
		"param_out", string(cfg.ParamOut),
		"pred_len", cfg.PredLen,
		"num_modes", cfg.NumModes,
	)
	return net, nil
}

// Config liefert die Konstruktionskonfiguration.
func (net *ScenePredNet) Config() model.Config { return net.cfg }

// Forward validiert den Eingabe-Kontrakt und liefert eine Prediction pro
// Szene, in der Reihenfolge der Eingabeszenen. Der Zielknoten laeuft durch
// dieselbe LaneNet-Instanz wie die Fahrspuren (geteilte Gewichte).
func (net *ScenePredNet) Forward(in *model.Inputs) ([]Prediction, error) {
	if err := in.Validate(net.cfg); err != nil {
		return nil, err
	}
	slog.Debug("scene predictor forward",
		"scenes", in.Scenes(),
		"actors", in.Actors.Dim(0),
		"lanes", in.Lanes.Dim(0),
	)

	actors := net.actorNet.Forward(in.Actors)
	lanes := net.laneNet.Forward(in.Lanes)
	tgtFeat := net.laneNet.Forward(in.TgtNodes)

	fusedActors, _, cls := net.fusionNet.Forward(actors, in.ActorIdcs, lanes, in.LaneIdcs, in.RPE)

	return net.decoder.Forward(cls, fusedActors, in.ActorIdcs, tgtFeat, in.TgtRPE), nil
}
