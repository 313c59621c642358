// Modul: inputs.go
// Beschreibung: Typisierter Eingabe-Kontrakt eines Szenen-Batches
// Hauptstrukturen:
//   - Inputs: alle Tensoren und Index-Listen eines Batches
//   - SceneRPE: rohe Relativ-Pose-Merkmale einer Szene
//   - Validate: erzwingt saemtliche Shape-Regeln des Kontrakts
//
// Ein Batch ist die Verkettung mehrerer Szenen entlang der Aktor- bzw.
// Fahrspurachse (Ragged Batching). Die Index-Listen partitionieren die
// flachen Achsen zurueck in Szenengruppen; die Reihenfolge der Gruppen
// bestimmt die Reihenfolge der Ausgaben.

package model

import (
	"fmt"

	"github.com/mindscene/mindscene/ml"
)

// LanePoints ist die feste Punktanzahl eines Fahrspur-Segments.
const LanePoints = 10

// SceneRPE enthaelt die rohen Relativ-Pose-Merkmale einer Szene:
// (DRPEIn, N, N) mit N = Aktoren + Fahrspuren der Szene (ohne CLS).
type SceneRPE struct {
	Scene *ml.Tensor
}

// Inputs ist der typisierte Eingabe-Kontrakt eines Batches.
type Inputs struct {
	Actors    *ml.Tensor // (Summe Aktoren, InActor, T)
	ActorIdcs [][]int    // Partition der Aktorachse pro Szene
	Lanes     *ml.Tensor // (Summe Fahrspuren, LanePoints, InLane)
	LaneIdcs  [][]int    // Partition der Fahrspurachse pro Szene
	RPE       []SceneRPE // rohe Kanten-Merkmale pro Szene
	TgtNodes  *ml.Tensor // (Szenen, LanePoints, InLane)
	TgtRPE    *ml.Tensor // (Szenen, DRPETgt)
}

// Scenes liefert die Anzahl der Szenen im Batch.
func (in *Inputs) Scenes() int { return len(in.ActorIdcs) }

// Validate prueft den kompletten Shape-Kontrakt gegen die Konfiguration.
// Jede Verletzung liefert einen umschlossenen ErrShapeMismatch.
func (in *Inputs) Validate(cfg Config) error {
	if in.Actors == nil || in.Lanes == nil || in.TgtNodes == nil || in.TgtRPE == nil {
		return fmt.Errorf("%w: nil tensor", ErrShapeMismatch)
	}
	if in.Actors.Rank() != 3 || in.Actors.Dim(1) != cfg.InActor {
		return fmt.Errorf("%w: ACTORS %v, erwartet (*, %d, T)", ErrShapeMismatch, in.Actors.Shape(), cfg.InActor)
	}
	if div := 1 << (cfg.NFpnScale - 1); in.Actors.Dim(2)%div != 0 || in.Actors.Dim(2) < div {
		return fmt.Errorf("%w: Historienlaenge %d nicht durch 2^%d teilbar", ErrShapeMismatch, in.Actors.Dim(2), cfg.NFpnScale-1)
	}
	if in.Lanes.Rank() != 3 || in.Lanes.Dim(1) != LanePoints || in.Lanes.Dim(2) != cfg.InLane {
		return fmt.Errorf("%w: LANES %v, erwartet (*, %d, %d)", ErrShapeMismatch, in.Lanes.Shape(), LanePoints, cfg.InLane)
	}

	scenes := len(in.ActorIdcs)
	if len(in.LaneIdcs) != scenes || len(in.RPE) != scenes {
		return fmt.Errorf("%w: %d Aktorgruppen, %d Fahrspurgruppen, %d RPE-Szenen", ErrShapeMismatch, scenes, len(in.LaneIdcs), len(in.RPE))
	}

	if err := checkPartition("ACTOR_IDCS", in.ActorIdcs, in.Actors.Dim(0)); err != nil {
		return err
	}
	if err := checkPartition("LANE_IDCS", in.LaneIdcs, in.Lanes.Dim(0)); err != nil {
		return err
	}

	for s := 0; s < scenes; s++ {
		rpe := in.RPE[s].Scene
		if rpe == nil {
			return fmt.Errorf("%w: RPE[%d] ohne 'scene'-Tensor", ErrShapeMismatch, s)
		}
		n := len(in.ActorIdcs[s]) + len(in.LaneIdcs[s])
		if rpe.Rank() != 3 || rpe.Dim(0) != cfg.DRPEIn || rpe.Dim(1) != n || rpe.Dim(2) != n {
			return fmt.Errorf("%w: RPE[%d] %v, erwartet (%d, %d, %d)", ErrShapeMismatch, s, rpe.Shape(), cfg.DRPEIn, n, n)
		}
	}

	if in.TgtNodes.Rank() != 3 || in.TgtNodes.Dim(0) != scenes ||
		in.TgtNodes.Dim(1) != LanePoints || in.TgtNodes.Dim(2) != cfg.InLane {
		return fmt.Errorf("%w: TGT_NODES %v, erwartet (%d, %d, %d)", ErrShapeMismatch, in.TgtNodes.Shape(), scenes, LanePoints, cfg.InLane)
	}
	if in.TgtRPE.Rank() != 2 || in.TgtRPE.Dim(0) != scenes || in.TgtRPE.Dim(1) != cfg.DRPETgt {
		return fmt.Errorf("%w: TGT_RPE %v, erwartet (%d, %d)", ErrShapeMismatch, in.TgtRPE.Shape(), scenes, cfg.DRPETgt)
	}
	return nil
}

// checkPartition prueft, dass die Index-Gruppen eine Partition von [0, total)
// bilden: jeder Index im Bereich, Gesamtzahl identisch.
func checkPartition(name string, groups [][]int, total int) error {
	count := 0
	for s, group := range groups {
		for _, idx := range group {
			if idx < 0 || idx >= total {
				return fmt.Errorf("%w: %s[%d] referenziert %d ausserhalb von [0, %d)", ErrShapeMismatch, name, s, idx, total)
			}
		}
		count += len(group)
	}
	if count != total {
		return fmt.Errorf("%w: %s partitioniert %d von %d Zeilen", ErrShapeMismatch, name, count, total)
	}
	return nil
}
