// MODUL: encoders_test
// ZWECK: Tests fuer ActorNet, LaneNet und FusionNet
// INPUT: Deterministisch initialisierte Netze und Zufallseingaben
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing, go-cmp, math/rand
// HINWEISE: Prueft Ausgabe-Shapes, die Permutationsinvarianz der
//           Punkt-Aggregation und entartete Szenen ohne Fahrspuren

package scene

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mindscene/mindscene/ml"
	"github.com/mindscene/mindscene/model"
)

func testConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.InActor = 3
	cfg.InLane = 4
	cfg.NFpnScale = 2
	cfg.DActor = 8
	cfg.DLane = 8
	cfg.DEmbed = 8
	cfg.DRPE = 8
	cfg.DRPEIn = 2
	cfg.DRPETgt = 3
	cfg.NSceneHead = 2
	cfg.NSceneLayer = 1
	cfg.ParamOut = model.ParamOutNone
	cfg.PredLen = 4
	cfg.NumModes = 2
	cfg.Seed = 7
	return cfg
}

func fillNormal(rng *rand.Rand, t *ml.Tensor) {
	data := t.Data()
	for i := range data {
		data[i] = rng.NormFloat64()
	}
}

func TestActorNetShape(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newActorNet(rng, newOptions(cfg))

	x := ml.NewTensor(5, cfg.InActor, 8)
	fillNormal(rng, x)
	out := net.Forward(x)
	if out.Rank() != 2 || out.Dim(0) != 5 || out.Dim(1) != cfg.DActor {
		t.Fatalf("ActorNet-Ausgabe %v, erwartet [5 %d]", out.Shape(), cfg.DActor)
	}
	for i, v := range out.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("ActorNet-Ausgabe[%d] nicht endlich: %f", i, v)
		}
	}
}

func TestActorNetMultiScaleLengths(t *testing.T) {
	// Vier Stufen halbieren die Zeitachse dreimal; T=16 muss durchlaufen.
	cfg := testConfig()
	cfg.NFpnScale = 4
	rng := rand.New(rand.NewSource(1))
	net := newActorNet(rng, newOptions(cfg))

	x := ml.NewTensor(2, cfg.InActor, 16)
	fillNormal(rng, x)
	out := net.Forward(x)
	if out.Dim(0) != 2 || out.Dim(1) != cfg.DActor {
		t.Fatalf("ActorNet-Ausgabe %v, erwartet [2 %d]", out.Shape(), cfg.DActor)
	}
}

func TestLaneNetShape(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newLaneNet(rng, newOptions(cfg))

	x := ml.NewTensor(3, model.LanePoints, cfg.InLane)
	fillNormal(rng, x)
	out := net.Forward(x)
	if out.Rank() != 2 || out.Dim(0) != 3 || out.Dim(1) != cfg.DLane {
		t.Fatalf("LaneNet-Ausgabe %v, erwartet [3 %d]", out.Shape(), cfg.DLane)
	}
}

func TestLaneNetPointPermutationInvariance(t *testing.T) {
	// Max-Pool-Aggregation: die Reihenfolge der Punkte eines Segments darf
	// das Segment-Embedding nicht aendern.
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newLaneNet(rng, newOptions(cfg))

	x := ml.NewTensor(1, model.LanePoints, cfg.InLane)
	fillNormal(rng, x)

	perm := rand.New(rand.NewSource(99)).Perm(model.LanePoints)
	shuffled := ml.NewTensor(1, model.LanePoints, cfg.InLane)
	for j, src := range perm {
		for k := 0; k < cfg.InLane; k++ {
			shuffled.Set(x.At(0, src, k), 0, j, k)
		}
	}

	a := net.Forward(x)
	b := net.Forward(shuffled)
	if diff := cmp.Diff(a.Data(), b.Data(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Punkt-Permutation aendert das Embedding:\n%s", diff)
	}
}

func TestLaneNetEmptyBatch(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newLaneNet(rng, newOptions(cfg))

	out := net.Forward(ml.NewTensor(0, model.LanePoints, cfg.InLane))
	if out.Dim(0) != 0 || out.Dim(1) != cfg.DLane {
		t.Fatalf("leerer Batch: Shape %v, erwartet [0 %d]", out.Shape(), cfg.DLane)
	}
}

func TestFusionNetShapesAndOrder(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newFusionNet(rng, newOptions(cfg))

	// Zwei Szenen: 2 Aktoren + 1 Fahrspur, 1 Aktor + 2 Fahrspuren.
	actors := ml.NewTensor(3, cfg.DActor)
	lanes := ml.NewTensor(3, cfg.DLane)
	fillNormal(rng, actors)
	fillNormal(rng, lanes)
	actorIdcs := [][]int{{0, 1}, {2}}
	laneIdcs := [][]int{{0}, {1, 2}}
	rpes := []model.SceneRPE{
		{Scene: ml.NewTensor(cfg.DRPEIn, 3, 3)},
		{Scene: ml.NewTensor(cfg.DRPEIn, 3, 3)},
	}
	fillNormal(rng, rpes[0].Scene)
	fillNormal(rng, rpes[1].Scene)

	fa, fl, cls := net.Forward(actors, actorIdcs, lanes, laneIdcs, rpes)
	if fa.Dim(0) != 3 || fa.Dim(1) != cfg.DEmbed {
		t.Fatalf("Aktor-Ausgabe %v, erwartet [3 %d]", fa.Shape(), cfg.DEmbed)
	}
	if fl.Dim(0) != 3 || fl.Dim(1) != cfg.DEmbed {
		t.Fatalf("Fahrspur-Ausgabe %v, erwartet [3 %d]", fl.Shape(), cfg.DEmbed)
	}
	if cls.Dim(0) != 2 || cls.Dim(1) != cfg.DEmbed {
		t.Fatalf("CLS-Ausgabe %v, erwartet [2 %d]", cls.Shape(), cfg.DEmbed)
	}
}

func TestFusionNetSceneWithoutLanes(t *testing.T) {
	// Eine Szene mit einem Aktor und null Fahrspuren muss endliche
	// Ausgaben liefern (Token-Folge: Aktor + CLS).
	cfg := testConfig()
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newFusionNet(rng, newOptions(cfg))

	actors := ml.NewTensor(1, cfg.DActor)
	fillNormal(rng, actors)
	lanes := ml.NewTensor(0, cfg.DLane)
	rpe := model.SceneRPE{Scene: ml.NewTensor(cfg.DRPEIn, 1, 1)}

	fa, _, cls := net.Forward(actors, [][]int{{0}}, lanes, [][]int{{}}, []model.SceneRPE{rpe})
	if fa.Dim(0) != 1 || cls.Dim(0) != 1 {
		t.Fatalf("entartete Szene: Aktoren %v, CLS %v", fa.Shape(), cls.Shape())
	}
	for i, v := range fa.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Aktor-Ausgabe[%d] nicht endlich: %f", i, v)
		}
	}
	for i, v := range cls.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("CLS-Ausgabe[%d] nicht endlich: %f", i, v)
		}
	}
}

func TestGatherScatterRoundtrip(t *testing.T) {
	src := ml.NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	g := gatherRows(src, []int{2, 0})
	if g.At(0, 0) != 5 || g.At(1, 1) != 2 {
		t.Fatalf("gatherRows falsch: %v", g.Data())
	}
	dst := ml.NewTensor(3, 2)
	scatterRows(dst, g, []int{2, 0})
	if dst.At(2, 0) != 5 || dst.At(0, 1) != 2 || dst.At(1, 0) != 0 {
		t.Errorf("scatterRows falsch: %v", dst.Data())
	}
}
