package recorder

import (
	"testing"

	"github.com/ayusman/wandcast/internal/input"
)

type fakeTrail struct {
	begun    int
	appended int
	cleared  int
}

func (f *fakeTrail) Begin(p input.Point3D)  { f.begun++ }
func (f *fakeTrail) Append(p input.Point3D) { f.appended++ }
func (f *fakeTrail) Clear()                 { f.cleared++ }

func TestRecorder_DecimatesStream(t *testing.T) {
	r := New(DefaultThreshold)

	r.Start(input.Point3D{X: 0})
	for i := 1; i <= 4; i++ {
		if !r.AddIfMoved(input.Point3D{X: 0.1 * float64(i)}) {
			t.Errorf("point %d should have been added", i)
		}
	}

	sample := r.Stop()
	if len(sample) != 5 {
		t.Fatalf("expected 5 points, got %d", len(sample))
	}
	if sample[4].X != 0.4 {
		t.Errorf("expected last point x=0.4, got %f", sample[4].X)
	}
	if r.Recording() {
		t.Error("recorder should not be recording after Stop")
	}
}

func TestRecorder_IgnoresSmallMoves(t *testing.T) {
	r := New(DefaultThreshold)

	r.Start(input.Point3D{})
	if r.AddIfMoved(input.Point3D{X: 0.01}) {
		t.Error("move below threshold should not be added")
	}
	// Exactly at the threshold is not strictly greater
	if r.AddIfMoved(input.Point3D{X: DefaultThreshold}) {
		t.Error("move equal to threshold should not be added")
	}

	if sample := r.Stop(); len(sample) != 1 {
		t.Errorf("expected 1 point, got %d", len(sample))
	}
}

func TestRecorder_ComparesToLastKeptPoint(t *testing.T) {
	r := New(DefaultThreshold)

	// Slow drift: each step is small but the total exceeds the threshold
	// only relative to the last kept point.
	r.Start(input.Point3D{})
	added := 0
	for i := 1; i <= 10; i++ {
		if r.AddIfMoved(input.Point3D{X: 0.02 * float64(i)}) {
			added++
		}
	}

	if added != 3 {
		t.Errorf("expected 3 kept points from slow drift, got %d", added)
	}
}

func TestRecorder_StopWithoutStart(t *testing.T) {
	r := New(0)

	sample := r.Stop()
	if sample == nil || len(sample) != 0 {
		t.Errorf("expected empty non-nil sample, got %v", sample)
	}
	if r.AddIfMoved(input.Point3D{X: 1}) {
		t.Error("AddIfMoved should do nothing while not recording")
	}
}

func TestRecorder_RestartClearsBuffer(t *testing.T) {
	r := New(DefaultThreshold)

	r.Start(input.Point3D{})
	r.AddIfMoved(input.Point3D{X: 1})
	r.AddIfMoved(input.Point3D{X: 2})

	r.Start(input.Point3D{Y: 5})
	if r.Len() != 1 {
		t.Fatalf("expected restart to leave 1 point, got %d", r.Len())
	}

	sample := r.Stop()
	if sample[0].Y != 5 {
		t.Errorf("expected restart point, got %+v", sample[0])
	}
}

func TestRecorder_SampleIsCopy(t *testing.T) {
	r := New(DefaultThreshold)

	r.Start(input.Point3D{X: 1})
	sample := r.Stop()

	r.Start(input.Point3D{X: 9})
	if sample[0].X != 1 {
		t.Errorf("returned sample changed after restart: %+v", sample[0])
	}
}

func TestRecorder_Discard(t *testing.T) {
	trail := &fakeTrail{}
	r := New(DefaultThreshold)
	r.SetTrail(trail)

	r.Start(input.Point3D{})
	r.AddIfMoved(input.Point3D{X: 1})
	r.Discard()

	if r.Recording() || r.Len() != 0 {
		t.Error("expected discarded recording to be closed and empty")
	}
	if len(r.Stop()) != 0 {
		t.Error("Stop after Discard should return an empty sample")
	}
	if trail.begun != 1 || trail.appended != 1 || trail.cleared != 2 {
		t.Errorf("unexpected trail calls %+v", trail)
	}
}

func TestSample_Project(t *testing.T) {
	sample := Sample{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}

	path := sample.Project()
	if len(path) != 2 {
		t.Fatalf("expected 2 path points, got %d", len(path))
	}
	if path[1].X != 4 || path[1].Y != 5 {
		t.Errorf("unexpected projection %+v", path[1])
	}
}
