package training

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/input"
	"github.com/ayusman/wandcast/internal/intent"
	"github.com/ayusman/wandcast/internal/recorder"
	"github.com/ayusman/wandcast/internal/templates"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

type fakeClassifier struct {
	result intent.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(sample []gesture.PathPoint) (intent.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeClassifier) Source() intent.Source {
	return f.result.Source
}

type fakeSink struct {
	offered []intent.Result
}

func (f *fakeSink) OfferGesture(r intent.Result) (arbiter.Decision, bool) {
	f.offered = append(f.offered, r)
	return arbiter.Decision{}, false
}

type fakeStatus struct {
	messages []string
}

func (f *fakeStatus) Status(msg string) {
	f.messages = append(f.messages, msg)
}

type fakeCatalog struct {
	files []templates.File
}

func (f *fakeCatalog) AddTemplate(file templates.File, t *gesture.Template) error {
	f.files = append(f.files, file)
	return nil
}

type harness struct {
	ctrl    *Controller
	dir     *templates.Dir
	matcher *gesture.TemplateMatcher
	sink    *fakeSink
	status  *fakeStatus
	catalog *fakeCatalog
}

func newHarness(t *testing.T, classifiers ...gesture.Classifier) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		dir:     templates.NewDir(filepath.Join(root, "local")),
		matcher: gesture.NewTemplateMatcher(gesture.DefaultMatcherConfig()),
		sink:    &fakeSink{},
		status:  &fakeStatus{},
		catalog: &fakeCatalog{},
	}

	config := DefaultConfig()
	config.ExportDir = filepath.Join(root, "export")

	ctrl, err := New(config, Deps{
		Recorder:    recorder.New(recorder.DefaultThreshold),
		Classifiers: classifiers,
		Library:     h.matcher,
		Writer:      h.dir,
		Catalog:     h.catalog,
		Sink:        h.sink,
		Status:      h.status,
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.ctrl = ctrl
	return h
}

// stroke feeds a held trigger along points and then releases it.
func (h *harness) stroke(points ...input.Point3D) {
	for _, p := range points {
		h.ctrl.Update(input.Events{Trigger: true}, p)
	}
	h.ctrl.Update(input.Events{}, points[len(points)-1])
}

func line(n int) []input.Point3D {
	points := make([]input.Point3D, n)
	for i := range points {
		points[i] = input.Point3D{X: 0.1 * float64(i), Y: 0.05 * float64(i)}
	}
	return points
}

func TestController_ToggleOnRisingEdgeOnly(t *testing.T) {
	h := newHarness(t)
	edges := input.NewEdges(input.DefaultConfig())

	// Toggle button held for ten frames
	for i := 0; i < 10; i++ {
		h.ctrl.Update(edges.Update(input.Controls{Toggle: 1}), input.Point3D{})
	}
	if h.ctrl.Mode() != Training {
		t.Fatalf("expected Training after one press, got %v", h.ctrl.Mode())
	}

	h.ctrl.Update(edges.Update(input.Controls{}), input.Point3D{})
	h.ctrl.Update(edges.Update(input.Controls{Toggle: 1}), input.Point3D{})
	if h.ctrl.Mode() != Recognition {
		t.Errorf("expected Recognition after second press, got %v", h.ctrl.Mode())
	}
}

func TestController_CycleLabelWraps(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Toggle()

	labels := DefaultConfig().Labels
	if h.ctrl.Label() != labels[0] {
		t.Fatalf("expected first label, got %s", h.ctrl.Label())
	}
	for i := 1; i <= len(labels); i++ {
		h.ctrl.Update(input.Events{Cycle: true}, input.Point3D{})
		if got, want := h.ctrl.Label(), labels[i%len(labels)]; got != want {
			t.Errorf("cycle %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestController_CycleIgnoredInRecognition(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Update(input.Events{Cycle: true}, input.Point3D{})
	if h.ctrl.Label() != DefaultConfig().Labels[0] {
		t.Errorf("label should not change in Recognition, got %s", h.ctrl.Label())
	}
}

func TestController_TrainingPersists(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Toggle()
	h.ctrl.CycleLabel()

	h.stroke(line(5)...)

	files, err := h.dir.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 template file, got %d", len(files))
	}
	want := templates.FileName("cast_protego", fixedNow)
	if files[0].Name != want {
		t.Errorf("expected file %s, got %s", want, files[0].Name)
	}
	if h.matcher.Len() != 1 {
		t.Errorf("expected template appended to library, got %d", h.matcher.Len())
	}
	if len(h.catalog.files) != 1 {
		t.Errorf("expected template cataloged")
	}
	if len(h.sink.offered) != 0 {
		t.Error("training recordings must not be classified")
	}
	if snap := h.ctrl.Snapshot(); snap.LastSaved != want || snap.ModeName != "training" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestController_TrainingSkipsShortRecording(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Toggle()

	// A stationary hand produces a single point
	h.stroke(input.Point3D{}, input.Point3D{}, input.Point3D{})

	files, _ := h.dir.List()
	if len(files) != 0 {
		t.Errorf("single-point recording should not be saved, got %d files", len(files))
	}
}

func TestController_ToggleDiscardsOpenRecording(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Toggle()

	for _, p := range line(4) {
		h.ctrl.Update(input.Events{Trigger: true}, p)
	}
	h.ctrl.Toggle()
	h.ctrl.Update(input.Events{}, input.Point3D{})

	files, _ := h.dir.List()
	if len(files) != 0 {
		t.Errorf("toggled recording should be discarded, got %d files", len(files))
	}
	if len(h.sink.offered) != 0 {
		t.Error("discarded recording should not be classified")
	}
}

func TestController_ToggleWhileTriggerHeld(t *testing.T) {
	cl := &fakeClassifier{result: intent.Result{Label: "cast_stupefy", Confidence: 0.95, Source: intent.SourceTemplate}}
	h := newHarness(t, cl)

	points := line(8)
	for _, p := range points[:4] {
		h.ctrl.Update(input.Events{Trigger: true}, p)
	}
	// The toggle edge lands while the trigger stays held.
	h.ctrl.Update(input.Events{Trigger: true, Toggle: true}, points[4])
	for _, p := range points[5:] {
		h.ctrl.Update(input.Events{Trigger: true}, p)
	}
	h.ctrl.Update(input.Events{}, points[7])

	if h.ctrl.Mode() != Training {
		t.Fatalf("Mode = %s, want training", h.ctrl.Mode())
	}
	if files, _ := h.dir.List(); len(files) != 0 {
		t.Errorf("partial stroke after toggle should not be saved, got %d files", len(files))
	}
	if cl.calls != 0 || len(h.sink.offered) != 0 {
		t.Errorf("discarded stroke should not be classified, calls=%d offered=%d", cl.calls, len(h.sink.offered))
	}

	// The next press records normally.
	h.stroke(line(6)...)
	if files, _ := h.dir.List(); len(files) != 1 {
		t.Errorf("expected the next stroke to be saved, got %d files", len(files))
	}
}

func TestController_RecognitionForwardsAboveThreshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		forwarded  bool
	}{
		{"confident", 0.95, true},
		{"at threshold", 0.9, true},
		{"below", 0.89, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := &fakeClassifier{result: intent.Result{Label: "cast_stupefy", Confidence: tt.confidence, Source: intent.SourceTemplate}}
			h := newHarness(t, cl)

			h.stroke(line(6)...)

			if cl.calls != 1 {
				t.Fatalf("expected one classification, got %d", cl.calls)
			}
			if got := len(h.sink.offered) == 1; got != tt.forwarded {
				t.Errorf("forwarded = %v, expected %v", got, tt.forwarded)
			}
			if snap := h.ctrl.Snapshot(); snap.LastResult == nil || snap.LastResult.Label != "cast_stupefy" {
				t.Errorf("snapshot should record the last result, got %+v", snap.LastResult)
			}
		})
	}
}

func TestController_RecognitionPicksBestClassifier(t *testing.T) {
	neural := &fakeClassifier{err: gesture.ErrNotReady, result: intent.Result{Source: intent.SourceNeural}}
	low := &fakeClassifier{result: intent.Result{Label: "cast_bombardo", Confidence: 0.91, Source: intent.SourceTemplate}}
	high := &fakeClassifier{result: intent.Result{Label: "cast_protego", Confidence: 0.97, Source: intent.SourceTemplate}}
	h := newHarness(t, neural, low, high)

	h.stroke(line(6)...)

	if len(h.sink.offered) != 1 || h.sink.offered[0].Label != "cast_protego" {
		t.Errorf("expected best result forwarded, got %+v", h.sink.offered)
	}
}

func TestController_RecognitionAllFail(t *testing.T) {
	cl := &fakeClassifier{err: errors.New("empty library")}
	h := newHarness(t, cl)

	h.stroke(line(6)...)

	if len(h.sink.offered) != 0 {
		t.Errorf("nothing should be forwarded, got %+v", h.sink.offered)
	}
}

func TestController_ExportEdge(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Toggle()
	h.stroke(line(5)...)

	h.ctrl.Update(input.Events{Export: true}, input.Point3D{})

	last := h.status.messages[len(h.status.messages)-1]
	if last != "Exported 1 templates" {
		t.Errorf("unexpected status %q", last)
	}
}

func TestNew_RequiresRecorder(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("expected error without a recorder")
	}
}
