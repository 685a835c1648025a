// Package app wires the recognition pipeline together and drives it from the
// frame goroutine.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/capture"
	"github.com/ayusman/wandcast/internal/config"
	"github.com/ayusman/wandcast/internal/frame"
	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/inference"
	"github.com/ayusman/wandcast/internal/input"
	"github.com/ayusman/wandcast/internal/recorder"
	"github.com/ayusman/wandcast/internal/store"
	"github.com/ayusman/wandcast/internal/templates"
	"github.com/ayusman/wandcast/internal/training"
	"github.com/ayusman/wandcast/internal/voice"
	"github.com/ayusman/wandcast/internal/voice/witai"
	"github.com/ayusman/wandcast/internal/warmup"
)

// ErrStopped is returned by Do once the frame loop has stopped.
var ErrStopped = errors.New("app is not running")

// commandQueueSize bounds the work posted to the frame goroutine.
const commandQueueSize = 64

// NeuralBackend is a gesture network that warms up asynchronously.
type NeuralBackend interface {
	gesture.Engine
	warmup.Backend
}

// Options are optional collaborators. Zero values fall back to what the
// configuration describes.
type Options struct {
	Store      *store.Store     // Template catalog and cast journal
	Controller input.Controller // Defaults to the configured replay file or camera
	Backend    NeuralBackend    // Defaults to the ONNX engine when neural is enabled
	Resolver   witai.Resolver   // Defaults to wit.ai when a token is configured
	Trail      recorder.Trail
	Now        func() time.Time
}

// App is the composition root. Update runs one frame and must only be called
// from the frame goroutine; everything else is safe from any goroutine.
type App struct {
	cfg  config.Config
	opts Options
	log  *logrus.Entry

	loop       *frame.Loop
	controller input.Controller
	edges      *input.Edges
	recorder   *recorder.Recorder
	matcher    *gesture.TemplateMatcher
	neural     *gesture.NeuralClassifier
	backend    NeuralBackend
	warmup     *warmup.Coordinator
	dir        *templates.Dir
	training   *training.Controller
	recognizer *witai.Recognizer
	listener   *voice.Listener
	arbiter    *arbiter.Arbiter

	commands chan func()
	running  chan struct{}
	stopOnce sync.Once

	sinksMu     sync.RWMutex
	statusSinks []training.StatusSink
	watchers    []func(Status)

	statusMu sync.RWMutex
	status   Status
}

// New builds every component described by cfg.
func New(cfg config.Config, opts Options) (*App, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		cfg:      cfg,
		opts:     opts,
		log:      logrus.WithField("component", "app"),
		loop:     frame.NewLoop(),
		edges:    input.NewEdges(input.Config{Deadzone: cfg.Input.Deadzone}),
		recorder: recorder.New(cfg.Recorder.Threshold),
		dir:      templates.NewDir(cfg.Training.TemplateDir),
		commands: make(chan func(), commandQueueSize),
		running:  make(chan struct{}),
	}
	if opts.Trail != nil {
		a.recorder.SetTrail(opts.Trail)
	}

	a.controller = opts.Controller
	if a.controller == nil && cfg.Input.Replay != "" {
		replay, err := input.OpenReplay(cfg.Input.Replay)
		if err != nil {
			return nil, err
		}
		a.controller = replay
	}
	if a.controller == nil && cfg.Input.Camera >= 0 {
		cam, err := capture.NewController(
			capture.NewCamera(cfg.Input.Camera, cfg.FPS),
			capture.NewTipTracker(cfg.Input.Brightness, cfg.Input.Mirror),
		)
		if err != nil {
			return nil, fmt.Errorf("open camera %d: %w", cfg.Input.Camera, err)
		}
		a.controller = cam
	}

	a.matcher = gesture.NewTemplateMatcher(gesture.MatcherConfig{
		Metric:     gesture.Metric(cfg.Matcher.Metric),
		Resolution: cfg.Matcher.Resolution,
	})
	classifiers := []gesture.Classifier{a.matcher}

	a.backend = opts.Backend
	if a.backend == nil && cfg.Neural.Enabled {
		layout, err := inference.ParseLayout(cfg.Neural.Layout)
		if err != nil {
			return nil, fmt.Errorf("neural.layout: %w", err)
		}
		a.backend = inference.NewONNXEngine(inference.Config{
			ModelPath: cfg.Neural.ModelPath,
			ImageSize: cfg.Neural.ImageSize,
			Layout:    layout,
		})
	}
	a.warmup = warmup.New(a.backend, a.loop, warmup.Config{Timeout: cfg.Warmup.Timeout})
	a.warmup.OnChange(a.onWarmupChange)
	if a.backend != nil {
		a.neural = gesture.NewNeuralClassifier(a.backend, a.warmup, gesture.NeuralConfig{
			Labels:    cfg.Neural.Labels,
			ImageSize: cfg.Neural.ImageSize,
		})
		classifiers = append(classifiers, a.neural)
	}

	policy, err := arbiter.ParsePolicy(cfg.Arbiter.Policy)
	if err != nil {
		return nil, err
	}
	a.arbiter = arbiter.New(arbiter.Config{
		Policy:  policy,
		Window:  cfg.Arbiter.Window,
		Mapping: cfg.Arbiter.Mapping,
	}, a.warmup)
	a.arbiter.AddSink(arbiter.SinkFunc(a.onCast))

	deps := training.Deps{
		Recorder:    a.recorder,
		Classifiers: classifiers,
		Library:     a.matcher,
		Writer:      a.dir,
		Sink:        a.arbiter,
		Status:      statusFunc(a.Announce),
		Now:         opts.Now,
	}
	if opts.Store != nil {
		deps.Catalog = NewCatalog(opts.Store)
		a.arbiter.AddSink(NewJournal(opts.Store))
	}
	a.training, err = training.New(training.Config{
		Labels:           cfg.Training.Labels,
		GestureThreshold: cfg.Training.GestureThreshold,
		ExportDir:        cfg.Training.ExportDir,
	}, deps)
	if err != nil {
		return nil, err
	}

	resolver := opts.Resolver
	if resolver == nil && cfg.Voice.WitToken != "" {
		resolver = witai.NewClient(witai.Config{
			BaseURL: cfg.Voice.WitURL,
			Token:   cfg.Voice.WitToken,
			Version: cfg.Voice.WitVersion,
			Timeout: cfg.Voice.Timeout,
		})
	}
	if resolver != nil {
		a.recognizer = witai.NewRecognizer(resolver)
		a.listener = voice.NewListener(a.recognizer, voice.Config{Threshold: cfg.Voice.Threshold})
		a.listener.Attach()
	}

	a.restoreLabel()
	a.publish()
	return a, nil
}

// statusFunc adapts a function to training.StatusSink.
type statusFunc func(msg string)

func (f statusFunc) Status(msg string) { f(msg) }

// AddSink registers a cast decision sink.
func (a *App) AddSink(s arbiter.Sink) {
	a.arbiter.AddSink(s)
}

// AddStatusSink registers a receiver for status messages.
func (a *App) AddStatusSink(s training.StatusSink) {
	a.sinksMu.Lock()
	defer a.sinksMu.Unlock()
	a.statusSinks = append(a.statusSinks, s)
}

// OnStatusChange registers a callback invoked on the frame goroutine whenever
// the published status changes.
func (a *App) OnStatusChange(fn func(Status)) {
	a.sinksMu.Lock()
	defer a.sinksMu.Unlock()
	a.watchers = append(a.watchers, fn)
}

// Announce shows msg on every status sink.
func (a *App) Announce(msg string) {
	a.statusMu.Lock()
	a.status.Message = msg
	a.statusMu.Unlock()

	a.sinksMu.RLock()
	sinks := make([]training.StatusSink, len(a.statusSinks))
	copy(sinks, a.statusSinks)
	a.sinksMu.RUnlock()

	for _, s := range sinks {
		s.Status(msg)
	}
}

// LoadTemplates reads the template directory into the matcher and brings the
// catalog in line with the files on disk.
func (a *App) LoadTemplates() error {
	files, err := a.dir.List()
	if err != nil {
		return err
	}

	var library []*gesture.Template
	var catalog *Catalog
	if a.opts.Store != nil {
		catalog = NewCatalog(a.opts.Store)
	}
	keep := make([]string, 0, len(files))

	for _, f := range files {
		tmpls, err := templates.ReadFile(f)
		if err != nil {
			a.log.WithError(err).WithField("file", f.Name).Warn("Skipping unreadable template")
			continue
		}
		library = append(library, tmpls...)
		if catalog != nil && len(tmpls) > 0 {
			keep = append(keep, f.Name)
			if err := catalog.AddTemplate(f, tmpls[0]); err != nil {
				a.log.WithError(err).WithField("file", f.Name).Warn("Failed to catalog template")
			}
		}
	}

	a.matcher.SetLibrary(library)
	if catalog != nil {
		if removed, err := a.opts.Store.Templates().Prune(keep); err != nil {
			a.log.WithError(err).Warn("Failed to prune template catalog")
		} else if removed > 0 {
			a.log.WithField("removed", removed).Info("Pruned stale catalog entries")
		}
	}

	a.log.WithFields(logrus.Fields{
		"files":     len(files),
		"templates": a.matcher.Len(),
	}).Info("Templates loaded")
	a.publish()
	return nil
}

// StartWarmup begins warming the neural backend on the frame loop.
func (a *App) StartWarmup() {
	if a.backend == nil {
		return
	}
	a.warmup.StartWarmupDuringTransition()
}

// Warmup returns the shared warm-up coordinator.
func (a *App) Warmup() *warmup.Coordinator {
	return a.warmup
}

// Loop returns the frame loop driving the app.
func (a *App) Loop() *frame.Loop {
	return a.loop
}

// Run drives the frame loop at the configured rate until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.stop()
	err := a.loop.Run(ctx, a.cfg.FPS, a.Update)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) stop() {
	a.stopOnce.Do(func() { close(a.running) })
}

// Update runs one frame: queued commands, controller input, voice results and
// the arbiter clock. Tasks on the loop are stepped separately by Loop.Tick.
func (a *App) Update(dt time.Duration) {
	a.arbiter.Advance(dt)
	a.drainCommands()

	if a.controller != nil {
		a.poll()
	}

	if a.listener != nil {
		for _, r := range a.listener.Pump() {
			a.arbiter.OfferVoice(r)
		}
	}

	a.publish()
}

func (a *App) poll() {
	c, err := a.controller.Poll()
	if err != nil {
		if errors.Is(err, io.EOF) {
			a.log.Info("Controller input ended")
		} else {
			a.log.WithError(err).Error("Controller failed, input disabled")
		}
		a.controller.Close()
		a.controller = nil
		return
	}

	ev := a.edges.Update(c)
	if ev.Voice {
		a.beginVoice()
	}
	a.training.Update(ev, c.Position)
}

func (a *App) beginVoice() error {
	if a.listener == nil {
		a.Announce("Voice not configured")
		return errors.New("voice recognizer not configured")
	}
	return a.listener.BeginRecording()
}

func (a *App) drainCommands() {
	for {
		select {
		case fn := <-a.commands:
			fn()
		default:
			return
		}
	}
}

// Do runs fn on the frame goroutine and waits for its result.
func (a *App) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	cmd := func() { result <- fn() }

	select {
	case a.commands <- cmd:
	case <-a.running:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-a.running:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn for the frame goroutine without waiting. It reports false
// when the queue is full.
func (a *App) Post(fn func()) bool {
	select {
	case a.commands <- fn:
		return true
	default:
		return false
	}
}

// ToggleMode switches between recognition and training on the next frame.
func (a *App) ToggleMode() {
	a.Post(a.training.Toggle)
}

// CycleLabel advances the training label on the next frame.
func (a *App) CycleLabel() {
	a.Post(func() { a.training.CycleLabel() })
}

// ExportTemplates copies the template files to the export directory.
func (a *App) ExportTemplates(ctx context.Context) (templates.ExportReport, error) {
	var report templates.ExportReport
	err := a.Do(ctx, func() error {
		var err error
		report, err = a.training.Export()
		return err
	})
	return report, err
}

// SubmitUtterance opens a voice recording and resolves text as what was said.
// Results reach the arbiter on a following frame.
func (a *App) SubmitUtterance(ctx context.Context, text string) error {
	if a.recognizer == nil {
		return errors.New("voice recognizer not configured")
	}
	if err := a.Do(ctx, a.beginVoice); err != nil {
		return err
	}
	return a.recognizer.Submit(ctx, text)
}

// Classify runs the recognition classifiers on a stroke without offering the
// result to the arbiter. Backends that are not ready are skipped.
func (a *App) Classify(points []gesture.PathPoint) []Classification {
	classifiers := []gesture.Classifier{a.matcher}
	if a.neural != nil {
		classifiers = append(classifiers, a.neural)
	}

	var out []Classification
	for _, c := range classifiers {
		r, err := c.Classify(points)
		if err != nil {
			if !errors.Is(err, gesture.ErrNotReady) {
				out = append(out, Classification{Source: string(c.Source()), Error: err.Error()})
			}
			continue
		}
		out = append(out, Classification{
			Source:     string(r.Source),
			Label:      r.Label,
			Confidence: r.Confidence,
			Accepted:   r.Meets(a.cfg.Training.GestureThreshold),
		})
	}
	return out
}

// Close releases the controller, the voice listener and the neural backend.
func (a *App) Close() error {
	a.stop()
	if a.listener != nil {
		a.listener.Detach()
	}
	var errs []error
	if a.controller != nil {
		errs = append(errs, a.controller.Close())
	}
	if c, ok := a.backend.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *App) onWarmupChange(s warmup.State) {
	switch s {
	case warmup.Ready:
		a.Announce("Neural backend ready")
	case warmup.Failed:
		a.Announce("Neural backend unavailable")
	}
}

func (a *App) onCast(d arbiter.Decision) {
	a.statusMu.Lock()
	a.status.LastCast = &d
	a.statusMu.Unlock()
}
