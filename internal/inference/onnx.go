// Package inference runs the gesture network with OpenCV's DNN module.
package inference

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrNotLoaded is returned by Infer before the model finished loading.
var ErrNotLoaded = errors.New("model not loaded")

// Layout is the memory layout of the network input tensor.
type Layout string

const (
	// LayoutNHWC is a [1, size, size, 1] tensor, as exported from Keras.
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is a [1, 1, size, size] blob, the OpenCV DNN default.
	LayoutNCHW Layout = "nchw"
)

// ParseLayout validates a layout name. Empty means LayoutNHWC.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case "":
		return LayoutNHWC, nil
	case LayoutNHWC, LayoutNCHW:
		return l, nil
	default:
		return "", fmt.Errorf("unknown input layout %q", s)
	}
}

// Config holds configuration for the ONNXEngine.
type Config struct {
	ModelPath string
	ImageSize int    // Side length of the square input image
	Layout    Layout // Input tensor layout, LayoutNHWC when empty
	Output    string // Output layer name, empty for the default
}

// ONNXEngine loads an ONNX gesture model asynchronously and runs it on demand.
// It implements gesture.Engine and warmup.Backend.
type ONNXEngine struct {
	config Config
	log    *logrus.Entry

	mu      sync.Mutex
	net     gocv.Net
	loaded  bool
	started bool

	ready atomic.Bool
	err   error
}

// NewONNXEngine creates an engine for the model at config.ModelPath.
// Nothing is loaded until StartWarmup is called.
func NewONNXEngine(config Config) *ONNXEngine {
	if config.ImageSize <= 0 {
		config.ImageSize = 28
	}
	if config.Layout == "" {
		config.Layout = LayoutNHWC
	}
	return &ONNXEngine{
		config: config,
		log:    logrus.WithField("component", "inference"),
	}
}

// StartWarmup begins loading the network in the background. Calling it again
// while loading or after loading is a no-op.
func (e *ONNXEngine) StartWarmup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if _, err := os.Stat(e.config.ModelPath); err != nil {
		return fmt.Errorf("model file: %w", err)
	}
	e.started = true

	go e.load()
	return nil
}

// IsWarmedUp reports whether the network is loaded and has run once.
func (e *ONNXEngine) IsWarmedUp() bool {
	return e.ready.Load()
}

// Err returns the error that stopped the background load, if any.
func (e *ONNXEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *ONNXEngine) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *ONNXEngine) load() {
	net := gocv.ReadNetFromONNX(e.config.ModelPath)
	if net.Empty() {
		e.fail(fmt.Errorf("read onnx model %s: empty network", e.config.ModelPath))
		e.log.WithField("path", e.config.ModelPath).Error("Failed to read ONNX model")
		return
	}

	e.mu.Lock()
	e.net = net
	e.loaded = true
	e.mu.Unlock()

	// The first forward pass allocates the layer buffers.
	if _, err := e.forward(make([]float32, e.config.ImageSize*e.config.ImageSize)); err != nil {
		e.fail(err)
		e.log.WithError(err).Error("Model warm-up inference failed")
		return
	}

	e.ready.Store(true)
	e.log.WithField("path", e.config.ModelPath).Info("ONNX model loaded")
}

// Infer runs one forward pass over a row-major square grayscale image.
func (e *ONNXEngine) Infer(image []float32) ([]float32, error) {
	if !e.ready.Load() {
		return nil, ErrNotLoaded
	}
	return e.forward(image)
}

func (e *ONNXEngine) forward(pixels []float32) ([]float32, error) {
	size := e.config.ImageSize
	if len(pixels) != size*size {
		return nil, fmt.Errorf("input has %d pixels, expected %d", len(pixels), size*size)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil, ErrNotLoaded
	}

	blob, err := inputBlob(pixels, size, e.config.Layout)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward(e.config.Output)
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("forward pass returned no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close releases the network.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ready.Store(false)
	if e.loaded {
		e.loaded = false
		return e.net.Close()
	}
	return nil
}

// inputBlob packs a row-major grayscale image into the network input tensor.
// With a single channel both layouts share the same element order and only
// the shape differs.
func inputBlob(pixels []float32, size int, layout Layout) (gocv.Mat, error) {
	if layout == LayoutNCHW {
		img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV32F)
		defer img.Close()
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				img.SetFloatAt(y, x, pixels[y*size+x])
			}
		}
		return gocv.BlobFromImage(img, 1.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), false, false), nil
	}

	blob := gocv.NewMatWithSizes([]int{1, size, size, 1}, gocv.MatTypeCV32F)
	data, err := blob.DataPtrFloat32()
	if err != nil {
		blob.Close()
		return gocv.Mat{}, fmt.Errorf("input tensor: %w", err)
	}
	copy(data, pixels)
	return blob, nil
}
