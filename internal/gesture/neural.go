package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/wandcast/internal/intent"
)

// DefaultImageSize is the side length of the square raster fed to the network.
const DefaultImageSize = 28

// DefaultNeuralLabels are the network output classes in output order.
var DefaultNeuralLabels = []string{
	"cast_bombardo",
	"cast_protego",
	"cast_stupefy",
	"cast_expecto_patronum",
}

// Engine runs a single forward pass of a gesture network.
// The input is a row-major square grayscale image with values in [0, 1].
type Engine interface {
	Infer(image []float32) ([]float32, error)
}

// Gate reports whether the neural backend may be used.
type Gate interface {
	Ready() bool
}

// NeuralConfig holds configuration for the NeuralClassifier.
type NeuralConfig struct {
	Labels    []string
	ImageSize int
}

// DefaultNeuralConfig returns the four-spell 28x28 configuration.
func DefaultNeuralConfig() NeuralConfig {
	labels := make([]string, len(DefaultNeuralLabels))
	copy(labels, DefaultNeuralLabels)
	return NeuralConfig{
		Labels:    labels,
		ImageSize: DefaultImageSize,
	}
}

// NeuralClassifier classifies strokes by rasterizing them and running a network.
type NeuralClassifier struct {
	engine Engine
	gate   Gate
	config NeuralConfig
}

// NewNeuralClassifier creates a classifier over engine that refuses to run
// until gate reports ready.
func NewNeuralClassifier(engine Engine, gate Gate, config NeuralConfig) *NeuralClassifier {
	if config.ImageSize <= 1 {
		config.ImageSize = DefaultImageSize
	}
	if len(config.Labels) == 0 {
		config.Labels = DefaultNeuralConfig().Labels
	}
	return &NeuralClassifier{
		engine: engine,
		gate:   gate,
		config: config,
	}
}

// Source identifies results produced by this classifier.
func (c *NeuralClassifier) Source() intent.Source {
	return intent.SourceNeural
}

// Ready reports whether the backend has finished warming up.
func (c *NeuralClassifier) Ready() bool {
	return c.engine != nil && c.gate != nil && c.gate.Ready()
}

// Classify rasterizes the stroke and returns the highest scoring class.
// It returns ErrNotReady when called before warm-up completes.
func (c *NeuralClassifier) Classify(sample []PathPoint) (intent.Result, error) {
	if !c.Ready() {
		return intent.Result{}, ErrNotReady
	}
	if len(sample) == 0 {
		return intent.Result{}, ErrEmptySample
	}
	if len(sample) < 3 {
		return intent.Result{}, ErrTooFewPoints
	}

	image := Rasterize(sample, c.config.ImageSize)
	output, err := c.engine.Infer(image)
	if err != nil {
		return intent.Result{}, fmt.Errorf("neural inference failed: %w", err)
	}
	if len(output) != len(c.config.Labels) {
		return intent.Result{}, fmt.Errorf("network returned %d scores, expected %d", len(output), len(c.config.Labels))
	}

	best := 0
	for i := 1; i < len(output); i++ {
		if output[i] > output[best] {
			best = i
		}
	}

	return intent.Result{
		Label:      c.config.Labels[best],
		Confidence: intent.Clamp01(float64(output[best])),
		Source:     intent.SourceNeural,
	}, nil
}

// Rasterize draws the stroke into a size x size image. The stroke is centered
// and scaled uniformly so its largest dimension spans size-1 pixels, leaving a
// one pixel border.
func Rasterize(path []PathPoint, size int) []float32 {
	image := make([]float32, size*size)
	if len(path) == 0 {
		return image
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	extent := math.Max(maxX-minX, maxY-minY)
	scale := 0.0
	if extent > 0 {
		scale = float64(size-1) / extent
	}
	half := float64(size) / 2

	pixel := func(p PathPoint) (int, int) {
		x := int(math.Round((p.X-cx)*scale + half))
		y := int(math.Round((p.Y-cy)*scale + half))
		return clampInt(x, 0, size-1), clampInt(y, 0, size-1)
	}

	if len(path) == 1 {
		x, y := pixel(path[0])
		image[y*size+x] = 1
		return image
	}

	for i := 1; i < len(path); i++ {
		x1, y1 := pixel(path[i-1])
		x2, y2 := pixel(path[i])
		drawLine(image, size, x1, y1, x2, y2)
	}
	return image
}

// drawLine plots a line with Bresenham's algorithm.
func drawLine(image []float32, size, x1, y1, x2, y2 int) {
	dx := absInt(x2 - x1)
	dy := absInt(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	x, y := x1, y1
	for {
		image[y*size+x] = 1
		if x == x2 && y == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
