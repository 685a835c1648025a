package gesture

import (
	"fmt"
	"math"
	"sort"

	"github.com/ayusman/wandcast/internal/intent"
)

// Metric selects the shape distance used by the TemplateMatcher.
type Metric string

const (
	// MetricPointCloud scores with the $P greedy point-cloud distance.
	MetricPointCloud Metric = "pointcloud"
	// MetricDTW scores with dynamic time warping over the resampled strokes.
	MetricDTW Metric = "dtw"
)

// MatcherConfig holds configuration for the TemplateMatcher.
type MatcherConfig struct {
	Metric     Metric
	Resolution int // Points per normalized stroke
}

// DefaultMatcherConfig returns the point-cloud matcher at 32 points.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Metric:     MetricPointCloud,
		Resolution: DefaultResolution,
	}
}

// Match represents a scored candidate template.
type Match struct {
	Template *Template // The candidate template
	Index    int       // Position in the library
	Score    float64   // Confidence 0-1, higher is better
	Distance float64   // Raw metric distance
}

// TemplateMatcher classifies strokes against a library of labeled templates.
// The library must not be mutated concurrently with Classify.
type TemplateMatcher struct {
	config    MatcherConfig
	templates []*Template
	prepared  [][]PathPoint
}

// NewTemplateMatcher creates a new TemplateMatcher instance.
func NewTemplateMatcher(config MatcherConfig) *TemplateMatcher {
	if config.Resolution < 2 {
		config.Resolution = DefaultResolution
	}
	if config.Metric == "" {
		config.Metric = MetricPointCloud
	}
	return &TemplateMatcher{
		config:    config,
		templates: make([]*Template, 0),
	}
}

// Source identifies results produced by this matcher.
func (m *TemplateMatcher) Source() intent.Source {
	return intent.SourceTemplate
}

// AddTemplate appends a template to the library.
// Templates without points are ignored.
func (m *TemplateMatcher) AddTemplate(t *Template) {
	if t == nil || len(t.Points) == 0 {
		return
	}
	m.templates = append(m.templates, t)
	m.prepared = append(m.prepared, normalizePath(t.Points, m.config.Resolution))
}

// RemoveTemplate removes a template by its ID.
func (m *TemplateMatcher) RemoveTemplate(id string) {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			m.prepared = append(m.prepared[:i], m.prepared[i+1:]...)
			return
		}
	}
}

// SetLibrary replaces the whole library, preserving the given order.
func (m *TemplateMatcher) SetLibrary(templates []*Template) {
	m.templates = make([]*Template, 0, len(templates))
	m.prepared = make([][]PathPoint, 0, len(templates))
	for _, t := range templates {
		m.AddTemplate(t)
	}
}

// Templates returns the library in match order.
func (m *TemplateMatcher) Templates() []*Template {
	out := make([]*Template, len(m.templates))
	copy(out, m.templates)
	return out
}

// Len returns the number of templates in the library.
func (m *TemplateMatcher) Len() int {
	return len(m.templates)
}

// Classify returns the best matching label. When two templates score
// identically the one with the lowest library index wins.
func (m *TemplateMatcher) Classify(sample []PathPoint) (intent.Result, error) {
	if len(sample) == 0 {
		return intent.Result{}, ErrEmptySample
	}
	if len(m.templates) == 0 {
		return intent.Result{}, ErrEmptyLibrary
	}

	input := normalizePath(sample, m.config.Resolution)

	bestIndex := -1
	bestScore := math.Inf(-1)
	for i := range m.templates {
		score, _ := m.score(input, m.prepared[i])
		// Strict comparison keeps the earliest template on ties.
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex < 0 {
		return intent.Result{}, fmt.Errorf("no template could be scored")
	}

	return intent.Result{
		Label:      m.templates[bestIndex].Label,
		Confidence: intent.Clamp01(bestScore),
		Source:     intent.SourceTemplate,
	}, nil
}

// Rank scores every template and returns them best first. Equal scores keep
// library order.
func (m *TemplateMatcher) Rank(sample []PathPoint) ([]Match, error) {
	if len(sample) == 0 {
		return nil, ErrEmptySample
	}

	input := normalizePath(sample, m.config.Resolution)
	matches := make([]Match, 0, len(m.templates))
	for i, t := range m.templates {
		score, distance := m.score(input, m.prepared[i])
		matches = append(matches, Match{
			Template: t,
			Index:    i,
			Score:    score,
			Distance: distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// score returns the confidence and raw distance for two normalized strokes.
func (m *TemplateMatcher) score(input, template []PathPoint) (float64, float64) {
	switch m.config.Metric {
	case MetricDTW:
		distance := DTWDistance(input, template)
		if math.IsInf(distance, 1) {
			return 0, distance
		}
		return 1.0 / (1.0 + distance), distance
	default:
		distance := GreedyCloudMatch(input, template)
		return cloudScore(distance), distance
	}
}
