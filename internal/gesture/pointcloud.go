package gesture

import "math"

// GreedyCloudMatch returns the $P point-cloud distance between two normalized
// clouds of equal size. Lower is better; identical clouds score 0.
func GreedyCloudMatch(points, template []PathPoint) float64 {
	n := len(points)
	if n == 0 || n != len(template) {
		return math.Inf(1)
	}

	step := int(math.Floor(math.Pow(float64(n), 0.5)))
	if step < 1 {
		step = 1
	}

	best := math.Inf(1)
	for i := 0; i < n; i += step {
		d1 := cloudDistance(points, template, i)
		d2 := cloudDistance(template, points, i)
		best = math.Min(best, math.Min(d1, d2))
	}
	return best
}

// cloudDistance greedily pairs each point of a, starting at index start, with
// its nearest unmatched point of b. Earlier pairings weigh more.
func cloudDistance(a, b []PathPoint, start int) float64 {
	n := len(a)
	matched := make([]bool, n)

	var sum float64
	i := start
	for {
		index := -1
		minDist := math.Inf(1)
		for j := range b {
			if matched[j] {
				continue
			}
			if d := pointDistance(a[i], b[j]); d < minDist {
				minDist = d
				index = j
			}
		}
		if index < 0 {
			return math.Inf(1)
		}
		matched[index] = true

		weight := 1 - float64((i-start+n)%n)/float64(n)
		sum += weight * minDist

		i = (i + 1) % n
		if i == start {
			break
		}
	}
	return sum
}

// cloudScore converts a point-cloud distance to a confidence in [0, 1].
func cloudScore(distance float64) float64 {
	return math.Max((2.0-distance)/2.0, 0)
}
