package gesture

import "math"

// DefaultResolution is the number of points a stroke is resampled to before matching.
const DefaultResolution = 32

// pointDistance calculates the Euclidean distance between two PathPoints.
func pointDistance(a, b PathPoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// pathLength returns the total length of the polyline.
func pathLength(path []PathPoint) float64 {
	var length float64
	for i := 1; i < len(path); i++ {
		length += pointDistance(path[i-1], path[i])
	}
	return length
}

// resamplePath resamples a path to exactly n points spaced evenly along its length.
// The input slice is not modified.
func resamplePath(path []PathPoint, n int) []PathPoint {
	if len(path) == 0 || n <= 0 {
		return nil
	}
	if n == 1 {
		return []PathPoint{path[0]}
	}

	interval := pathLength(path) / float64(n-1)
	result := make([]PathPoint, 0, n)
	result = append(result, path[0])

	// Degenerate stroke: every point is the same position.
	if interval == 0 {
		for len(result) < n {
			result = append(result, path[0])
		}
		return result
	}

	prev := path[0]
	var accumulated float64
	for i := 1; i < len(path) && len(result) < n; {
		cur := path[i]
		d := pointDistance(prev, cur)
		if d > 0 && accumulated+d >= interval {
			frac := (interval - accumulated) / d
			q := PathPoint{
				X: prev.X + frac*(cur.X-prev.X),
				Y: prev.Y + frac*(cur.Y-prev.Y),
			}
			result = append(result, q)
			// q becomes the start of the next segment; cur is revisited.
			prev = q
			accumulated = 0
			continue
		}
		accumulated += d
		prev = cur
		i++
	}

	// Floating point rounding can leave the last point out.
	for len(result) < n {
		result = append(result, path[len(path)-1])
	}
	return result
}

// scalePath scales the path uniformly so its bounding box fits the unit square.
// Aspect ratio is preserved.
func scalePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	size := math.Max(maxX-minX, maxY-minY)
	scaled := make([]PathPoint, len(path))
	for i, p := range path {
		if size > 0 {
			scaled[i] = PathPoint{X: (p.X - minX) / size, Y: (p.Y - minY) / size}
		} else {
			scaled[i] = PathPoint{X: 0, Y: 0}
		}
	}
	return scaled
}

// translateToCentroid moves the path so its centroid is at the origin.
func translateToCentroid(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}

	var cx, cy float64
	for _, p := range path {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(path))
	cy /= float64(len(path))

	translated := make([]PathPoint, len(path))
	for i, p := range path {
		translated[i] = PathPoint{X: p.X - cx, Y: p.Y - cy}
	}
	return translated
}

// normalizePath resamples, scales and centers a stroke so that strokes drawn at
// different sizes, positions and speeds become comparable.
func normalizePath(path []PathPoint, n int) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	return translateToCentroid(scalePath(resamplePath(path, n)))
}
