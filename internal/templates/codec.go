// Package templates reads, writes and exports gesture template files.
package templates

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ayusman/wandcast/internal/gesture"
)

type xmlGesture struct {
	XMLName xml.Name    `xml:"Gesture"`
	Name    string      `xml:"Name,attr"`
	Strokes []xmlStroke `xml:"Stroke"`
}

type xmlStroke struct {
	Index  int        `xml:"index,attr"`
	Points []xmlPoint `xml:"Point"`
}

type xmlPoint struct {
	X string `xml:"X,attr"`
	Y string `xml:"Y,attr"`
}

// Encode writes a single-stroke gesture named label.
func Encode(w io.Writer, label string, points []gesture.PathPoint) error {
	doc := xmlGesture{
		Name:    label,
		Strokes: []xmlStroke{{Index: 1, Points: make([]xmlPoint, len(points))}},
	}
	for i, p := range points {
		doc.Strokes[0].Points[i] = xmlPoint{
			X: strconv.FormatFloat(p.X, 'f', -1, 64),
			Y: strconv.FormatFloat(p.Y, 'f', -1, 64),
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "Can't write xml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrapf(err, "Can't encode gesture %s", label)
	}
	return enc.Flush()
}

// Decode reads a gesture file and returns its name and one point list per stroke.
// Empty strokes are skipped.
func Decode(r io.Reader) (string, [][]gesture.PathPoint, error) {
	var doc xmlGesture
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, errors.Wrap(err, "Can't decode gesture xml")
	}
	if doc.Name == "" {
		return "", nil, errors.New("gesture has no Name attribute")
	}

	strokes := make([][]gesture.PathPoint, 0, len(doc.Strokes))
	for _, s := range doc.Strokes {
		if len(s.Points) == 0 {
			continue
		}
		path := make([]gesture.PathPoint, len(s.Points))
		for i, p := range s.Points {
			x, err := strconv.ParseFloat(p.X, 64)
			if err != nil {
				return "", nil, errors.Wrapf(err, "Can't parse X of point %d in stroke %d", i, s.Index)
			}
			y, err := strconv.ParseFloat(p.Y, 64)
			if err != nil {
				return "", nil, errors.Wrapf(err, "Can't parse Y of point %d in stroke %d", i, s.Index)
			}
			path[i] = gesture.PathPoint{X: x, Y: y}
		}
		strokes = append(strokes, path)
	}
	return doc.Name, strokes, nil
}
