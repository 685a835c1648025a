package input

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReplayController replays controller frames recorded as JSON lines, one
// Controls object per line. It returns io.EOF once the recording ends.
type ReplayController struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenReplay opens a JSON lines recording.
func OpenReplay(path string) (*ReplayController, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	return &ReplayController{
		file:    f,
		scanner: bufio.NewScanner(f),
	}, nil
}

// Poll returns the next recorded frame.
func (r *ReplayController) Poll() (Controls, error) {
	for r.scanner.Scan() {
		r.line++
		data := r.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var c Controls
		if err := json.Unmarshal(data, &c); err != nil {
			return Controls{}, fmt.Errorf("replay line %d: %w", r.line, err)
		}
		return c, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Controls{}, err
	}
	return Controls{}, io.EOF
}

// Close closes the underlying file.
func (r *ReplayController) Close() error {
	return r.file.Close()
}
