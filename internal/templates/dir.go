package templates

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/gesture"
)

// TimestampLayout is the creation time encoded in template file names.
const TimestampLayout = "20060102_150405"

// Ext is the template file extension.
const Ext = ".xml"

// namespace seeds template IDs derived from file names.
var namespace = uuid.MustParse("6f1c1f0e-4a57-4c1b-9d0e-8a8f5f6b2c31")

var fileNamePattern = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})(?:_(\d+))?\.xml$`)

// File describes a template file on disk.
type File struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Dir is a directory of template files.
type Dir struct {
	path string
	log  *logrus.Entry
}

// NewDir returns a Dir rooted at path. The directory is created on first save.
func NewDir(path string) *Dir {
	return &Dir{
		path: path,
		log:  logrus.WithField("component", "templates"),
	}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// FileName returns the file name for a template recorded at t.
func FileName(label string, t time.Time) string {
	return sanitize(label) + "_" + t.Format(TimestampLayout) + Ext
}

// ParseFileName extracts the label and creation time from a template file
// name. ok is false for names that do not follow the pattern.
func ParseFileName(name string) (label string, created time.Time, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, false
	}
	created, err := time.ParseInLocation(TimestampLayout, m[2], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], created, true
}

// Save writes a new template file for label and returns its description.
// A second save within the same second gets a numeric suffix instead of
// overwriting the first.
func (d *Dir) Save(label string, points []gesture.PathPoint, now time.Time) (File, error) {
	if len(points) == 0 {
		return File{}, gesture.ErrEmptySample
	}
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return File{}, errors.Wrapf(err, "Can't create template directory %s", d.path)
	}

	base := strings.TrimSuffix(FileName(label, now), Ext)
	var (
		f    *os.File
		path string
		err  error
	)
	for n := 1; ; n++ {
		name := base + Ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, Ext)
		}
		path = filepath.Join(d.path, name)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return File{}, errors.Wrapf(err, "Can't create template file %s", path)
		}
	}

	if err := Encode(f, label, points); err != nil {
		f.Close()
		os.Remove(path)
		return File{}, err
	}
	if err := f.Close(); err != nil {
		return File{}, errors.Wrapf(err, "Can't close template file %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "Can't stat template file %s", path)
	}
	d.log.WithFields(logrus.Fields{"label": label, "file": info.Name()}).Info("Template saved")
	return File{
		Name:      info.Name(),
		Path:      path,
		Label:     label,
		CreatedAt: now,
		Size:      info.Size(),
	}, nil
}

// List returns the template files in the directory sorted by name.
// A missing directory yields an empty list.
func (d *Dir) List() ([]File, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []File{}, nil
		}
		return nil, errors.Wrapf(err, "Can't read template directory %s", d.path)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		f := File{
			Name:      e.Name(),
			Path:      filepath.Join(d.path, e.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		}
		if label, created, ok := ParseFileName(e.Name()); ok {
			f.Label = label
			f.CreatedAt = created
		}
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// ReadFile decodes one template file into one template per stroke.
func ReadFile(f File) ([]*gesture.Template, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open template %s", f.Name)
	}
	defer r.Close()

	name, strokes, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read template %s", f.Name)
	}

	out := make([]*gesture.Template, 0, len(strokes))
	for i, points := range strokes {
		out = append(out, &gesture.Template{
			ID:        TemplateID(f.Name, i),
			Label:     name,
			Points:    points,
			CreatedAt: f.CreatedAt,
		})
	}
	return out, nil
}

// TemplateID returns the stable ID of stroke index in file name.
func TemplateID(name string, index int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s#%d", name, index))).String()
}

// Load reads every template file in name order. Files that fail to parse are
// logged and skipped.
func (d *Dir) Load() ([]*gesture.Template, error) {
	files, err := d.List()
	if err != nil {
		return nil, err
	}

	library := make([]*gesture.Template, 0, len(files))
	for _, f := range files {
		tmpls, err := ReadFile(f)
		if err != nil {
			d.log.WithError(err).WithField("file", f.Name).Warn("Skipping unreadable template")
			continue
		}
		library = append(library, tmpls...)
	}
	return library, nil
}

// ExportFailure records a file that could not be exported.
type ExportFailure struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// ExportReport summarizes an export batch.
type ExportReport struct {
	Destination string          `json:"destination"`
	Copied      []string        `json:"copied"`
	Failed      []ExportFailure `json:"failed"`
}

// OK reports whether every file was copied.
func (r ExportReport) OK() bool {
	return len(r.Failed) == 0
}

// Export copies every template file into dest, overwriting files with the
// same name. A failed file is recorded in the report and the batch goes on.
// The returned error is only set when the batch could not start at all.
func (d *Dir) Export(dest string) (ExportReport, error) {
	report := ExportReport{
		Destination: dest,
		Copied:      []string{},
		Failed:      []ExportFailure{},
	}

	files, err := d.List()
	if err != nil {
		return report, err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return report, errors.Wrapf(err, "Can't create export directory %s", dest)
	}

	for _, f := range files {
		if err := copyFile(f.Path, filepath.Join(dest, f.Name)); err != nil {
			d.log.WithError(err).WithField("file", f.Name).Error("Template export failed")
			report.Failed = append(report.Failed, ExportFailure{Name: f.Name, Err: err.Error()})
			continue
		}
		report.Copied = append(report.Copied, f.Name)
	}

	d.log.WithFields(logrus.Fields{
		"destination": dest,
		"copied":      len(report.Copied),
		"failed":      len(report.Failed),
	}).Info("Template export finished")
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "Can't open source")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't open destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "Can't copy contents")
	}
	return out.Close()
}

func sanitize(label string) string {
	label = strings.TrimSpace(label)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, label)
}
