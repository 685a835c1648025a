package inference

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestONNXEngine_MissingModel(t *testing.T) {
	e := NewONNXEngine(Config{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")})
	defer e.Close()

	if err := e.StartWarmup(); err == nil {
		t.Error("expected error for missing model file")
	}
	if e.IsWarmedUp() {
		t.Error("engine should not be warm without a model")
	}
}

func TestONNXEngine_WrongInputSize(t *testing.T) {
	e := NewONNXEngine(Config{ImageSize: 4})
	e.ready.Store(true)
	defer e.Close()

	if _, err := e.Infer(make([]float32, 3)); err == nil || errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected input size error, got %v", err)
	}
}

func TestONNXEngine_InferBeforeLoad(t *testing.T) {
	e := NewONNXEngine(Config{})
	defer e.Close()

	if _, err := e.Infer(make([]float32, 28*28)); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestInputBlob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	const size = 4
	pixels := make([]float32, size*size)
	for i := range pixels {
		pixels[i] = float32(i) / 10
	}

	tests := []struct {
		layout Layout
		shape  []int
	}{
		{LayoutNHWC, []int{1, size, size, 1}},
		{LayoutNCHW, []int{1, 1, size, size}},
	}

	for _, tt := range tests {
		t.Run(string(tt.layout), func(t *testing.T) {
			blob, err := inputBlob(pixels, size, tt.layout)
			if err != nil {
				t.Fatalf("inputBlob() error = %v", err)
			}
			defer blob.Close()

			if got := blob.Size(); !reflect.DeepEqual(got, tt.shape) {
				t.Errorf("shape = %v, want %v", got, tt.shape)
			}
			data, err := blob.DataPtrFloat32()
			if err != nil {
				t.Fatalf("DataPtrFloat32() error = %v", err)
			}
			if !reflect.DeepEqual(data, pixels) {
				t.Errorf("tensor data = %v, want row-major pixels %v", data, pixels)
			}
		})
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in      string
		want    Layout
		wantErr bool
	}{
		{"", LayoutNHWC, false},
		{"nhwc", LayoutNHWC, false},
		{"nchw", LayoutNCHW, false},
		{"chw", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLayout(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLayout(%q) = %q, %v", tt.in, got, err)
		}
	}
}
