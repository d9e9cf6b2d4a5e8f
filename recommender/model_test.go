package recommender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveModelPath(t *testing.T) {
	dir := t.TempDir()
	second := writeFile(t, dir, "model.onnx", "not really onnx")
	if err := os.Mkdir(filepath.Join(dir, "dir.onnx"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveModelPath([]string{filepath.Join(dir, "melhor_modelo.onnx"), filepath.Join(dir, "dir.onnx"), " ", second})
	if err != nil || got != second {
		t.Errorf("ResolveModelPath = %q, %v; want %q", got, err, second)
	}

	missing := filepath.Join(dir, "none.onnx")
	_, err = ResolveModelPath([]string{missing})
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error %q does not list the tried path", err)
	}
}

func TestScoreFunc(t *testing.T) {
	var scorer Scorer = ScoreFunc(func(_ context.Context, seq Sequence) ([]float32, error) {
		return seq.Float32(), nil
	})
	got, err := scorer.Predict(context.Background(), Sequence{0, 2})
	if err != nil || len(got) != 2 || got[1] != 2 {
		t.Errorf("Predict = %v, %v", got, err)
	}
	if err := scorer.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
