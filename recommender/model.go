package recommender

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelNotFound reports that none of the configured model artifacts exists.
var ErrModelNotFound = errors.New("model artifact not found")

// Scorer exposes the minimal surface required by the service layer: one fixed-length
// sequence in, one score per vocabulary token out.
type Scorer interface {
	Predict(ctx context.Context, seq Sequence) ([]float32, error)
	Close() error
}

// ScoreFunc adapts a plain function to the Scorer interface.
type ScoreFunc func(ctx context.Context, seq Sequence) ([]float32, error)

// Predict calls f.
func (f ScoreFunc) Predict(ctx context.Context, seq Sequence) ([]float32, error) {
	return f(ctx, seq)
}

// Close is a no-op.
func (f ScoreFunc) Close() error { return nil }

// InputDType is the element type the model declares for its sequence input.
type InputDType string

const (
	DTypeFloat32 InputDType = "float32"
	DTypeInt32   InputDType = "int32"
	DTypeInt64   InputDType = "int64"
)

// ModelSignature describes the model's single input and output.
type ModelSignature struct {
	Path        string     `json:"path"`
	InputName   string     `json:"inputName"`
	InputDType  InputDType `json:"inputDType"`
	InputShape  []int64    `json:"inputShape"`
	OutputName  string     `json:"outputName"`
	OutputShape []int64    `json:"outputShape"`
}

// OrtModel is a thin wrapper over an onnxruntime session. Predict calls are serialized.
type OrtModel struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	sig         ModelSignature
	maxLen      int
	outputWidth int
	ownsEnv     bool
}

// ResolveModelPath returns the first model artifact that exists.
func ResolveModelPath(paths []string) (string, error) {
	var tried []string
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tried = append(tried, p)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried: %s)", ErrModelNotFound, strings.Join(tried, ", "))
}

// NewOrtModel initializes the runtime, inspects the model signature and opens a session.
// vocabSize is used as the output width when the model leaves that dimension dynamic.
func NewOrtModel(cfg ModelConfig, maxLen, vocabSize int) (*OrtModel, error) {
	path, err := ResolveModelPath(cfg.ModelPaths)
	if err != nil {
		return nil, err
	}
	ownsEnv := false
	if !ort.IsInitialized() {
		if cfg.OrtLib != "" {
			ort.SetSharedLibraryPath(cfg.OrtLib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
		ownsEnv = true
	}
	m := &OrtModel{maxLen: maxLen, ownsEnv: ownsEnv}
	sig, err := ProbeModel(path, cfg.InputName, cfg.OutputName)
	if err != nil {
		m.releaseEnv()
		return nil, err
	}
	m.sig = sig
	m.outputWidth = vocabSize
	if n := len(sig.OutputShape); n > 0 && sig.OutputShape[n-1] > 0 {
		m.outputWidth = int(sig.OutputShape[n-1])
	}
	if m.outputWidth <= 0 {
		m.releaseEnv()
		return nil, fmt.Errorf("model %s: unknown output width", path)
	}
	if n := len(sig.InputShape); n > 0 && sig.InputShape[n-1] > 0 && int(sig.InputShape[n-1]) != maxLen {
		m.releaseEnv()
		return nil, fmt.Errorf("model %s expects sequences of %d tokens, mappings declare max_len=%d", path, sig.InputShape[n-1], maxLen)
	}
	session, err := ort.NewDynamicAdvancedSession(path, []string{sig.InputName}, []string{sig.OutputName}, nil)
	if err != nil {
		m.releaseEnv()
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.session = session
	return m, nil
}

// InspectModel resolves the model path and reads its signature without opening a
// session. It initializes the runtime when needed and tears it down again.
func InspectModel(cfg ModelConfig) (ModelSignature, error) {
	path, err := ResolveModelPath(cfg.ModelPaths)
	if err != nil {
		return ModelSignature{}, err
	}
	if !ort.IsInitialized() {
		if cfg.OrtLib != "" {
			ort.SetSharedLibraryPath(cfg.OrtLib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return ModelSignature{}, fmt.Errorf("initialize onnxruntime: %w", err)
		}
		defer func() { _ = ort.DestroyEnvironment() }()
	}
	return ProbeModel(path, cfg.InputName, cfg.OutputName)
}

// ProbeModel reads the input/output signature of an ONNX file. Empty names select the
// first input and output. The runtime must already be initialized.
func ProbeModel(path, inputName, outputName string) (ModelSignature, error) {
	sig := ModelSignature{Path: path}
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return sig, fmt.Errorf("inspect model %s: %w", path, err)
	}
	in, ok := pickInfo(inputs, inputName)
	if !ok {
		return sig, fmt.Errorf("model %s: input %q not found", path, inputName)
	}
	out, ok := pickInfo(outputs, outputName)
	if !ok {
		return sig, fmt.Errorf("model %s: output %q not found", path, outputName)
	}
	switch in.DataType {
	case ort.TensorElementDataTypeFloat:
		sig.InputDType = DTypeFloat32
	case ort.TensorElementDataTypeInt32:
		sig.InputDType = DTypeInt32
	case ort.TensorElementDataTypeInt64:
		sig.InputDType = DTypeInt64
	default:
		return sig, fmt.Errorf("model %s: unsupported input type %v", path, in.DataType)
	}
	if out.DataType != ort.TensorElementDataTypeFloat {
		return sig, fmt.Errorf("model %s: unsupported output type %v", path, out.DataType)
	}
	sig.InputName = in.Name
	sig.InputShape = append([]int64(nil), in.Dimensions...)
	sig.OutputName = out.Name
	sig.OutputShape = append([]int64(nil), out.Dimensions...)
	return sig, nil
}

func pickInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, false
	}
	if name == "" {
		return infos[0], true
	}
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return ort.InputOutputInfo{}, false
}

// Signature returns the probed model signature.
func (m *OrtModel) Signature() ModelSignature {
	return m.sig
}

// Predict runs the model on a (1, max_len) batch and returns the (1, vocab) scores.
func (m *OrtModel) Predict(ctx context.Context, seq Sequence) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(seq) != m.maxLen {
		return nil, fmt.Errorf("sequence length %d, model expects %d", len(seq), m.maxLen)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errors.New("model is closed")
	}
	input, err := m.newInput(seq)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.outputWidth)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()
	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	return cloneVector(output.GetData()), nil
}

func (m *OrtModel) newInput(seq Sequence) (ort.Value, error) {
	shape := ort.NewShape(1, int64(len(seq)))
	switch m.sig.InputDType {
	case DTypeInt32:
		t, err := ort.NewTensor(shape, seq.Int32())
		if err != nil {
			return nil, err
		}
		return t, nil
	case DTypeInt64:
		t, err := ort.NewTensor(shape, seq.Int64())
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		t, err := ort.NewTensor(shape, seq.Float32())
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Close releases ORT resources.
func (m *OrtModel) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	m.releaseEnv()
	return err
}

func (m *OrtModel) releaseEnv() {
	if m.ownsEnv {
		_ = ort.DestroyEnvironment()
		m.ownsEnv = false
	}
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
