package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"gorgonia.org/tensor"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

// ONNX runs an exported network. The network takes a (1, 12, 8, 8) float
// tensor and its first output's first element is white's expected score.
// Training happens elsewhere; TrainOnBatch always fails.
type ONNX struct {
	mu      sync.Mutex
	backend *gorgonnx.Graph
	model   *onnx.Model
}

func NewONNX(b []byte) (*ONNX, error) {
	backend := gorgonnx.NewGraph()
	m := onnx.NewModel(backend)
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("unmarshal onnx model: %w", err)
	}
	return &ONNX{backend: backend, model: m}, nil
}

func LoadONNXFile(path string) (*ONNX, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewONNX(b)
}

func (o *ONNX) Evaluate(ctx context.Context, planes model.Planes) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	backing := make([]float32, model.EncodedLen)
	copy(backing, planes[:])
	input := tensor.New(tensor.WithShape(1, model.PlaneCount, 8, 8), tensor.WithBacking(backing))

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.model.SetInput(0, input); err != nil {
		return 0, err
	}
	if err := o.backend.Run(); err != nil {
		return 0, fmt.Errorf("onnx inference: %w", err)
	}
	output, err := o.model.GetOutputTensors()
	if err != nil {
		return 0, err
	}
	if len(output) == 0 {
		return 0, errors.New("onnx model produced no output")
	}
	data, ok := output[0].Data().([]float32)
	if !ok || len(data) == 0 {
		return 0, fmt.Errorf("unexpected onnx output %T", output[0].Data())
	}
	return max(0, min(1, float64(data[0]))), nil
}

func (o *ONNX) TrainOnBatch(context.Context, []Sample) error {
	return ErrNotTrainable
}
