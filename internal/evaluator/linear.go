package evaluator

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

const DefaultLearningRate = 0.01

// Linear is a logistic model over the encoded planes. It is safe for
// concurrent use; training and evaluation serialize on a lock.
type Linear struct {
	mu           sync.RWMutex
	weights      []float64
	bias         float64
	learningRate float64
}

// linearFile is the gob payload.
type linearFile struct {
	Weights      []float64
	Bias         float64
	LearningRate float64
}

func NewLinear(learningRate float64) *Linear {
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	return &Linear{
		weights:      make([]float64, model.EncodedLen),
		learningRate: learningRate,
	}
}

func inputs(planes *model.Planes) []float64 {
	x := make([]float64, model.EncodedLen)
	for i, v := range planes {
		x[i] = float64(v)
	}
	return x
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func (l *Linear) predict(x []float64) float64 {
	return sigmoid(floats.Dot(l.weights, x) + l.bias)
}

func (l *Linear) Evaluate(ctx context.Context, planes model.Planes) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x := inputs(&planes)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.predict(x), nil
}

// TrainOnBatch runs one pass of stochastic gradient descent on the
// log-loss over batch.
func (l *Linear) TrainOnBatch(ctx context.Context, batch []Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := batch[i].Target
		if target < 0 || target > 1 {
			return fmt.Errorf("sample %d: target %v outside [0, 1]", i, target)
		}
		x := inputs(&batch[i].Planes)
		grad := l.predict(x) - target
		floats.AddScaled(l.weights, -l.learningRate*grad, x)
		l.bias -= l.learningRate * grad
	}
	return nil
}

// Loss is the mean log-loss over samples.
func (l *Linear) Loss(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	const eps = 1e-12
	l.mu.RLock()
	defer l.mu.RUnlock()
	losses := make([]float64, len(samples))
	for i := range samples {
		p := l.predict(inputs(&samples[i].Planes))
		y := samples[i].Target
		losses[i] = -(y*math.Log(p+eps) + (1-y)*math.Log(1-p+eps))
	}
	return floats.Sum(losses) / float64(len(losses))
}

func (l *Linear) Save(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return gob.NewEncoder(w).Encode(linearFile{
		Weights:      l.weights,
		Bias:         l.bias,
		LearningRate: l.learningRate,
	})
}

func (l *Linear) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadLinear(r io.Reader) (*Linear, error) {
	var lf linearFile
	if err := gob.NewDecoder(r).Decode(&lf); err != nil {
		return nil, fmt.Errorf("decoding linear evaluator: %w", err)
	}
	if len(lf.Weights) != model.EncodedLen {
		return nil, fmt.Errorf("linear evaluator has %d weights, want %d", len(lf.Weights), model.EncodedLen)
	}
	l := NewLinear(lf.LearningRate)
	l.weights = lf.Weights
	l.bias = lf.Bias
	return l, nil
}

// LoadLinearFile loads a saved model, or returns a fresh one if path does
// not exist yet.
func LoadLinearFile(path string, learningRate float64) (*Linear, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewLinear(learningRate), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLinear(f)
}
