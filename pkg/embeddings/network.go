package embeddings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
)

// Activation functions supported by dense layers.
const (
	ActivationLinear = "linear"
	ActivationReLU   = "relu"
	ActivationTanh   = "tanh"
)

// Layer is a dense layer: y = act(W·x + b). Weights has one row per output.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// Network is a pretrained feed-forward transform. It is never modified after
// loading and is safe for concurrent use.
type Network struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Layers  []Layer `json:"layers"`
}

// LoadNetwork reads a network from a JSON file and validates its shape.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, path)
		}
		return nil, err
	}

	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrModelInvalid, path, err)
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &n, nil
}

// Validate checks that consecutive layers have compatible shapes.
func (n *Network) Validate() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("%w: network %q has no layers", apperrors.ErrModelInvalid, n.Name)
	}

	in := 0
	for i, l := range n.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("%w: layer %d has no weights", apperrors.ErrModelInvalid, i)
		}
		if len(l.Bias) != len(l.Weights) {
			return fmt.Errorf("%w: layer %d has %d outputs but %d biases", apperrors.ErrModelInvalid, i, len(l.Weights), len(l.Bias))
		}
		width := len(l.Weights[0])
		if i > 0 && width != in {
			return fmt.Errorf("%w: layer %d expects %d inputs, previous layer produces %d", apperrors.ErrModelInvalid, i, width, in)
		}
		for _, row := range l.Weights {
			if len(row) != width || width == 0 {
				return fmt.Errorf("%w: layer %d has ragged weights", apperrors.ErrModelInvalid, i)
			}
		}
		switch l.Activation {
		case "", ActivationLinear, ActivationReLU, ActivationTanh:
		default:
			return fmt.Errorf("%w: layer %d has unknown activation %q", apperrors.ErrModelInvalid, i, l.Activation)
		}
		in = len(l.Weights)
	}
	return nil
}

// InputDim returns the expected input width.
func (n *Network) InputDim() int { return len(n.Layers[0].Weights[0]) }

// OutputDim returns the output width.
func (n *Network) OutputDim() int { return len(n.Layers[len(n.Layers)-1].Weights) }

// Forward applies the network to one input vector.
func (n *Network) Forward(x []float64) ([]float64, error) {
	if len(x) != n.InputDim() {
		return nil, fmt.Errorf("network %q expects %d inputs, got %d", n.Name, n.InputDim(), len(x))
	}

	out := x
	for _, l := range n.Layers {
		next := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * out[k]
			}
			next[j] = activate(l.Activation, sum)
		}
		out = next
	}
	return out, nil
}

func activate(name string, v float64) float64 {
	switch name {
	case ActivationReLU:
		return math.Max(0, v)
	case ActivationTanh:
		return math.Tanh(v)
	default:
		return v
	}
}
