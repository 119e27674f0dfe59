package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

type Activation int

const (
	ReLU Activation = iota
	LeakyReLU
	Sigmoid
	TanH
	Softmax
)

// leak is the slope of LeakyReLU below zero.
const leak = float32(0.01)

var activationNames = map[Activation]string{
	ReLU:      "ReLU",
	LeakyReLU: "LeakyReLU",
	Sigmoid:   "Sigmoid",
	TanH:      "TanH",
	Softmax:   "Softmax",
}

func (a Activation) String() string {
	if name, ok := activationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// ParseActivation maps a persisted activation name back to its Activation.
// "LReLU" is accepted as an older spelling of LeakyReLU.
func ParseActivation(name string) (Activation, error) {
	if name == "LReLU" {
		return LeakyReLU, nil
	}
	for a, n := range activationNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown activation function %q", ErrConfiguration, name)
}

// Apply computes the activation of the summed input x.
//
// Softmax cannot be computed one neuron at a time, so Apply forwards x
// unchanged and the layer finishes the job with softmax() once every neuron's
// sum is known.
func (a Activation) Apply(x float32) float32 {
	switch a {
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case LeakyReLU:
		if x < 0 {
			return x * leak
		}
		return x
	case Sigmoid:
		return 1 / (1 + math32.Exp(-x))
	case TanH:
		return math32.Tanh(x)
	case Softmax:
		return x
	default:
		panic("unhandled activation function")
	}
}

// Derivative computes the slope of the activation in terms of its output o,
// not its input.  Callers must pass the value Apply (or softmax) produced.
func (a Activation) Derivative(o float32) float32 {
	switch a {
	case ReLU:
		if o > 0 {
			return 1
		}
		return 0
	case LeakyReLU:
		if o > 0 {
			return 1
		}
		return leak
	case Sigmoid:
		return o * (1 - o)
	case TanH:
		return 1 - o*o
	case Softmax:
		// Diagonal of the softmax Jacobian only.
		return (1 - o) * o
	default:
		panic("unhandled activation function")
	}
}

// softmax normalizes v in place.  The maximum is subtracted before
// exponentiating so that large sums cannot overflow.
func softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	maxv := math32.Inf(-1)
	for _, x := range v {
		if x > maxv {
			maxv = x
		}
	}

	var scale float32
	for i, x := range v {
		e := math32.Exp(x - maxv)
		v[i] = e
		scale += e
	}
	for i := range v {
		v[i] /= scale
	}
}
