package toolbox

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
)

// gradientNetwork builds a small network whose weighted sums all stay
// positive, away from the ReLU kink.
func gradientNetwork(activation Activation) *Network {
	net := New(nil)
	net.AddInputLayer(3)
	net.AddLayer(4, false, activation, 0)
	net.AddLayer(2, false, activation, 0)
	for _, lay := range net.Layers()[1:] {
		for n := range lay.Neurons {
			for i := range lay.Neurons[n].Weights {
				lay.Neurons[n].Weights[i] = 0.1 + 0.05*float32((n+2*i)%4)
			}
			lay.Neurons[n].Bias = 0.05 * float32(n+1)
		}
	}
	return net
}

func sumSquaredError(net *Network, inputs, targets []float32) float64 {
	out := outputsFor(net, inputs)
	var sum float64
	for o := range out {
		d := float64(targets[o] - out[o])
		sum += d * d / 2
	}
	return sum
}

// Backpropagate moves each weight by -LearningRate times the gradient of the
// summed squared error, so -Error*input must match a finite difference.
func TestBackpropagateMatchesFiniteDifferences(t *testing.T) {
	inputs := []float32{0.2, 0.5, 0.9}
	targets := []float32{0.9, 0.1}
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-2}

	for _, activation := range []Activation{ReLU, LeakyReLU, Sigmoid, TanH} {
		t.Run(activation.String(), func(t *testing.T) {
			net := gradientNetwork(activation)
			net.SetInputs(inputs)
			net.FeedForward()
			net.SetTrainingOutputs(targets)
			net.Backpropagate()

			probe := gradientNetwork(activation)

			for l := 1; l < net.LayerCount(); l++ {
				lay := net.Layers()[l]
				probeLay := probe.Layers()[l]
				prev := lay.Previous()
				for n := range lay.Neurons {
					for i := range lay.Neurons[n].Weights {
						analytic := -float64(lay.Neurons[n].Error * prev.Neurons[i].Output)

						w := &probeLay.Neurons[n].Weights[i]
						orig := *w
						numeric := fd.Derivative(func(v float64) float64 {
							*w = float32(v)
							return sumSquaredError(probe, inputs, targets)
						}, float64(orig), settings)
						*w = orig

						checkGradient(t, l, n, i, analytic, numeric)
					}

					analytic := -float64(lay.Neurons[n].Error)
					b := &probeLay.Neurons[n].Bias
					orig := *b
					numeric := fd.Derivative(func(v float64) float64 {
						*b = float32(v)
						return sumSquaredError(probe, inputs, targets)
					}, float64(orig), settings)
					*b = orig

					checkGradient(t, l, n, -1, analytic, numeric)
				}
			}
		})
	}
}

func checkGradient(t *testing.T, layer, neuron, input int, analytic, numeric float64) {
	t.Helper()
	tolerance := 2e-3 + 0.05*math.Abs(numeric)
	if math.Abs(analytic-numeric) > tolerance {
		t.Errorf("Layer %d neuron %d input %d: backprop gradient %v, finite difference %v", layer, neuron, input, analytic, numeric)
	}
	if math.Abs(numeric) > 1e-3 && math.Signbit(analytic) != math.Signbit(numeric) {
		t.Errorf("Layer %d neuron %d input %d: gradient sign disagrees; backprop %v, finite difference %v", layer, neuron, input, analytic, numeric)
	}
}
