package toolbox

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
)

// Network is a chain of layers from the input layer to the output layer.
// Layers can only be appended.
type Network struct {
	layers []*Layer

	inputLayer  *Layer
	outputLayer *Layer

	// targets is sized to the output layer and read by Backpropagate.
	targets []float32

	fedForward bool
	targetsSet bool

	rand *rand.Rand
}

// New creates an empty network drawing its random weights from r.  A nil r
// gets a generator seeded from the clock.
func New(r *rand.Rand) *Network {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Network{rand: r}
}

// AddLayer appends a layer of neuronCount neurons fed by the current last
// layer.  The first layer added becomes the input layer; its activation and
// learning rate are kept but never used.
func (net *Network) AddLayer(neuronCount int, randomize bool, activation Activation, learningRate float32) *Layer {
	if neuronCount <= 0 {
		configPanic("invalid neuron count %d", neuronCount)
	}
	if _, ok := activationNames[activation]; !ok {
		configPanic("invalid activation %v", activation)
	}

	lay := newLayer(net, len(net.layers), neuronCount, activation, learningRate)
	if prev := net.outputLayer; prev != nil {
		lay.Executor = prev.Executor
	}
	net.layers = append(net.layers, lay)

	if randomize && !lay.IsInput() {
		lay.Randomize()
	}

	if lay.IsInput() {
		net.inputLayer = lay
	}
	net.outputLayer = lay
	net.targets = make([]float32, neuronCount)
	net.targetsSet = false
	net.fedForward = false

	return lay
}

// AddInputLayer appends the input layer.  It must be the first layer added.
func (net *Network) AddInputLayer(neuronCount int) *Layer {
	if len(net.layers) != 0 {
		usagePanic("input layer must be added first; network already has %d layers", len(net.layers))
	}
	return net.AddLayer(neuronCount, false, TanH, DefaultLearningRate)
}

func (net *Network) Layers() []*Layer {
	return net.layers
}

func (net *Network) LayerCount() int {
	return len(net.layers)
}

func (net *Network) InputLayer() *Layer {
	return net.inputLayer
}

func (net *Network) OutputLayer() *Layer {
	return net.outputLayer
}

func (net *Network) InputCount() int {
	if net.inputLayer == nil {
		return 0
	}
	return net.inputLayer.NeuronCount()
}

func (net *Network) OutputCount() int {
	if net.outputLayer == nil {
		return 0
	}
	return net.outputLayer.NeuronCount()
}

// Randomize forgets all training in every layer.
func (net *Network) Randomize() {
	for _, lay := range net.layers {
		if !lay.IsInput() {
			lay.Randomize()
		}
	}
}

// SetExecutor changes how every layer runs its per-neuron loops.  Layers
// added later inherit it.
func (net *Network) SetExecutor(e Executor) {
	for _, lay := range net.layers {
		lay.Executor = e
	}
}

func (net *Network) SetAllLearningRates(learningRate float32) {
	for _, lay := range net.layers {
		if !lay.IsInput() {
			lay.LearningRate = learningRate
		}
	}
}

func (net *Network) mustHaveLayers() {
	if len(net.layers) == 0 {
		usagePanic("network has no layers")
	}
}

// SetInputs copies values into the input layer.
func (net *Network) SetInputs(values []float32) {
	net.mustHaveLayers()
	neurons := net.inputLayer.Neurons
	if len(values) != len(neurons) {
		configPanic("%d inputs for %d input neurons", len(values), len(neurons))
	}
	for n := range neurons {
		neurons[n].Output = values[n]
	}
}

// GetOutputs copies the output layer's values into outputs.
func (net *Network) GetOutputs(outputs []float32) {
	net.mustHaveLayers()
	net.outputLayer.Outputs(outputs)
}

// FeedForward runs every layer after the input layer, front to back.
func (net *Network) FeedForward() {
	net.mustHaveLayers()
	for _, lay := range net.layers[1:] {
		lay.FeedForward()
	}
	net.fedForward = true
}

// Backpropagate performs one step of online training against the targets set
// with SetTrainingOutputs or SetTrainingClassification.  FeedForward must
// have been called on the current inputs first.
func (net *Network) Backpropagate() {
	net.mustHaveLayers()
	if !net.fedForward {
		usagePanic("Backpropagate called before FeedForward")
	}
	if !net.targetsSet {
		usagePanic("Backpropagate called before training outputs were set")
	}
	for l := len(net.layers) - 1; l > 0; l-- {
		net.layers[l].Backpropagate(net.targets)
	}
}

// Classify returns the index of the largest output, the first one on ties.
// It returns -1 when that largest output is exactly zero.
func (net *Network) Classify() int {
	net.mustHaveLayers()
	best := -1
	bestValue := math32.Inf(-1)
	for o, neuron := range net.outputLayer.Neurons {
		if neuron.Output > bestValue {
			best = o
			bestValue = neuron.Output
		}
	}
	if bestValue == 0 {
		return -1
	}
	return best
}

// SetTrainingOutputs copies the desired outputs for the next Backpropagate.
func (net *Network) SetTrainingOutputs(outputs []float32) {
	net.mustHaveLayers()
	if len(outputs) != len(net.targets) {
		configPanic("%d training outputs for %d output neurons", len(outputs), len(net.targets))
	}
	copy(net.targets, outputs)
	net.targetsSet = true
}

// SetTrainingClassification is the inverse of Classify: it sets the target
// for class to 1 and every other target to 0.
func (net *Network) SetTrainingClassification(class int) {
	net.mustHaveLayers()
	if class < 0 || class >= len(net.targets) {
		configPanic("class %d out of range [0, %d)", class, len(net.targets))
	}
	for o := range net.targets {
		if o == class {
			net.targets[o] = 1
		} else {
			net.targets[o] = 0
		}
	}
	net.targetsSet = true
}

// TrainingOutputs returns a copy of the current targets.
func (net *Network) TrainingOutputs() []float32 {
	out := make([]float32, len(net.targets))
	copy(out, net.targets)
	return out
}

// Loss is the mean squared error between the outputs and the current
// targets, halved.
func (net *Network) Loss() float32 {
	net.mustHaveLayers()
	var loss float32
	for o, neuron := range net.outputLayer.Neurons {
		diff := net.targets[o] - neuron.Output
		loss += diff * diff / 2
	}
	return loss / float32(len(net.targets))
}

// CountInputWeights is the number of weights across all layers, biases not
// included.
func (net *Network) CountInputWeights() int {
	count := 0
	for _, lay := range net.layers {
		for n := range lay.Neurons {
			count += len(lay.Neurons[n].Weights)
		}
	}
	return count
}

func (net *Network) WeightL1() float32 {
	var sum float32
	for _, lay := range net.layers {
		sum += lay.WeightL1()
	}
	return sum
}

func (net *Network) WeightL2() float32 {
	var sum float32
	for _, lay := range net.layers {
		sum += lay.WeightL2()
	}
	return sum
}

// Clone returns an independent copy of the network's topology, weights and
// learning rates, made by a round trip through the persisted format.  The
// clone shares the random generator and executor settings of the original.
func (net *Network) Clone() *Network {
	var buf bytes.Buffer
	if err := EncodeNetwork(&buf, net, HexEncoding); err != nil {
		panic(fmt.Sprintf("while encoding network for clone: %v", err))
	}
	clone, err := DecodeNetwork(&buf, net.rand)
	if err != nil {
		panic(fmt.Sprintf("while decoding network for clone: %v", err))
	}
	for l, lay := range net.layers {
		clone.layers[l].Executor = lay.Executor
	}
	return clone
}
