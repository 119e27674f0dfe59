// Package config describes a training run in YAML: the network topology,
// how long to train and how to run the per-neuron loops.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/ahmedtd/perceptron/toolbox"
	"gopkg.in/yaml.v3"
)

// Layer is one entry of Run.Layers.  The first entry is the input layer and
// only uses Neurons.
type Layer struct {
	Neurons      int      `yaml:"neurons"`
	Activation   string   `yaml:"activation,omitempty"`
	LearningRate *float32 `yaml:"learning_rate,omitempty"`
}

type Run struct {
	Seed       int64   `yaml:"seed"`
	Iterations int     `yaml:"iterations"`
	Window     int     `yaml:"window"`
	Workers    int     `yaml:"workers"`
	Encoding   string  `yaml:"encoding"`
	Layers     []Layer `yaml:"layers"`
}

const (
	DefaultIterations = 100000
	DefaultWindow     = 1000
)

// Workers values with special meanings.
const (
	SequentialWorkers = 0
	PerCoreWorkers    = -1
)

// Load decodes and validates a run.  Unknown keys are rejected.  Missing
// iterations and window take their defaults.
func Load(r io.Reader) (*Run, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	run := &Run{}
	if err := dec.Decode(run); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("run configuration is empty")
		}
		return nil, fmt.Errorf("while parsing run configuration: %w", err)
	}
	if run.Iterations == 0 {
		run.Iterations = DefaultIterations
	}
	if run.Window == 0 {
		run.Window = DefaultWindow
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}

func LoadFile(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening run configuration: %w", err)
	}
	defer f.Close()

	run, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}

func (run *Run) Validate() error {
	if run.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", run.Iterations)
	}
	if run.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", run.Window)
	}
	if run.Workers < PerCoreWorkers {
		return fmt.Errorf("workers must be %d, %d or a positive count, got %d", SequentialWorkers, PerCoreWorkers, run.Workers)
	}
	if _, err := toolbox.ParseEncoding(run.Encoding); err != nil {
		return err
	}
	if len(run.Layers) < 2 {
		return fmt.Errorf("need an input layer and at least one more, got %d layers", len(run.Layers))
	}
	for l, lay := range run.Layers {
		if lay.Neurons <= 0 {
			return fmt.Errorf("layer %d: neurons must be positive, got %d", l, lay.Neurons)
		}
		if l == 0 {
			continue
		}
		if _, err := toolbox.ParseActivation(lay.Activation); err != nil {
			return fmt.Errorf("layer %d: %w", l, err)
		}
		if lr := lay.LearningRate; lr != nil && !(*lr >= 0 && !math.IsInf(float64(*lr), 0)) {
			return fmt.Errorf("layer %d: learning rate must be finite and not negative, got %v", l, *lr)
		}
	}
	return nil
}

// WeightEncoding is the encoding networks from this run are saved with.
func (run *Run) WeightEncoding() toolbox.Encoding {
	enc, err := toolbox.ParseEncoding(run.Encoding)
	if err != nil {
		return toolbox.HexEncoding
	}
	return enc
}

// Executor maps Workers onto a toolbox executor.
func (run *Run) Executor() toolbox.Executor {
	switch {
	case run.Workers == SequentialWorkers:
		return toolbox.Sequential{}
	case run.Workers == PerCoreWorkers:
		return toolbox.DefaultPartitioned()
	default:
		return toolbox.Partitioned{Workers: run.Workers, MinChunk: 8}
	}
}

// Rand returns a generator seeded from Seed.
func (run *Run) Rand() *rand.Rand {
	return rand.New(rand.NewSource(run.Seed))
}

// Build creates a randomized network with the run's layers and executor.
func (run *Run) Build(rng *rand.Rand) (*toolbox.Network, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}

	net := toolbox.New(rng)
	net.AddInputLayer(run.Layers[0].Neurons)
	net.SetExecutor(run.Executor())
	for _, lay := range run.Layers[1:] {
		activation, _ := toolbox.ParseActivation(lay.Activation)
		learningRate := toolbox.DefaultLearningRate
		if lay.LearningRate != nil {
			learningRate = *lay.LearningRate
		}
		net.AddLayer(lay.Neurons, true, activation, learningRate)
	}
	return net, nil
}

// Matches reports whether net has the run's layer sizes.
func (run *Run) Matches(net *toolbox.Network) error {
	if net.LayerCount() != len(run.Layers) {
		return fmt.Errorf("network has %d layers, run configuration has %d", net.LayerCount(), len(run.Layers))
	}
	for l, lay := range net.Layers() {
		if lay.NeuronCount() != run.Layers[l].Neurons {
			return fmt.Errorf("layer %d: network has %d neurons, run configuration has %d", l, lay.NeuronCount(), run.Layers[l].Neurons)
		}
	}
	return nil
}
