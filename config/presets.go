package config

import (
	"fmt"
	"slices"
	"sort"
)

func rate(v float32) *float32 {
	return &v
}

var presets = map[string]Run{
	// One output per class, so XOR trains as a two-way classification.
	"xor": {
		Seed:       1,
		Iterations: 20000,
		Window:     100,
		Layers: []Layer{
			{Neurons: 2},
			{Neurons: 3, Activation: "TanH", LearningRate: rate(0.1)},
			{Neurons: 2, Activation: "TanH", LearningRate: rate(0.1)},
		},
	},
	// Seven bits of a printable ASCII code in, one of four categories out.
	"chars": {
		Seed:       1,
		Iterations: 60000,
		Window:     2000,
		Layers: []Layer{
			{Neurons: 7},
			{Neurons: 10, Activation: "LeakyReLU", LearningRate: rate(0.01)},
			{Neurons: 4, Activation: "LeakyReLU", LearningRate: rate(0.01)},
		},
	},
	// 28x28 images in, ten digits out.
	"mnist": {
		Seed:       1,
		Iterations: 600000,
		Window:     10000,
		Workers:    PerCoreWorkers,
		Layers: []Layer{
			{Neurons: 784},
			{Neurons: 100, Activation: "Sigmoid", LearningRate: rate(0.1)},
			{Neurons: 10, Activation: "Sigmoid", LearningRate: rate(0.1)},
		},
	},
}

// Preset returns a copy of a built-in run.
func Preset(name string) (*Run, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q; have %v", name, PresetNames())
	}
	run := p
	run.Layers = slices.Clone(p.Layers)
	for l := range run.Layers {
		if lr := run.Layers[l].LearningRate; lr != nil {
			run.Layers[l].LearningRate = rate(*lr)
		}
	}
	return &run, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
