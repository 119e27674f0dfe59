package toolbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Encoding selects how weights and biases are written by EncodeNetwork.
// Both encodings reproduce every float32 exactly.
type Encoding int

const (
	// HexEncoding writes the 32-bit pattern of each value as 8 hex digits.
	HexEncoding Encoding = iota
	// DecimalEncoding writes each value with 9 significant digits.
	DecimalEncoding
)

func (e Encoding) String() string {
	switch e {
	case HexEncoding:
		return "hex"
	case DecimalEncoding:
		return "decimal"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding accepts "hex" and "decimal".  An empty name means hex, which
// is what documents without an "encoding" field contain.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "", "hex":
		return HexEncoding, nil
	case "decimal":
		return DecimalEncoding, nil
	default:
		return 0, configErrorf("unknown weight encoding %q", name)
	}
}

type networkDocument struct {
	Encoding string          `json:"encoding,omitempty"`
	Layers   []layerDocument `json:"layers"`
}

// layerDocument describes one layer.  The input layer only has NeuronCount.
type layerDocument struct {
	NeuronCount        int      `json:"neuronCount"`
	LearningRate       *float32 `json:"learningRate,omitempty"`
	ActivationFunction string   `json:"activationFunction,omitempty"`

	// Row-major: all of neuron 0's weights, then neuron 1's, and so on.
	InputWeights string `json:"inputWeights,omitempty"`
	BiasWeights  string `json:"biasWeights,omitempty"`
}

// Bounds on what a persisted network may ask us to allocate.
const (
	MaxNeuronCount  = 1 << 20
	MaxLayerWeights = 1 << 26
)

// checkLayerSize rejects persisted layer sizes that are out of range before
// anything is allocated for them.  prevCount is 0 for the input layer.
func checkLayerSize(l, neuronCount, prevCount int) error {
	if neuronCount <= 0 || neuronCount > MaxNeuronCount {
		return configErrorf("layer %d: invalid neuron count %d, want 1 to %d", l, neuronCount, MaxNeuronCount)
	}
	if prevCount > 0 && neuronCount > MaxLayerWeights/prevCount {
		return configErrorf("layer %d: %d neurons x %d inputs exceeds %d weights", l, neuronCount, prevCount, MaxLayerWeights)
	}
	return nil
}

// EncodeNetwork writes net to w as a JSON document, layers in input to output
// order.  Learning rates are plain JSON numbers, so a layer whose learning
// rate is NaN or infinite cannot be encoded; use the safetensors form for
// those.
func EncodeNetwork(w io.Writer, net *Network, enc Encoding) error {
	if enc != HexEncoding && enc != DecimalEncoding {
		return configErrorf("unknown weight encoding %v", enc)
	}
	for _, lay := range net.layers {
		if !lay.IsInput() && (math.IsNaN(float64(lay.LearningRate)) || math.IsInf(float64(lay.LearningRate), 0)) {
			return configErrorf("layer %d: learning rate %v cannot be written as JSON", lay.index, lay.LearningRate)
		}
	}

	doc := networkDocument{
		Encoding: enc.String(),
		Layers:   make([]layerDocument, len(net.layers)),
	}
	for l, lay := range net.layers {
		ld := layerDocument{NeuronCount: lay.NeuronCount()}
		if !lay.IsInput() {
			learningRate := lay.LearningRate
			ld.LearningRate = &learningRate
			ld.ActivationFunction = lay.Activation.String()

			var weights, biases strings.Builder
			for n := range lay.Neurons {
				for _, v := range lay.Neurons[n].Weights {
					appendValue(&weights, v, enc)
				}
				appendValue(&biases, lay.Neurons[n].Bias, enc)
			}
			ld.InputWeights = weights.String()
			ld.BiasWeights = biases.String()
		}
		doc.Layers[l] = ld
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(&doc); err != nil {
		return fmt.Errorf("while writing network document: %w", err)
	}
	return nil
}

func appendValue(b *strings.Builder, v float32, enc Encoding) {
	if b.Len() > 0 {
		b.WriteByte(',')
	}
	switch enc {
	case HexEncoding:
		fmt.Fprintf(b, "%08X", math.Float32bits(v))
	case DecimalEncoding:
		b.WriteString(strconv.FormatFloat(float64(v), 'g', 9, 32))
	}
}

func parseValues(s string, enc Encoding) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	values := make([]float32, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		switch enc {
		case HexEncoding:
			bits, err := strconv.ParseUint(f, 16, 32)
			if err != nil {
				return nil, configErrorf("value %d: bad hex float %q", i, f)
			}
			values[i] = math.Float32frombits(uint32(bits))
		case DecimalEncoding:
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, configErrorf("value %d: bad decimal float %q", i, f)
			}
			values[i] = float32(v)
		}
	}
	return values, nil
}

// DecodeNetwork reads a document written by EncodeNetwork.  Each layer's
// weight count is checked against its neuron count and the neuron count of
// the layer decoded before it.  All errors for malformed documents wrap
// ErrConfiguration.
func DecodeNetwork(r io.Reader, rng *rand.Rand) (*Network, error) {
	var doc networkDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: while parsing network document: %v", ErrConfiguration, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, configErrorf("unexpected data after network document")
	}

	enc, err := ParseEncoding(doc.Encoding)
	if err != nil {
		return nil, err
	}
	if len(doc.Layers) == 0 {
		return nil, configErrorf("network document has no layers")
	}

	net := New(rng)
	for l, ld := range doc.Layers {
		prevCount := 0
		if l > 0 {
			prevCount = net.outputLayer.NeuronCount()
		}
		if err := checkLayerSize(l, ld.NeuronCount, prevCount); err != nil {
			return nil, err
		}
		if l == 0 {
			net.AddInputLayer(ld.NeuronCount)
			continue
		}

		activation, err := ParseActivation(ld.ActivationFunction)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		learningRate := DefaultLearningRate
		if ld.LearningRate != nil {
			learningRate = *ld.LearningRate
		}

		weights, err := parseValues(ld.InputWeights, enc)
		if err != nil {
			return nil, fmt.Errorf("layer %d input weights: %w", l, err)
		}
		biases, err := parseValues(ld.BiasWeights, enc)
		if err != nil {
			return nil, fmt.Errorf("layer %d biases: %w", l, err)
		}

		if want := ld.NeuronCount * prevCount; len(weights) != want {
			return nil, configErrorf("layer %d: %d input weights, want %d (%d neurons x %d inputs)", l, len(weights), want, ld.NeuronCount, prevCount)
		}
		if len(biases) != ld.NeuronCount {
			return nil, configErrorf("layer %d: %d biases, want %d", l, len(biases), ld.NeuronCount)
		}

		lay := net.AddLayer(ld.NeuronCount, false, activation, learningRate)
		for n := range lay.Neurons {
			copy(lay.Neurons[n].Weights, weights[n*prevCount:(n+1)*prevCount])
			lay.Neurons[n].Bias = biases[n]
		}
	}

	return net, nil
}
