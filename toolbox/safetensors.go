package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"slices"
	"strconv"
)

// Tensor is a flat float32 buffer with a shape, used only to move weights in
// and out of safetensors files.
type Tensor struct {
	V     []float32
	Shape []int
}

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

const safeTensorsMetadataKey = "__metadata__"

// WriteSafeTensors writes tensors, sorted by name, plus free-form string
// metadata.
func WriteSafeTensors(w io.Writer, tensors map[string]*Tensor, metadata map[string]string) error {
	header := map[string]any{}
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	dataOffset := 0
	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		header[k] = SafeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, dataOffset},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}
	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// maxSafeTensorsHeader guards against allocating absurd headers from corrupt
// files.
const maxSafeTensorsHeader = 100 << 20

// ReadSafeTensors reads every F32 tensor and the metadata from r.
func ReadSafeTensors(r io.Reader) (map[string]*Tensor, map[string]string, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLen > maxSafeTensorsHeader {
		return nil, nil, configErrorf("safetensors header of %d bytes is too large", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: while parsing header: %v", ErrConfiguration, err)
	}

	metadata := map[string]string{}
	header := map[string]SafeTensorInfo{}
	end := 0
	for k, v := range raw {
		if k == safeTensorsMetadataKey {
			if err := json.Unmarshal(v, &metadata); err != nil {
				return nil, nil, fmt.Errorf("%w: while parsing metadata: %v", ErrConfiguration, err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(v, &info); err != nil {
			return nil, nil, fmt.Errorf("%w: while parsing header for %s: %v", ErrConfiguration, k, err)
		}
		if info.DType != "F32" {
			return nil, nil, configErrorf("unsupported dtype %s for %s", info.DType, k)
		}
		size := 1
		for _, s := range info.Shape {
			if s < 1 {
				return nil, nil, configErrorf("bad shape %v for %s", info.Shape, k)
			}
			size *= s
		}
		if len(info.DataOffsets) != 2 || info.DataOffsets[0] < 0 || info.DataOffsets[1]-info.DataOffsets[0] != size*4 {
			return nil, nil, configErrorf("bad data offsets %v for %s of shape %v", info.DataOffsets, k, info.Shape)
		}
		end = max(end, info.DataOffsets[1])
		header[k] = info
	}

	data := make([]byte, end)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("while reading tensor data: %w", err)
	}

	tensors := map[string]*Tensor{}
	for k, info := range header {
		b := data[info.DataOffsets[0]:info.DataOffsets[1]]
		v := make([]float32, len(b)/4)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		tensors[k] = &Tensor{V: v, Shape: info.Shape}
	}

	return tensors, metadata, nil
}

func weightsKey(l int) string { return fmt.Sprintf("layers.%d.weights", l) }
func biasesKey(l int) string  { return fmt.Sprintf("layers.%d.biases", l) }

// DumpTensors lays the network out as safetensors tensors and metadata.
// Weights of layer l have shape (neurons, previous layer neurons).
func (net *Network) DumpTensors() (map[string]*Tensor, map[string]string) {
	tensors := map[string]*Tensor{}
	metadata := map[string]string{
		"layer_count": strconv.Itoa(len(net.layers)),
	}

	for l, lay := range net.layers {
		metadata[fmt.Sprintf("layers.%d.neurons", l)] = strconv.Itoa(lay.NeuronCount())
		if lay.IsInput() {
			continue
		}
		metadata[fmt.Sprintf("layers.%d.activation", l)] = lay.Activation.String()
		metadata[fmt.Sprintf("layers.%d.learning_rate", l)] = fmt.Sprintf("%08X", math.Float32bits(lay.LearningRate))

		inputs := lay.Previous().NeuronCount()
		w := &Tensor{V: make([]float32, 0, lay.NeuronCount()*inputs), Shape: []int{lay.NeuronCount(), inputs}}
		b := &Tensor{V: make([]float32, 0, lay.NeuronCount()), Shape: []int{lay.NeuronCount()}}
		for n := range lay.Neurons {
			w.V = append(w.V, lay.Neurons[n].Weights...)
			b.V = append(b.V, lay.Neurons[n].Bias)
		}
		tensors[weightsKey(l)] = w
		tensors[biasesKey(l)] = b
	}

	return tensors, metadata
}

func metadataInt(metadata map[string]string, key string) (int, error) {
	s, ok := metadata[key]
	if !ok {
		return 0, configErrorf("no metadata entry for %s", key)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, configErrorf("metadata %s: bad integer %q", key, s)
	}
	return v, nil
}

// NetworkFromTensors rebuilds a network written with DumpTensors.
func NetworkFromTensors(tensors map[string]*Tensor, metadata map[string]string, rng *rand.Rand) (*Network, error) {
	layerCount, err := metadataInt(metadata, "layer_count")
	if err != nil {
		return nil, err
	}
	if layerCount < 1 {
		return nil, configErrorf("invalid layer count %d", layerCount)
	}

	net := New(rng)
	for l := 0; l < layerCount; l++ {
		neurons, err := metadataInt(metadata, fmt.Sprintf("layers.%d.neurons", l))
		if err != nil {
			return nil, err
		}
		prevCount := 0
		if l > 0 {
			prevCount = net.outputLayer.NeuronCount()
		}
		if err := checkLayerSize(l, neurons, prevCount); err != nil {
			return nil, err
		}
		if l == 0 {
			net.AddInputLayer(neurons)
			continue
		}

		activation, err := ParseActivation(metadata[fmt.Sprintf("layers.%d.activation", l)])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		learningRate := DefaultLearningRate
		if s, ok := metadata[fmt.Sprintf("layers.%d.learning_rate", l)]; ok {
			bits, err := strconv.ParseUint(s, 16, 32)
			if err != nil {
				return nil, configErrorf("layer %d: bad learning rate %q", l, s)
			}
			learningRate = math.Float32frombits(uint32(bits))
		}

		inputs := prevCount
		w, ok := tensors[weightsKey(l)]
		if !ok {
			return nil, configErrorf("no entry for %s", weightsKey(l))
		}
		if want := []int{neurons, inputs}; !slices.Equal(w.Shape, want) || len(w.V) != neurons*inputs {
			return nil, configErrorf("wrong shape for %s; got %v want %v", weightsKey(l), w.Shape, want)
		}
		b, ok := tensors[biasesKey(l)]
		if !ok {
			return nil, configErrorf("no entry for %s", biasesKey(l))
		}
		if want := []int{neurons}; !slices.Equal(b.Shape, want) || len(b.V) != neurons {
			return nil, configErrorf("wrong shape for %s; got %v want %v", biasesKey(l), b.Shape, want)
		}

		lay := net.AddLayer(neurons, false, activation, learningRate)
		for n := range lay.Neurons {
			copy(lay.Neurons[n].Weights, w.V[n*inputs:(n+1)*inputs])
			lay.Neurons[n].Bias = b.V[n]
		}
	}

	return net, nil
}
