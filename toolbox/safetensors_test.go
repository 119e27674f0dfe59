package toolbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	net := buildNetwork(31, 0.2, []int{6, 4, 3}, []Activation{Sigmoid, Softmax})

	tensors, metadata := net.DumpTensors()
	var buf bytes.Buffer
	if err := WriteSafeTensors(&buf, tensors, metadata); err != nil {
		t.Fatalf("Unexpected error writing: %v", err)
	}

	gotTensors, gotMetadata, err := ReadSafeTensors(&buf)
	if err != nil {
		t.Fatalf("Unexpected error reading: %v", err)
	}
	if diff := cmp.Diff(tensors, gotTensors); diff != "" {
		t.Errorf("Tensors changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(metadata, gotMetadata); diff != "" {
		t.Errorf("Metadata changed (-want +got):\n%s", diff)
	}

	got, err := NetworkFromTensors(gotTensors, gotMetadata, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Unexpected error rebuilding network: %v", err)
	}
	if diff := cmp.Diff(networkParams(net), networkParams(got)); diff != "" {
		t.Errorf("Network changed (-want +got):\n%s", diff)
	}
}

func TestDumpTensorsLayout(t *testing.T) {
	net := New(nil)
	net.AddInputLayer(2)
	lay := net.AddLayer(3, false, TanH, 0.1)
	for n := range lay.Neurons {
		lay.Neurons[n].Weights[0] = float32(n)
		lay.Neurons[n].Weights[1] = float32(10 + n)
		lay.Neurons[n].Bias = float32(-n)
	}

	tensors, metadata := net.DumpTensors()
	want := map[string]*Tensor{
		"layers.1.weights": {V: []float32{0, 10, 1, 11, 2, 12}, Shape: []int{3, 2}},
		"layers.1.biases":  {V: []float32{0, -1, -2}, Shape: []int{3}},
	}
	if diff := cmp.Diff(want, tensors); diff != "" {
		t.Errorf("Wrong tensors (-want +got):\n%s", diff)
	}
	if got := metadata["layers.1.activation"]; got != "TanH" {
		t.Errorf("Wrong activation metadata; got %q, want %q", got, "TanH")
	}
	if got := metadata["layer_count"]; got != "2" {
		t.Errorf("Wrong layer count metadata; got %q, want %q", got, "2")
	}
}

func writeRawSafeTensors(t *testing.T, header string, data []byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(header))); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	buf.WriteString(header)
	buf.Write(data)
	return &buf
}

func TestReadSafeTensorsRejectsBadFiles(t *testing.T) {
	testCases := []struct {
		desc   string
		header string
		data   []byte
		want   error
	}{
		{
			desc:   "bad json",
			header: `{"a":`,
			want:   ErrConfiguration,
		},
		{
			desc:   "wrong dtype",
			header: `{"a":{"dtype":"F16","shape":[1],"data_offsets":[0,2]}}`,
			data:   make([]byte, 2),
			want:   ErrConfiguration,
		},
		{
			desc:   "offsets disagree with shape",
			header: `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`,
			data:   make([]byte, 4),
			want:   ErrConfiguration,
		},
		{
			desc:   "zero dimension",
			header: `{"a":{"dtype":"F32","shape":[0],"data_offsets":[0,0]}}`,
			want:   ErrConfiguration,
		},
		{
			desc:   "truncated data",
			header: `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`,
			data:   make([]byte, 5),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, _, err := ReadSafeTensors(writeRawSafeTensors(t, tc.header, tc.data))
			if err == nil {
				t.Fatalf("Expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("Wrong error; got %v, want one wrapping %v", err, tc.want)
			}
		})
	}
}

func TestReadSafeTensorsRejectsHugeHeader(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(1<<40))
	if _, _, err := ReadSafeTensors(&buf); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Wrong error; got %v, want one wrapping %v", err, ErrConfiguration)
	}
}

func TestNetworkFromTensorsRejectsMismatches(t *testing.T) {
	net := buildNetwork(1, 0.1, []int{3, 2}, []Activation{TanH})

	testCases := []struct {
		desc   string
		mutate func(tensors map[string]*Tensor, metadata map[string]string)
	}{
		{
			desc:   "missing weights",
			mutate: func(tensors map[string]*Tensor, _ map[string]string) { delete(tensors, "layers.1.weights") },
		},
		{
			desc:   "missing biases",
			mutate: func(tensors map[string]*Tensor, _ map[string]string) { delete(tensors, "layers.1.biases") },
		},
		{
			desc: "wrong weight shape",
			mutate: func(tensors map[string]*Tensor, _ map[string]string) {
				tensors["layers.1.weights"].Shape = []int{3, 2}
			},
		},
		{
			desc:   "neuron count disagrees",
			mutate: func(_ map[string]*Tensor, metadata map[string]string) { metadata["layers.1.neurons"] = "3" },
		},
		{
			desc:   "huge input layer",
			mutate: func(_ map[string]*Tensor, metadata map[string]string) { metadata["layers.0.neurons"] = "1000000000000" },
		},
		{
			desc:   "no layer count",
			mutate: func(_ map[string]*Tensor, metadata map[string]string) { delete(metadata, "layer_count") },
		},
		{
			desc:   "unknown activation",
			mutate: func(_ map[string]*Tensor, metadata map[string]string) { metadata["layers.1.activation"] = "Swish" },
		},
		{
			desc:   "bad learning rate",
			mutate: func(_ map[string]*Tensor, metadata map[string]string) { metadata["layers.1.learning_rate"] = "fast" },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			tensors, metadata := net.DumpTensors()
			tc.mutate(tensors, metadata)
			if _, err := NetworkFromTensors(tensors, metadata, nil); !errors.Is(err, ErrConfiguration) {
				t.Errorf("Wrong error; got %v, want one wrapping %v", err, ErrConfiguration)
			}
		})
	}
}
