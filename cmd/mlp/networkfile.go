package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/ahmedtd/perceptron/toolbox"
)

// Networks are stored as JSON documents unless the file name ends in
// .safetensors.
func isSafeTensors(path string) bool {
	return filepath.Ext(path) == ".safetensors"
}

func loadNetwork(path string, rng *rand.Rand) (*toolbox.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening network file: %w", err)
	}
	defer f.Close()

	if isSafeTensors(path) {
		tensors, metadata, err := toolbox.ReadSafeTensors(f)
		if err != nil {
			return nil, fmt.Errorf("while reading network tensors: %w", err)
		}
		net, err := toolbox.NetworkFromTensors(tensors, metadata, rng)
		if err != nil {
			return nil, fmt.Errorf("while restoring network: %w", err)
		}
		return net, nil
	}

	net, err := toolbox.DecodeNetwork(f, rng)
	if err != nil {
		return nil, fmt.Errorf("while decoding network: %w", err)
	}
	return net, nil
}

// saveNetwork writes net to path.  enc only applies to JSON documents.
func saveNetwork(path string, net *toolbox.Network, enc toolbox.Encoding) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating network file: %w", err)
	}
	defer f.Close()

	if isSafeTensors(path) {
		tensors, metadata := net.DumpTensors()
		if err := toolbox.WriteSafeTensors(f, tensors, metadata); err != nil {
			return fmt.Errorf("while writing network tensors: %w", err)
		}
	} else {
		if err := toolbox.EncodeNetwork(f, net, enc); err != nil {
			return fmt.Errorf("while encoding network: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing network file: %w", err)
	}
	return nil
}
