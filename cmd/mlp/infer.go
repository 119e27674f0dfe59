package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/ahmedtd/perceptron/dataset"
	"github.com/ahmedtd/perceptron/toolbox"
	"github.com/google/subcommands"

	_ "image/jpeg"
	_ "image/png"
)

type InferCommand struct {
	networkFile string

	dataFile  string
	input     string
	imageFile string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Classify inputs with a trained network"
}

func (*InferCommand) Usage() string {
	return `infer --network=net.json (--input=0,1 | --image=digit.png | --data-file=mnist.npz)
`
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.networkFile, "network", "mlp-out.json", "Path to the network produced by the train command (JSON or .safetensors)")
	f.StringVar(&c.dataFile, "data-file", "", "Report accuracy on the x_test/y_test arrays of this npz file")
	f.StringVar(&c.input, "input", "", "Comma-separated input vector to classify")
	f.StringVar(&c.imageFile, "image", "", "Path to a grayscale image to classify, one input per pixel")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	net, err := loadNetwork(c.networkFile, rand.New(rand.NewSource(12345)))
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}

	switch {
	case c.dataFile != "":
		sets, err := dataset.LoadNPZ(c.dataFile, dataset.MNISTTest)
		if err != nil {
			return fmt.Errorf("while loading test data: %w", err)
		}
		if err := checkFits(net, sets[0]); err != nil {
			return err
		}
		log.Printf("test accuracy=%.4f over %d examples", accuracy(net, sets[0]), sets[0].Len())
		return nil

	case c.input != "":
		x, err := parseVector(c.input)
		if err != nil {
			return fmt.Errorf("while parsing --input: %w", err)
		}
		return classify(net, x)

	case c.imageFile != "":
		x, err := loadImage(c.imageFile)
		if err != nil {
			return fmt.Errorf("while loading image: %w", err)
		}
		return classify(net, x)

	default:
		return fmt.Errorf("one of --data-file, --input or --image is required")
	}
}

func classify(net *toolbox.Network, x []float32) error {
	if len(x) != net.InputCount() {
		return fmt.Errorf("network takes %d inputs, got %d", net.InputCount(), len(x))
	}
	net.SetInputs(x)
	net.FeedForward()

	out := make([]float32, net.OutputCount())
	net.GetOutputs(out)
	log.Printf("Outputs: %v", out)
	log.Printf("Prediction: %d", net.Classify())
	return nil
}

func parseVector(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	x := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		x[i] = float32(v)
	}
	return x, nil
}

// loadImage flattens an image row by row into grayscale values in [0, 1],
// matching how npz image arrays are loaded.
func loadImage(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening image file: %w", err)
	}
	defer f.Close()

	rawImg, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding image: %w", err)
	}

	bounds := rawImg.Bounds()
	width := bounds.Dx()
	out := make([]float32, width*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float32(color.GrayModel.Convert(rawImg.At(x, y)).(color.Gray).Y) / float32(255)
			out[(y-bounds.Min.Y)*width+(x-bounds.Min.X)] = v
		}
	}
	return out, nil
}
