package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/ahmedtd/perceptron/config"
	"github.com/ahmedtd/perceptron/dataset"
	"github.com/ahmedtd/perceptron/toolbox"
	"github.com/google/subcommands"
)

type TrainCommand struct {
	configFile string
	demo       string
	dataFile   string

	fromNetworkFile string
	outputFile      string
	safeTensorsFile string

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train a network one example at a time"
}

func (*TrainCommand) Usage() string {
	return `train [--config=run.yaml | --demo=xor|chars|mnist] [--data-file=mnist.npz] [--from=net.json] --output=net.json
`
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "config", "", "Path to a YAML run configuration; overrides --demo")
	f.StringVar(&c.demo, "demo", "xor", "Built-in run to use when --config is not given")
	f.StringVar(&c.dataFile, "data-file", "", "Path to an npz file with x_train/y_train and optionally x_test/y_test arrays")

	f.StringVar(&c.fromNetworkFile, "from", "", "Path to a network to continue training (JSON or .safetensors)")
	f.StringVar(&c.outputFile, "output", "mlp-out.json", "Path to save the trained network")
	f.StringVar(&c.safeTensorsFile, "safetensors", "", "Also save the trained network in safetensors format")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) loadRun() (*config.Run, error) {
	if c.configFile != "" {
		return config.LoadFile(c.configFile)
	}
	return config.Preset(c.demo)
}

// loadData returns the training set and, when the data file has one, the
// test set.
func (c *TrainCommand) loadData() (train, test *dataset.Dataset, err error) {
	if c.dataFile != "" {
		sets, err := dataset.LoadNPZ(c.dataFile, dataset.MNISTTrain, dataset.MNISTTest)
		if err == nil {
			return sets[0], sets[1], nil
		}
		sets, trainErr := dataset.LoadNPZ(c.dataFile, dataset.MNISTTrain)
		if trainErr != nil {
			return nil, nil, fmt.Errorf("while loading %s: %w", c.dataFile, trainErr)
		}
		log.Printf("No test split in %s: %v", c.dataFile, err)
		return sets[0], nil, nil
	}

	switch c.demo {
	case "xor":
		return dataset.XOR(), nil, nil
	case "chars":
		return dataset.CharacterCodes(), nil, nil
	default:
		return nil, nil, fmt.Errorf("no built-in data for %q; pass --data-file", c.demo)
	}
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	run, err := c.loadRun()
	if err != nil {
		return fmt.Errorf("while loading run configuration: %w", err)
	}

	train, test, err := c.loadData()
	if err != nil {
		return fmt.Errorf("while loading training data: %w", err)
	}
	log.Printf("Loaded %d training examples with %d features and %d classes", train.Len(), train.Features(), train.Classes)

	rng := run.Rand()

	var net *toolbox.Network
	if c.fromNetworkFile != "" {
		net, err = loadNetwork(c.fromNetworkFile, rng)
		if err != nil {
			return fmt.Errorf("while loading initial network: %w", err)
		}
		if err := run.Matches(net); err != nil {
			return fmt.Errorf("initial network does not fit the run: %w", err)
		}
		net.SetExecutor(run.Executor())
	} else {
		net, err = run.Build(rng)
		if err != nil {
			return fmt.Errorf("while building network: %w", err)
		}
	}

	if err := checkFits(net, train); err != nil {
		return err
	}

	window := dataset.NewWindow(run.Window)
	var windowLoss float32
	lossCount := 0
	for it := 1; it <= run.Iterations; it++ {
		inputs, label := train.Example(train.Sample(rng))
		net.SetInputs(inputs)
		net.FeedForward()
		window.Add(net.Classify() == label)

		net.SetTrainingClassification(label)
		windowLoss += net.Loss()
		lossCount++
		net.Backpropagate()

		if it%run.Window == 0 || it == run.Iterations {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Printf("iteration %d window-accuracy=%.4f window-loss=%.6f weight-l2=%.3f",
				it,
				window.Accuracy(),
				windowLoss/float32(lossCount),
				net.WeightL2(),
			)
			windowLoss = 0
			lossCount = 0
		}
	}

	if test != nil {
		log.Printf("test accuracy=%.4f over %d examples", accuracy(net, test), test.Len())
	}

	if err := saveNetwork(c.outputFile, net, run.WeightEncoding()); err != nil {
		return fmt.Errorf("while saving network: %w", err)
	}
	log.Printf("Wrote %s", c.outputFile)

	if c.safeTensorsFile != "" {
		if !isSafeTensors(c.safeTensorsFile) {
			return fmt.Errorf("--safetensors file %q must end in .safetensors", c.safeTensorsFile)
		}
		if err := saveNetwork(c.safeTensorsFile, net, run.WeightEncoding()); err != nil {
			return fmt.Errorf("while saving network tensors: %w", err)
		}
		log.Printf("Wrote %s", c.safeTensorsFile)
	}

	return nil
}

func checkFits(net *toolbox.Network, d *dataset.Dataset) error {
	if net.InputCount() != d.Features() {
		return fmt.Errorf("network takes %d inputs, data has %d features", net.InputCount(), d.Features())
	}
	if net.OutputCount() < d.Classes {
		return fmt.Errorf("network has %d outputs, data has %d classes", net.OutputCount(), d.Classes)
	}
	return nil
}

// accuracy is the fraction of d that net classifies correctly.  It does not
// train.
func accuracy(net *toolbox.Network, d *dataset.Dataset) float32 {
	if d.Len() == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < d.Len(); i++ {
		inputs, label := d.Example(i)
		net.SetInputs(inputs)
		net.FeedForward()
		if net.Classify() == label {
			correct++
		}
	}
	return float32(correct) / float32(d.Len())
}
