package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/perceptron/toolbox"
	"github.com/google/subcommands"
)

type ConvertCommand struct {
	inFile   string
	outFile  string
	encoding string
}

var _ subcommands.Command = (*ConvertCommand)(nil)

func (*ConvertCommand) Name() string {
	return "convert"
}

func (*ConvertCommand) Synopsis() string {
	return "Convert a network between JSON and safetensors, or between weight encodings"
}

func (*ConvertCommand) Usage() string {
	return `convert --in=net.json --out=net.safetensors
convert --in=net.json --out=net-decimal.json --encoding=decimal
`
}

func (c *ConvertCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inFile, "in", "", "Network to read (JSON or .safetensors)")
	f.StringVar(&c.outFile, "out", "", "Network to write (JSON or .safetensors)")
	f.StringVar(&c.encoding, "encoding", "hex", "Weight encoding for JSON output: hex or decimal")
}

func (c *ConvertCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ConvertCommand) executeErr(ctx context.Context) error {
	if c.inFile == "" || c.outFile == "" {
		return fmt.Errorf("--in and --out are required")
	}
	enc, err := toolbox.ParseEncoding(c.encoding)
	if err != nil {
		return err
	}

	net, err := loadNetwork(c.inFile, nil)
	if err != nil {
		return fmt.Errorf("while loading network: %w", err)
	}
	if err := saveNetwork(c.outFile, net, enc); err != nil {
		return fmt.Errorf("while saving network: %w", err)
	}
	log.Printf("Wrote %d-layer network with %d weights to %s", net.LayerCount(), net.CountInputWeights(), c.outFile)
	return nil
}
