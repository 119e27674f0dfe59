// Command mlp trains and runs multilayer perceptrons.
//
// To train on a built-in problem: `go run ./cmd/mlp train --demo=chars --output=chars.json`
//
// To train on MNIST: `go run ./cmd/mlp train --demo=mnist --data-file=mnist.npz --output=mnist.json`
//
// To infer: `go run ./cmd/mlp infer --network=mnist.json --image=five.png`
//
// To convert: `go run ./cmd/mlp convert --in=mnist.json --out=mnist.safetensors`
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&ConvertCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
