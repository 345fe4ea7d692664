// Package main provides the entry point for tomasim.
// tomasim is a cycle-accurate Tomasulo scheduling simulator.
//
// For the full CLI, use: go run ./cmd/tomasim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("tomasim - Tomasulo Scheduling Simulator")
	fmt.Println("")
	fmt.Println("Usage: tomasim [options] <program.s>...")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to machine configuration (JSON or YAML)")
	fmt.Println("  -state       Path to initial registers and memory")
	fmt.Println("  -max-cycles  Stop after this many cycles")
	fmt.Println("  -v           Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tomasim' instead.")
	}
}
