package main

import (
	"fmt"
	"io"
	"os"
)

var version = "dev"

// stdout is where command output goes; tests replace it.
var stdout io.Writer = os.Stdout

var commands = map[string]func([]string) error{
	"operations": runOperations,
	"fields":     runFields,
	"call":       runCall,
	"pieces":     runPieces,
}

func usage() {
	fmt.Fprintf(os.Stderr, `soapctl - SOAP piece CLI (version %s)

Usage:
  soapctl <command> [options]

Commands:
  operations  List the operations of a WSDL
  fields      Show the parameter fields generated for an operation
  call        Call an operation and print the result with raw envelopes
  pieces      List the built-in pieces and their actions

Run 'soapctl <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
