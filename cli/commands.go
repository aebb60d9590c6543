// Package cli implements the padessign command line: a sign command
// producing PAdES signatures from PKCS#12 archives and a verify
// command reporting on embedded signatures.
package cli

import (
	"fmt"
	"os"
)

// osExit is swapped out by tests.
var osExit = os.Exit

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  sign    Sign a PDF file with a PKCS#12 identity")
	fmt.Println("  verify  Verify the signatures of a PDF file")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}

// Run dispatches to the named command.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	switch args[1] {
	case "sign":
		SignCommand()
	case "verify":
		VerifyCommand()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[1])
		Usage()
	}
}
