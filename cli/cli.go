// Package cli provides the command-line interface for embedding
// signatures and audit trails into PDF documents.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "sign":
		SignCommand(args)
	case "audit":
		AuditCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("sigpdf - PDF signature embedding tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  sign     Embed field values into a PDF and append its audit trail")
	fmt.Println("  audit    Append an audit trail page to an existing PDF")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s sign input.pdf job.yaml\n", os.Args[0])
	fmt.Printf("  %s sign -output signed.pdf input.pdf job.yaml\n", os.Args[0])
	fmt.Printf("  %s audit -id doc-42 -name \"Lease Agreement\" input.pdf output.pdf\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("sigpdf version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
