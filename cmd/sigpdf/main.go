// Command sigpdf embeds signature field values and audit trails into
// PDF documents.
//
// Usage:
//
//	sigpdf <command> [options] <args>
//
// Commands:
//
//	sign     Embed field values into a PDF and append its audit trail
//	audit    Append an audit trail page to an existing PDF
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Sign a PDF from a job file
//	sigpdf sign input.pdf job.yaml
//
//	# Sign into a specific output file, without the audit page
//	sigpdf sign -output signed.pdf -skip-audit input.pdf job.yaml
//
//	# Append only the audit trail page
//	sigpdf audit -id doc-42 -name "Lease Agreement" input.pdf output.pdf
package main

import (
	"os"

	"github.com/penginsign/sigpdf/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/sigpdf
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Set version info
	cli.Version = version
	cli.BuildTime = buildTime

	// Run the CLI
	cli.Run(os.Args)
}
