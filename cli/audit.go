package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/penginsign/sigpdf/audit"
	"github.com/penginsign/sigpdf/observability"
)

// AuditCommand implements the 'audit' command, which appends an audit
// trail page to a PDF without placing any field values.
func AuditCommand(args []string) {
	auditFlags := flag.NewFlagSet("audit", flag.ExitOnError)

	var (
		docID     string
		docName   string
		recipient string
		email     string
		brand     string
		verbose   bool
	)

	auditFlags.StringVar(&docID, "id", "", "Document ID")
	auditFlags.StringVar(&docName, "name", "", "Document name")
	auditFlags.StringVar(&recipient, "recipient", "", "Recipient name")
	auditFlags.StringVar(&email, "email", "", "Recipient email")
	auditFlags.StringVar(&brand, "brand", "", "Brand name shown in the page footer")
	auditFlags.BoolVar(&verbose, "v", false, "Verbose logging")

	auditFlags.Usage = func() {
		fmt.Printf("Usage: %s audit [options] <input.pdf> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Append an audit trail page to an existing PDF.")
		fmt.Println("")
		fmt.Println("Options:")
		auditFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s audit -id doc-42 -name \"Lease Agreement\" input.pdf output.pdf\n", os.Args[0])
	}

	if err := auditFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(auditFlags.Args()) < 2 {
		auditFlags.Usage()
		osExit(1)
	}

	inputPath := auditFlags.Arg(0)
	outputPath := auditFlags.Arg(1)

	if docID == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		osExit(1)
	}

	pdfBytes, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read input file: %v\n", err)
		osExit(1)
	}

	var log observability.Logger = observability.NopLogger{}
	if verbose {
		log = observability.NewWriterLogger(os.Stderr)
	}

	composer := &audit.Composer{Logger: log, Brand: brand}
	info := audit.DocumentInfo{
		ID:             docID,
		Name:           docName,
		CreatedAt:      time.Now(),
		RecipientName:  recipient,
		RecipientEmail: email,
	}

	out, err := composer.AppendPage(context.Background(), pdfBytes, info, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output file: %v\n", err)
		osExit(1)
	}

	fmt.Printf("Audit trail page appended: %s\n", outputPath)
}
