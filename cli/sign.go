package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penginsign/sigpdf/audit"
	"github.com/penginsign/sigpdf/config"
	"github.com/penginsign/sigpdf/fetch"
	"github.com/penginsign/sigpdf/observability"
	"github.com/penginsign/sigpdf/sigfont"
	"github.com/penginsign/sigpdf/signer"
)

// SignOptions contains options for the sign command.
type SignOptions struct {
	Output      string
	ConfigFile  string
	ViewerWidth float64
	SkipAudit   bool
	NoFonts     bool
	Verbose     bool
}

// SignCommand implements the 'sign' command.
func SignCommand(args []string) {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	var opts SignOptions

	signFlags.StringVar(&opts.Output, "output", "", "Output file (default: signed_<name>_<uuid>.pdf)")
	signFlags.StringVar(&opts.ConfigFile, "config", "", "Path to an application config file")
	signFlags.Float64Var(&opts.ViewerWidth, "viewer-width", 0, "Viewer width the field coordinates were captured against")
	signFlags.BoolVar(&opts.SkipAudit, "skip-audit", false, "Do not append the audit trail page")
	signFlags.BoolVar(&opts.NoFonts, "no-fonts", false, "Skip font downloads and use standard fonts")
	signFlags.BoolVar(&opts.Verbose, "v", false, "Verbose logging")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign [options] <input.pdf> <job.yaml>\n\n", os.Args[0])
		fmt.Println("Embed the job's field values into a PDF and append its audit trail page.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  input.pdf  Input PDF file to sign")
		fmt.Println("  job.yaml   Job file describing the document, fields, and values")
		fmt.Println("")
		fmt.Println("Options:")
		signFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s sign input.pdf job.yaml\n", os.Args[0])
		fmt.Printf("  %s sign -output signed.pdf -skip-audit input.pdf job.yaml\n", os.Args[0])
	}

	if err := signFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(signFlags.Args()) < 2 {
		signFlags.Usage()
		osExit(1)
	}

	inputPath := signFlags.Arg(0)
	jobPath := signFlags.Arg(1)

	outputPath, err := signPDF(inputPath, jobPath, &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}

	fmt.Printf("Successfully signed PDF: %s\n", outputPath)
}

// signPDF runs the signing pipeline for one job file.
func signPDF(inputPath, jobPath string, opts *SignOptions) (string, error) {
	ctx := context.Background()

	appCfg, err := loadAppConfig(opts.ConfigFile)
	if err != nil {
		return "", err
	}

	job, err := LoadJob(jobPath)
	if err != nil {
		return "", err
	}

	pdfBytes, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	log := buildLogger(appCfg.Logging, opts.Verbose)

	doc := job.ToDocument(pdfBytes)
	values, err := job.ResolveValues()
	if err != nil {
		return "", err
	}

	signOpts := signerOptions(appCfg.Pipeline, opts, log)

	signed, err := signer.CreateSignedPDF(ctx, doc, values, signOpts)
	if err != nil {
		return "", err
	}

	outputPath := opts.Output
	if outputPath == "" {
		outputPath = defaultOutputName(inputPath)
	}
	if err := os.WriteFile(outputPath, signed, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return outputPath, nil
}

// signerOptions assembles pipeline options from the config file and
// command-line flags. Flags win over the config file.
func signerOptions(cfg *config.PipelineConfig, opts *SignOptions, log observability.Logger) signer.Options {
	out := signer.Options{Logger: log}

	if cfg != nil {
		out.ViewerWidth = cfg.ViewerWidth
		if cfg.Audit != nil {
			out.SkipAudit = cfg.Audit.Disable
			if cfg.Audit.Brand != "" {
				out.Audit = &audit.Composer{Logger: log, Brand: cfg.Audit.Brand}
			}
		}
	}
	if opts.ViewerWidth > 0 {
		out.ViewerWidth = opts.ViewerWidth
	}
	if opts.SkipAudit {
		out.SkipAudit = true
	}

	fontsCfg := (*config.FontsConfig)(nil)
	if cfg != nil {
		fontsCfg = cfg.Fonts
	}
	if opts.NoFonts || (fontsCfg != nil && fontsCfg.Disable) {
		out.Fonts = sigfont.NewDegradedSet()
		return out
	}

	loader := &sigfont.Loader{
		Sources: fontSources(fontsCfg),
		Fetcher: fetch.NewFetcher(fetch.DefaultConfig()),
		Logger:  log,
	}
	if fontsCfg != nil && fontsCfg.FetchTimeout > 0 {
		loader.Timeout = time.Duration(fontsCfg.FetchTimeout) * time.Second
	}
	out.Loader = loader
	return out
}

// fontSources merges configured URL overrides into the default source
// chains.
func fontSources(cfg *config.FontsConfig) []sigfont.Source {
	sources := sigfont.DefaultSources()
	if cfg == nil {
		return sources
	}

	overrides := map[sigfont.Tier]*config.FontSourceConfig{
		sigfont.TierSignature:  cfg.Signature,
		sigfont.TierSignatura:  cfg.Signatura,
		sigfont.TierSignaturia: cfg.Signaturia,
	}
	for i, src := range sources {
		if o := overrides[src.Tier]; o != nil {
			if o.Name != "" {
				sources[i].Name = o.Name
			}
			sources[i].URLs = o.URLs
		}
	}
	return sources
}

func loadAppConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		// No level set: the CLI stays quiet unless -v is passed.
		return &config.AppConfig{
			Pipeline: &config.PipelineConfig{},
			Logging:  &config.LoggingConfig{Output: "stderr"},
		}, nil
	}
	return config.LoadConfig(path)
}

func buildLogger(cfg *config.LoggingConfig, verbose bool) observability.Logger {
	if cfg == nil {
		cfg = &config.LoggingConfig{}
		cfg.SetDefaults()
	}
	if !verbose && cfg.Level == "" {
		return observability.NopLogger{}
	}

	out := os.Stderr
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			out = f
		}
	}
	return observability.NewWriterLogger(out)
}

// defaultOutputName builds the output filename for a signed document:
// signed_<base>_<uuid>.pdf next to the input file.
func defaultOutputName(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, fmt.Sprintf("signed_%s_%s.pdf", base, uuid.NewString()))
}
