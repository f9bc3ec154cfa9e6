// Package sigfont loads the typefaces used for typed signatures.
//
// Each signature style ("tier") maps to a remote TrueType face downloaded
// at signing time, with alternate URLs per tier and a built-in standard
// font as the final fallback. A tier that cannot be downloaded or parsed
// degrades silently: signing never fails because a font host is down.
package sigfont

import (
	"bytes"
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penginsign/sigpdf/fetch"
	"github.com/penginsign/sigpdf/observability"
	"github.com/penginsign/sigpdf/pdf/fonts"
)

// Tier identifies one of the typed-signature styles offered by the
// frontend's signature picker.
type Tier string

const (
	// TierSignature is the upright sans style.
	TierSignature Tier = "signature"
	// TierSignatura is the cursive style.
	TierSignatura Tier = "signatura"
	// TierSignaturia is the script style.
	TierSignaturia Tier = "signaturia"
)

// ParseTier maps a frontend font tag to a tier, ignoring case and
// surrounding whitespace. Unknown or empty tags fall back to
// TierSignature.
func ParseTier(tag string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(tag))) {
	case TierSignatura:
		return TierSignatura
	case TierSignaturia:
		return TierSignaturia
	default:
		return TierSignature
	}
}

// Source describes where a tier's TrueType file can be downloaded.
// URLs are tried in order; the first working one wins.
type Source struct {
	Tier Tier
	Name string
	URLs []string
}

// DefaultSources returns the built-in download chains: an upright sans,
// a cursive face, and a script face, each with an alternate host.
func DefaultSources() []Source {
	return []Source{
		{
			Tier: TierSignature,
			Name: "Roboto",
			URLs: []string{
				"https://fonts.gstatic.com/s/roboto/v30/KFOmCnqEu92Fr1Mu4mxP.ttf",
				"https://fonts.gstatic.com/s/roboto/v30/KFOmCnqEu92Fr1Me5Q.ttf",
			},
		},
		{
			Tier: TierSignatura,
			Name: "Satisfy",
			URLs: []string{
				"https://fonts.gstatic.com/s/satisfy/v17/rP2Hp2yn6lkG50LoCZOIHQ.ttf",
				"https://fonts.gstatic.com/s/dancingscript/v25/If2RXTr6YS-zF4S-kcSWSVi_szLgiuE.ttf",
			},
		},
		{
			Tier: TierSignaturia,
			Name: "GreatVibes",
			URLs: []string{
				"https://fonts.gstatic.com/s/greatvibes/v16/RWmMoKWR9v4ksMfaWd_JN9XFiaQ.ttf",
				"https://fonts.gstatic.com/s/allura/v21/9oRPNYsQpS4zjuAPjA.ttf",
			},
		},
	}
}

// DefaultFetchTimeout bounds each tier's download. Font loading sits on
// the signing path, so the budget is a few seconds, not the fetcher's
// general-purpose default.
const DefaultFetchTimeout = 4 * time.Second

// Loader downloads and parses the signature typefaces.
type Loader struct {
	// Sources lists the tiers to load. Nil means DefaultSources.
	Sources []Source

	// Fetcher performs the downloads. Nil means fetch.NewFetcher(nil).
	Fetcher *fetch.Fetcher

	// Timeout bounds each tier's download. Zero means DefaultFetchTimeout.
	Timeout time.Duration

	// Logger receives one entry per tier. Nil means no logging.
	Logger observability.Logger
}

func (l *Loader) logger() observability.Logger {
	if l.Logger == nil {
		return observability.NopLogger{}
	}
	return l.Logger
}

// Load fetches all tiers concurrently and returns the resulting set.
// Individual tier failures degrade that tier to its built-in fallback;
// Load itself never fails.
func (l *Loader) Load(ctx context.Context) *Set {
	sources := l.Sources
	if sources == nil {
		sources = DefaultSources()
	}
	fetcher := l.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewFetcher(nil)
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	log := l.logger()

	set := NewDegradedSet()

	g, ctx := errgroup.WithContext(ctx)
	results := make([]fonts.Font, len(sources))

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if len(src.URLs) == 0 {
				log.Warn("signature font has no sources, using fallback",
					observability.String("tier", string(src.Tier)))
				return nil
			}

			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			data, result := fetcher.FetchAny(fctx, src.URLs)
			if !result.Success {
				log.Warn("signature font download failed, using fallback",
					observability.String("tier", string(src.Tier)),
					observability.Error("err", result.AllErrors()))
				return nil
			}

			font, err := fonts.LoadFont(src.Name, bytes.NewReader(data))
			if err != nil {
				log.Warn("signature font unusable, using fallback",
					observability.String("tier", string(src.Tier)),
					observability.String("url", result.SuccessfulURL),
					observability.Error("err", err))
				return nil
			}

			results[i] = font
			log.Info("signature font loaded",
				observability.String("tier", string(src.Tier)),
				observability.String("url", result.SuccessfulURL),
				observability.Int("bytes", len(data)))
			return nil
		})
	}

	// Workers only report via results; the error return is unused.
	_ = g.Wait()

	for i, src := range sources {
		if results[i] != nil {
			set.remote[src.Tier] = results[i]
		}
	}

	return set
}

// Set holds the resolved signature typefaces plus the always-available
// standard fonts.
type Set struct {
	remote map[Tier]fonts.Font

	Helvetica     fonts.Font
	HelveticaBold fonts.Font
	TimesRoman    fonts.Font
}

// NewDegradedSet returns a set with no remote faces, only the standard
// font fallbacks. This is what Load returns when every download fails.
func NewDegradedSet() *Set {
	return &Set{
		remote:        make(map[Tier]fonts.Font),
		Helvetica:     fonts.NewStandardFont(fonts.Helvetica),
		HelveticaBold: fonts.NewStandardFont(fonts.HelveticaBold),
		TimesRoman:    fonts.NewStandardFont(fonts.Times),
	}
}

// Remote returns the downloaded face for a tier, or nil when the tier
// degraded.
func (s *Set) Remote(tier Tier) fonts.Font {
	return s.remote[tier]
}

// SetRemote installs a face for a tier. Intended for tests and for
// callers that load fonts through other means.
func (s *Set) SetRemote(tier Tier, f fonts.Font) {
	s.remote[tier] = f
}
