package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IndexPlaceholder marks where the segment index goes in a URL template.
const IndexPlaceholder = "{index}"

// DefaultExtension is the segment extension used when none is configured.
const DefaultExtension = ".ts"

// Template derives a segment URL from an integer index.
type Template struct {
	raw string

	// prefix + index + suffix
	prefix string
	suffix string
}

// ParseTemplate accepts either a URL containing {index}, or a concrete
// segment URL whose first number directly before ext is the index
// (".../seg-17.ts?token=x" -> ".../seg-<i>.ts?token=x").
func ParseTemplate(raw, ext string) (Template, error) {
	if raw == "" {
		return Template{}, fmt.Errorf("%w: empty url", ErrNoIndexInTemplate)
	}

	if i := strings.Index(raw, IndexPlaceholder); i >= 0 {
		return Template{
			raw:    raw,
			prefix: raw[:i],
			suffix: raw[i+len(IndexPlaceholder):],
		}, nil
	}

	if ext == "" {
		ext = DefaultExtension
	}

	re, err := regexp.Compile(`\d+` + regexp.QuoteMeta(ext))
	if err != nil {
		return Template{}, fmt.Errorf("compile index pattern: %w", err)
	}

	loc := re.FindStringIndex(raw)
	if loc == nil {
		return Template{}, fmt.Errorf("%w: %s", ErrNoIndexInTemplate, raw)
	}

	digitsEnd := loc[1] - len(ext)
	return Template{
		raw:    raw,
		prefix: raw[:loc[0]],
		suffix: raw[digitsEnd:],
	}, nil
}

// URL returns the fetch URL of the segment at index.
func (t Template) URL(index int) string {
	return t.prefix + strconv.Itoa(index) + t.suffix
}

func (t Template) String() string { return t.raw }

// IsZero reports whether the template was never parsed.
func (t Template) IsZero() bool { return t.raw == "" }
