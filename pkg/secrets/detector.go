// Package secrets masks credentials and tokens before they reach logs or
// terminal output.
package secrets

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Detector detects and masks sensitive data.
type Detector struct {
	config        *Config
	fieldPatterns []*regexp.Regexp
	valuePatterns []*regexp.Regexp
	headers       map[string]bool
}

// NewDetector compiles cfg. A nil cfg yields a disabled detector.
func NewDetector(cfg *Config) (*Detector, error) {
	if cfg == nil {
		return &Detector{config: &Config{}, headers: map[string]bool{}}, nil
	}

	d := &Detector{
		config:  cfg,
		headers: make(map[string]bool, len(cfg.Headers)),
	}

	for _, pattern := range cfg.FieldPatterns {
		re, err := globToRegex(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid field pattern %q: %w", pattern, err)
		}
		d.fieldPatterns = append(d.fieldPatterns, re)
	}

	for _, vp := range cfg.ValuePatterns {
		if !vp.Enabled {
			continue
		}
		re, err := regexp.Compile(vp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid value pattern %q: %w", vp.Name, err)
		}
		d.valuePatterns = append(d.valuePatterns, re)
	}

	for _, h := range cfg.Headers {
		d.headers[strings.ToLower(h)] = true
	}

	return d, nil
}

// MustDefault returns a detector built from DefaultConfig.
func MustDefault() *Detector {
	d, err := NewDetector(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return d
}

// IsEnabled returns whether secret detection is enabled.
func (d *Detector) IsEnabled() bool {
	return d.config != nil && d.config.Enabled
}

// IsSecretField reports whether a field name indicates a secret.
func (d *Detector) IsSecretField(name string) bool {
	if !d.IsEnabled() {
		return false
	}
	for _, re := range d.fieldPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsSecretHeader reports whether an HTTP header carries a secret.
func (d *Detector) IsSecretHeader(name string) bool {
	return d.IsEnabled() && d.headers[strings.ToLower(name)]
}

// Mask masks a single value with the configured style.
func (d *Detector) Mask(value string) string {
	if !d.IsEnabled() {
		return value
	}
	return MaskValue(value, d.config.Masking)
}

// MaskString masks secret-looking substrings of text.
func (d *Detector) MaskString(text string) string {
	if !d.IsEnabled() {
		return text
	}
	for _, re := range d.valuePatterns {
		text = re.ReplaceAllStringFunc(text, d.Mask)
	}
	return text
}

// MaskHeaders returns a copy of h with sensitive header values masked.
func (d *Detector) MaskHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		masked := make([]string, len(values))
		for i, v := range values {
			if d.IsSecretHeader(key) {
				masked[i] = d.Mask(v)
			} else {
				masked[i] = v
			}
		}
		out[key] = masked
	}
	return out
}

// MaskForm returns a copy of a form body with secret fields masked.
func (d *Detector) MaskForm(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		masked := make([]string, len(values))
		for i, val := range values {
			if d.IsSecretField(key) {
				masked[i] = d.Mask(val)
			} else {
				masked[i] = val
			}
		}
		out[key] = masked
	}
	return out
}

// MaskJSON walks decoded JSON and masks values under secret field names.
func (d *Detector) MaskJSON(data any) any {
	if !d.IsEnabled() {
		return data
	}
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if s, ok := val.(string); ok && d.IsSecretField(key) {
				out[key] = d.Mask(s)
				continue
			}
			out[key] = d.MaskJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = d.MaskJSON(val)
		}
		return out
	case string:
		return d.MaskString(v)
	default:
		return v
	}
}

// globToRegex converts a glob-style pattern to a case-insensitive regex.
func globToRegex(pattern string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	escaped = strings.ReplaceAll(escaped, `\?`, ".")
	return regexp.Compile("(?i)^" + escaped + "$")
}
