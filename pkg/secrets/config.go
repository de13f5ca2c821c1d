package secrets

// Style selects how a detected secret is rendered.
type Style string

const (
	// StylePartial keeps the first characters and masks the rest.
	StylePartial Style = "partial"
	// StyleFull replaces the whole value.
	StyleFull Style = "full"
	// StyleHash replaces the value with a short SHA-256 digest.
	StyleHash Style = "hash"
)

// Masking configures how values are masked.
type Masking struct {
	Style            Style  `yaml:"style" mapstructure:"style"`
	PartialShowChars int    `yaml:"partial_show_chars" mapstructure:"partial_show_chars"`
	Replacement      string `yaml:"replacement" mapstructure:"replacement"`
}

// ValuePattern is a named regular expression matching secret-looking text.
type ValuePattern struct {
	Name    string
	Pattern string
	Enabled bool
}

// Config configures a Detector.
type Config struct {
	Enabled       bool
	FieldPatterns []string
	ValuePatterns []ValuePattern
	Headers       []string
	Masking       *Masking
}

// DefaultConfig returns the masking setup used for request logging.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		FieldPatterns: DefaultFieldPatterns(),
		ValuePatterns: DefaultValuePatterns(),
		Headers:       DefaultHeaders(),
		Masking: &Masking{
			Style:            StylePartial,
			PartialShowChars: 6,
			Replacement:      "***",
		},
	}
}
