package secrets

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaskValue masks value according to m. A nil m uses partial masking with
// six visible characters.
func MaskValue(value string, m *Masking) string {
	if m == nil {
		return partialMask(value, 6, "***")
	}

	switch m.Style {
	case StyleFull:
		return fullMask(m.Replacement)
	case StyleHash:
		return hashMask(value)
	default:
		return partialMask(value, m.PartialShowChars, m.Replacement)
	}
}

func fullMask(replacement string) string {
	if replacement == "" {
		return "***"
	}
	return replacement
}

// partialMask shows the first N characters and masks the rest.
func partialMask(value string, showChars int, replacement string) string {
	if replacement == "" {
		replacement = "***"
	}
	if len(value) <= showChars {
		return replacement
	}
	return value[:showChars] + replacement
}

// hashMask creates a SHA256 hash of the value for audit purposes.
func hashMask(value string) string {
	hash := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(hash[:])[:16]
}
