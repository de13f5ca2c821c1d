package secrets

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		masking *Masking
		want    string
	}{
		{"default partial", "abcdefghij", nil, "abcdef***"},
		{"short value fully masked", "abc", nil, "***"},
		{"full", "abcdefghij", &Masking{Style: StyleFull}, "***"},
		{"full custom", "abcdefghij", &Masking{Style: StyleFull, Replacement: "[redacted]"}, "[redacted]"},
		{"partial two", "abcdefghij", &Masking{Style: StylePartial, PartialShowChars: 2}, "ab***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskValue(tt.value, tt.masking))
		})
	}

	hashed := MaskValue("secret", &Masking{Style: StyleHash})
	assert.True(t, strings.HasPrefix(hashed, "sha256:"))
	assert.Len(t, hashed, len("sha256:")+16)
	assert.Equal(t, hashed, MaskValue("secret", &Masking{Style: StyleHash}))
}

func TestDetector_MaskString(t *testing.T) {
	d := MustDefault()

	masked := d.MaskString("sending Authorization: Bearer 0123456789abcdef to server")

	assert.NotContains(t, masked, "0123456789abcdef")
	assert.Contains(t, masked, "to server")
}

func TestDetector_MaskHeaders(t *testing.T) {
	d := MustDefault()
	h := http.Header{}
	h.Set("Authorization", "Bearer 0123456789abcdef")
	h.Set("User-Agent", "emsctl/1.0")

	masked := d.MaskHeaders(h)

	assert.Equal(t, "Bearer***", masked.Get("Authorization"))
	assert.Equal(t, "emsctl/1.0", masked.Get("User-Agent"))
	assert.Equal(t, "Bearer 0123456789abcdef", h.Get("Authorization"), "input untouched")
}

func TestDetector_MaskForm(t *testing.T) {
	d := MustDefault()
	form := url.Values{
		"grant_type":    {"trusted"},
		"client_id":     {"app"},
		"client_secret": {"supersecretvalue"},
		"password":      {"hunter2hunter2"},
		"name":          {"SAMAccountName"},
	}

	masked := d.MaskForm(form)

	assert.Equal(t, "trusted", masked.Get("grant_type"))
	assert.Equal(t, "app", masked.Get("client_id"))
	assert.Equal(t, "supers***", masked.Get("client_secret"))
	assert.Equal(t, "hunter***", masked.Get("password"))
	assert.Equal(t, "SAMAccountName", masked.Get("name"))
}

func TestDetector_MaskJSON(t *testing.T) {
	d := MustDefault()
	data := map[string]any{
		"access_token": "abcdefghijklmnop",
		"expires_in":   float64(3600),
		"nested":       []any{map[string]any{"password": "p4ssw0rd!!"}},
	}

	masked := d.MaskJSON(data).(map[string]any)

	assert.Equal(t, "abcdef***", masked["access_token"])
	assert.Equal(t, float64(3600), masked["expires_in"])
	nested := masked["nested"].([]any)[0].(map[string]any)
	assert.Equal(t, "p4ssw0***", nested["password"])
}

func TestDetector_Disabled(t *testing.T) {
	d, err := NewDetector(nil)
	require.NoError(t, err)

	assert.False(t, d.IsEnabled())
	assert.Equal(t, "Bearer abcdefghijk", d.MaskString("Bearer abcdefghijk"))
	assert.False(t, d.IsSecretField("password"))
}

func TestNewDetector_InvalidPattern(t *testing.T) {
	_, err := NewDetector(&Config{
		Enabled:       true,
		ValuePatterns: []ValuePattern{{Name: "broken", Pattern: "(", Enabled: true}},
	})
	assert.Error(t, err)
}
