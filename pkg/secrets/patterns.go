package secrets

// DefaultFieldPatterns returns field-name globs whose values are secrets.
func DefaultFieldPatterns() []string {
	return []string{
		"*password*",
		"*passwd*",
		"*secret*",
		"*token*",
		"*apikey*",
		"*api_key*",
		"*credential*",
		"authorization",
		"*bearer*",
		"*jwt*",
	}
}

// DefaultValuePatterns returns regular expressions for secret-looking text.
func DefaultValuePatterns() []ValuePattern {
	return []ValuePattern{
		{
			Name:    "Bearer Token",
			Pattern: `Bearer\s+[A-Za-z0-9\-._~+/]+=*`,
			Enabled: true,
		},
		{
			Name:    "Basic Auth",
			Pattern: `Basic\s+[A-Za-z0-9+/]+=*`,
			Enabled: true,
		},
		{
			Name:    "JWT",
			Pattern: `eyJ[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]*`,
			Enabled: true,
		},
		{
			Name:    "Password in URL",
			Pattern: `[a-zA-Z]{3,10}://[^/\s:@]{3,20}:[^/\s:@]{3,20}@.{1,100}`,
			Enabled: true,
		},
	}
}

// DefaultHeaders returns HTTP headers whose values are always masked.
func DefaultHeaders() []string {
	return []string{
		"Authorization",
		"Proxy-Authorization",
		"Cookie",
		"Set-Cookie",
		"X-Api-Key",
		"X-Auth-Token",
		"X-Access-Token",
	}
}
