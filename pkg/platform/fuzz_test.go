package platform

import "testing"

// FuzzParseConfig checks that arbitrary YAML never panics the loader and
// that whatever loads can be validated.
func FuzzParseConfig(f *testing.F) {
	f.Add(minimalYAML)
	f.Add("apiVersion: unknown-version\n")
	f.Add(`{}`)
	f.Add(`null`)
	f.Add(`server: null`)
	f.Add("server:\n  address: [1, 2, 3]")
	f.Add("trino:\n  port: ${PORT}\n")
	f.Add("rate_limit:\n  window: forever\n")
	f.Add("policies:\n  - name: x\n    roles: ['*']\n    endpoints:\n      allow: ['[']\n")

	f.Fuzz(func(_ *testing.T, data string) {
		cfg, err := ParseConfig([]byte(data))
		if err != nil {
			return
		}
		_ = cfg.Validate()
	})
}
