package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// validateServiceURL accepts a bare http(s) base URL such as
// http://localhost:8080. Paths, queries and fragments are rejected because
// the clients append their own endpoint paths.
func validateServiceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("invalid URL %q: cannot be empty", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("invalid URL %q: must not include a path", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid URL %q: must not include query or fragment", raw)
	}
	return nil
}
