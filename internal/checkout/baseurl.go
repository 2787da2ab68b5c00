package checkout

import "strings"

// ResolveBaseURL picks the public origin used for success and cancel
// redirects. A configured value wins; otherwise the forwarded proto and host
// from the proxy are used. Bind-all addresses are never usable as a public
// origin, and the final fallback is the local development origin.
func ResolveBaseURL(configured, proto, host string) string {
	if configured != "" && !strings.Contains(configured, "0.0.0.0") {
		return strings.TrimSuffix(configured, "/")
	}
	if host != "" && !strings.Contains(host, "0.0.0.0") {
		// An absent forwarded proto means the proxy did not say; assume TLS.
		// The legacy storefront assumed plain http here, but every deployed
		// origin terminates TLS, and a payment provider will refuse an
		// http:// return URL anyway.
		if proto == "" {
			proto = "https"
		}
		return proto + "://" + host
	}
	return "http://localhost:8080"
}
