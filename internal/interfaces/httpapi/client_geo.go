package httpapi

import (
	"net"
	"net/http"
	"strings"
)

const unknownCountry = "ZZ"

var (
	clientIPHeaders = []string{"Fly-Client-IP", "X-Forwarded-For", "X-Real-IP"}
	countryHeaders  = []string{
		"Fly-Client-Country",
		"CF-IPCountry",
		"X-Vercel-IP-Country",
		"CloudFront-Viewer-Country",
	}
)

// clientIP returns the first parseable address from the edge headers,
// falling back to the socket peer.
func clientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		if ip := normalizeIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}
	return normalizeIP(r.RemoteAddr)
}

// clientCountry returns an ISO 3166 alpha-2 code set by the edge, or ZZ.
func clientCountry(r *http.Request) string {
	for _, header := range countryHeaders {
		if code := normalizeCountry(r.Header.Get(header)); code != "" {
			return code
		}
	}
	return unknownCountry
}

func normalizeIP(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if first, _, found := strings.Cut(value, ","); found {
		value = strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = strings.TrimSpace(host)
	}

	parsed := net.ParseIP(value)
	if parsed == nil {
		return ""
	}
	return parsed.String()
}

func normalizeCountry(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 2 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}
