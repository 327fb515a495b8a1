package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders are consulted in order when they are trusted.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the normalized client address, or "" when none is valid.
func GetIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		for _, name := range proxyHeaders {
			value := r.Header.Get(name)
			if value == "" {
				continue
			}
			for candidate := range strings.SplitSeq(value, ",") {
				if ip := parseIP(candidate); ip != "" {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
