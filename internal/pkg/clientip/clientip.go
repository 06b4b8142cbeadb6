// Package clientip resolves the caller address of an HTTP request.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPv6 callers are keyed by their /56 network.
const ipv6Prefix = 56

// Resolver picks the client address behind TrustedHops reverse proxies.
// With zero hops only the connection address is used and X-Forwarded-For is
// ignored. With n hops the n-th X-Forwarded-For entry from the right is the
// client, since every entry to the left of it was written by the caller.
type Resolver struct {
	TrustedHops int
}

// IP returns the client address for r.
func (res Resolver) IP(r *http.Request) string {
	remote := remoteHost(r)
	if res.TrustedHops <= 0 {
		return remote
	}
	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(v, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				hops = append(hops, ip)
			}
		}
	}
	if len(hops) == 0 {
		return remote
	}
	i := len(hops) - res.TrustedHops
	if i < 0 {
		i = 0
	}
	return hops[i]
}

// Key is the rate-limit key for r: the IPv4 address as is, or the /56 network
// of an IPv6 address. Unparseable values are returned unchanged.
func (res Resolver) Key(r *http.Request) string {
	raw := res.IP(r)
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return raw
	}
	addr = addr.Unmap()
	if addr.Is4() {
		return addr.String()
	}
	prefix, err := addr.WithZone("").Prefix(ipv6Prefix)
	if err != nil {
		return raw
	}
	return prefix.String()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
