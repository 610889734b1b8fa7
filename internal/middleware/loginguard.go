package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// TrustedProxies lists the peers whose forwarding headers are believed. The
// zero value trusts nobody, so the client is always the connection peer.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts single addresses and CIDR ranges.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			proxies = append(proxies, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		proxies = append(proxies, netip.PrefixFrom(a, a.BitLen()))
	}
	return proxies, nil
}

func (t TrustedProxies) trusts(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range t {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the address per-client state is keyed on. CF-Connecting-IP
// and X-Forwarded-For are only read when the peer is a trusted proxy, and the
// forwarded chain is walked from the right past any trusted hops.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !t.trusts(peer) {
		return peer
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		if _, err := netip.ParseAddr(ip); err == nil {
			return ip
		}
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !t.trusts(hop) {
			return hop
		}
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type failures struct {
	count   int
	resetAt time.Time
}

// LoginGuard locks out a client after too many failed credential checks
// within a window. Successful logins clear the count.
type LoginGuard struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*failures
	now     func() time.Time
}

func NewLoginGuard(limit int, window time.Duration) *LoginGuard {
	return &LoginGuard{
		limit:   limit,
		window:  window,
		entries: make(map[string]*failures),
		now:     time.Now,
	}
}

// Blocked reports whether key has used up its failures for the window.
func (g *LoginGuard) Blocked(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.entries[key]
	if !ok {
		return false
	}
	if g.now().After(f.resetAt) {
		delete(g.entries, key)
		return false
	}
	return f.count >= g.limit
}

func (g *LoginGuard) Fail(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	f, ok := g.entries[key]
	if !ok || now.After(f.resetAt) {
		g.entries[key] = &failures{count: 1, resetAt: now.Add(g.window)}
		return
	}
	f.count++
}

func (g *LoginGuard) Reset(key string) {
	g.mu.Lock()
	delete(g.entries, key)
	g.mu.Unlock()
}

// Cleanup drops expired entries.
func (g *LoginGuard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, f := range g.entries {
		if now.After(f.resetAt) {
			delete(g.entries, key)
		}
	}
}
