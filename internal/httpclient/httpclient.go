package httpclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrForbiddenAddress is returned when a PublicOnly client is asked to dial a
// loopback, private, link-local or otherwise non-routable address.
var ErrForbiddenAddress = errors.New("destination address not allowed")

// ErrInsecureRedirect is returned when an HTTPSOnly client is redirected to a non-https URL.
var ErrInsecureRedirect = errors.New("redirect to non-https url")

// Options tunes the outbound client shared by the planning and synthesis clients.
type Options struct {
	// Timeout bounds a whole exchange. Image synthesis routinely takes over a minute.
	Timeout time.Duration
	// ResponseHeaderTimeout bounds the wait for the first response byte.
	ResponseHeaderTimeout time.Duration
	// PublicOnly refuses connections to non-public addresses and ignores proxy settings.
	// Use it for URLs supplied by operators.
	PublicOnly bool
	// HTTPSOnly refuses redirects away from https.
	HTTPSOnly bool
}

func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	headerTimeout := opts.ResponseHeaderTimeout
	if headerTimeout <= 0 || headerTimeout > timeout {
		headerTimeout = timeout
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	proxy := http.ProxyFromEnvironment
	if opts.PublicOnly {
		dialer.Control = publicOnlyControl
		proxy = nil
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 proxy,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: headerTimeout,
			ExpectContinueTimeout: time.Second,
		},
	}
	if opts.HTTPSOnly {
		client.CheckRedirect = httpsOnlyRedirect
	}
	return client
}

// carrier-grade NAT range, not covered by netip.Addr.IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPublicAddr reports whether addr is a globally routable unicast address.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

// publicOnlyControl runs after name resolution, so it sees the address actually dialed.
func publicOnlyControl(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	if !IsPublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, ap.Addr())
	}
	return nil
}

func httpsOnlyRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrInsecureRedirect, req.URL.Redacted())
	}
	return nil
}
