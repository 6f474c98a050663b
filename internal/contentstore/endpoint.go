package contentstore

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

// ParseEndpoint accepts either an http(s) URL or a multiaddr such as
// /dns4/ipfs.infura.io/tcp/5001/https and returns the API base URL.
func ParseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidEndpoint)
	}
	if !strings.HasPrefix(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
		}
		u.Path = strings.TrimRight(u.Path, "/")
		return u, nil
	}

	addr, err := ma.NewMultiaddr(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	host := ""
	for _, code := range []int{ma.P_DNS4, ma.P_DNS6, ma.P_DNS, ma.P_IP4, ma.P_IP6} {
		if value, err := addr.ValueForProtocol(code); err == nil && value != "" {
			host = value
			break
		}
	}
	if host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrInvalidEndpoint, raw)
	}
	port, err := addr.ValueForProtocol(ma.P_TCP)
	if err != nil || port == "" {
		return nil, fmt.Errorf("%w: no tcp port in %q", ErrInvalidEndpoint, raw)
	}
	scheme := "http"
	if _, err := addr.ValueForProtocol(ma.P_HTTPS); err == nil {
		scheme = "https"
	} else if _, err := addr.ValueForProtocol(ma.P_TLS); err == nil {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port)}, nil
}
