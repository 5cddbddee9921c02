package entraid

import (
	"context"
	"net"
	"net/url"
)

// redirectDialer sends every connection to the host of target, whatever
// address was asked for.
func redirectDialer(target string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	u, err := url.Parse(target)
	if err != nil {
		panic(err)
	}
	var d net.Dialer
	return func(ctx context.Context, network, _ string) (net.Conn, error) {
		return d.DialContext(ctx, network, u.Host)
	}
}
