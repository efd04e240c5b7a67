package identity

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// connectivityDialTimeout bounds each per-host probe dial.
const connectivityDialTimeout = 5 * time.Second

// CheckConnectivity dials each host in parallel and reports whether at
// least one succeeded. The identity creation flow uses this as an input
// signal alongside the external behavioral-verification score.
func CheckConnectivity(ctx context.Context, hosts []string) bool {
	if len(hosts) == 0 {
		return false
	}

	var reachable atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for _, host := range hosts {
		g.Go(func() error {
			dialCtx, cancel := context.WithTimeout(gctx, connectivityDialTimeout)
			defer cancel()
			var d net.Dialer
			conn, err := d.DialContext(dialCtx, "tcp", host)
			if err != nil {
				return nil
			}
			conn.Close()
			reachable.Store(true)
			return nil
		})
	}
	_ = g.Wait()
	return reachable.Load()
}
