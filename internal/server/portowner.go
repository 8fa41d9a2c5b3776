package server

import (
	"context"
	"fmt"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Replaced in tests.
var lookupPortOwner = portOwner

// portOwner names the process listening on TCP port, or returns "" if none
// can be found.
func portOwner(ctx context.Context, port int) string {
	if port <= 0 {
		return ""
	}

	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return ""
	}

	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port || c.Pid <= 0 {
			continue
		}

		p, err := process.NewProcessWithContext(ctx, c.Pid)
		if err != nil {
			return fmt.Sprintf("pid %d", c.Pid)
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			return fmt.Sprintf("pid %d", c.Pid)
		}
		return fmt.Sprintf("%s (pid %d)", name, c.Pid)
	}
	return ""
}
