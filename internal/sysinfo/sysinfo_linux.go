//go:build linux

package sysinfo

import (
	"fmt"
	"net"
	"sort"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func (l *Local) setHostname(name string) error {
	return unix.Sethostname([]byte(name))
}

func primaryIPv4() (string, error) {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("sysinfo: list addresses: %w", err)
	}
	sort.SliceStable(addrs, func(i, j int) bool {
		return addrs[i].LinkIndex < addrs[j].LinkIndex
	})
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		ips = append(ips, a.IP)
	}
	return firstIPv4(ips)
}
