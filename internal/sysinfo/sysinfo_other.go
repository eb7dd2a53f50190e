//go:build !linux

package sysinfo

import (
	"fmt"
	"net"
)

func (l *Local) setHostname(name string) error {
	return l.run("hostname", name)
}

func primaryIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("sysinfo: list addresses: %w", err)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			ips = append(ips, ipnet.IP)
		}
	}
	return firstIPv4(ips)
}
