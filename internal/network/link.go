// ABOUTME: Wireless link abstraction and its host rendition
// ABOUTME: HostLink treats an up interface with an IPv4 address as an associated station
package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
)

// Link is the station interface of the radio
type Link interface {
	// Connect starts association. It returns before the link is up.
	Connect(ctx context.Context, ssid, password string) error
	// IsConnected reports whether the link has an address
	IsConnected() bool
	// IP returns the station address, "" when down
	IP() string
}

// HostLink maps association onto a host network interface. The host OS
// owns the radio, so the SSID is only checked for presence and the
// password is never used.
type HostLink struct {
	// Interface restricts the link to one NIC. Empty means any
	// non-loopback interface that is up.
	Interface string

	associated atomic.Bool

	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

// NewHostLink creates a link bound to iface ("" for any)
func NewHostLink(iface string) *HostLink {
	return &HostLink{
		Interface:  iface,
		interfaces: net.Interfaces,
		addrs:      func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

// Connect records the association request. Without an SSID the link
// stays down.
func (l *HostLink) Connect(ctx context.Context, ssid, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ssid == "" {
		l.associated.Store(false)
		return ErrMissingCredentials
	}
	slog.Info("associating", "ssid", ssid, "interface", l.Interface)
	l.associated.Store(true)
	return nil
}

// IsConnected reports whether association succeeded and an IPv4
// address is present
func (l *HostLink) IsConnected() bool {
	return l.associated.Load() && l.IP() != ""
}

// IP returns the first usable IPv4 address
func (l *HostLink) IP() string {
	ips, err := l.localIPs()
	if err != nil || len(ips) == 0 {
		return ""
	}
	return ips[0].String()
}

// localIPs returns IPv4 addresses of up interfaces. Loopback is only
// considered when named explicitly.
func (l *HostLink) localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := l.interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if l.Interface != "" && iface.Name != l.Interface {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if l.Interface == "" && iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := l.addrs(iface)
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			if l.Interface == "" && ipnet.IP.IsLoopback() {
				continue
			}
			ips = append(ips, ipnet.IP)
		}
	}

	return ips, nil
}
