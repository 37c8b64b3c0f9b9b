// ABOUTME: mDNS advertisement of the control surface
// ABOUTME: Announces _pcmbox._tcp with path, device id and version TXT records while the server runs
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/Resonate-Protocol/pcmbox/internal/version"
)

// ServiceType is the DNS-SD service the appliance registers
const ServiceType = "_pcmbox._tcp"

// Config holds advertisement configuration
type Config struct {
	// ServiceName is the instance name, usually the configured hostname
	ServiceName string
	// DeviceID goes into the id TXT record
	DeviceID string
}

// Advertiser registers the control surface while it is reachable.
// Start and Stop may be called repeatedly as the link comes and goes.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *mdns.Server
}

// NewAdvertiser creates an idle advertiser
func NewAdvertiser(config Config) *Advertiser {
	return &Advertiser{config: config}
}

// Start advertises port on ip, the station address reported by the
// link, replacing any running advertisement.
func (a *Advertiser) Start(ip string, port int) error {
	service, err := a.service(ip, port)
	if err != nil {
		return err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	a.mu.Lock()
	old := a.server
	a.server = server
	a.mu.Unlock()
	if old != nil {
		old.Shutdown()
	}

	slog.Info("advertising mDNS service", "name", a.config.ServiceName, "type", ServiceType, "port", port)
	return nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() {
	a.mu.Lock()
	server := a.server
	a.server = nil
	a.mu.Unlock()

	if server != nil {
		server.Shutdown()
		slog.Info("mDNS advertisement stopped", "name", a.config.ServiceName)
	}
}

// Running reports whether an advertisement is active
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

func (a *Advertiser) service(ip string, port int) (*mdns.MDNSService, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid advertise address %q", ip)
	}

	txt := []string{
		"path=/status",
		"version=" + version.Version,
	}
	if a.config.DeviceID != "" {
		txt = append(txt, "id="+a.config.DeviceID)
	}

	service, err := mdns.NewMDNSService(
		a.config.ServiceName,
		ServiceType,
		"",
		"",
		port,
		[]net.IP{parsed},
		txt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, nil
}
