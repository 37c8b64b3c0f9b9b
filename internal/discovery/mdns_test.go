// ABOUTME: Tests for mDNS advertisement
// ABOUTME: Checks the service record without binding the multicast socket
package discovery

import (
	"strings"
	"testing"

	"github.com/Resonate-Protocol/pcmbox/internal/version"
)

func TestServiceRecord(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "pcmbox", DeviceID: "abc-123"})

	svc, err := adv.service("192.168.1.20", 8080)
	if err != nil {
		t.Fatalf("service() err=%v", err)
	}

	if svc.Service != ServiceType {
		t.Errorf("expected service %s, got %s", ServiceType, svc.Service)
	}
	if svc.Port != 8080 {
		t.Errorf("expected port 8080, got %d", svc.Port)
	}
	if len(svc.IPs) != 1 || svc.IPs[0].String() != "192.168.1.20" {
		t.Errorf("expected ip 192.168.1.20, got %v", svc.IPs)
	}

	txt := strings.Join(svc.TXT, " ")
	for _, want := range []string{"path=/status", "id=abc-123", "version=" + version.Version} {
		if !strings.Contains(txt, want) {
			t.Errorf("expected TXT record %q in %v", want, svc.TXT)
		}
	}
}

func TestServiceRecordRejectsBadIP(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "pcmbox"})
	for _, ip := range []string{"not-an-ip", ""} {
		if _, err := adv.service(ip, 80); err == nil {
			t.Errorf("expected error for address %q", ip)
		}
	}
}

func TestStopWithoutStart(t *testing.T) {
	adv := NewAdvertiser(Config{ServiceName: "pcmbox"})
	adv.Stop()
	if adv.Running() {
		t.Error("expected advertiser idle")
	}
}
