package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// DashboardInfo describes the dashboard daemon announcement.
type DashboardInfo struct {
	Instance string
	Port     int
	Version  string

	// Interface limits the announcement to one network interface.
	Interface string
}

// Advertiser announces the dashboard via mDNS.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an idle advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// Advertise starts (or restarts) the dashboard announcement.
func (a *Advertiser) Advertise(info DashboardInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var ifaces []net.Interface
	if info.Interface != "" {
		if iface, err := net.InterfaceByName(info.Interface); err == nil {
			ifaces = []net.Interface{*iface}
		}
	}

	txt := TXTRecordsToStrings(TXTRecordMap{
		TXTKeyVersion: info.Version,
		TXTKeyPath:    "/api/v1",
	})
	server, err := zeroconf.Register(info.Instance, ServiceTypeDashboard, Domain, info.Port, txt, ifaces)
	if err != nil {
		return fmt.Errorf("failed to register dashboard service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the announcement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
