package discovery

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Browser finds controllers.
type Browser interface {
	// Browse emits controllers until ctx is cancelled. Entries for the same
	// instance seen on several interfaces are merged; the instance is emitted
	// again when a later entry adds addresses. Emitted values are not
	// modified afterwards.
	Browse(ctx context.Context) (<-chan *Controller, error)
}

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Service is the DNS-SD service type. Defaults to ServiceTypeController.
	Service string

	// Domain defaults to Domain.
	Domain string

	// Interface limits browsing to one network interface.
	Interface string

	Logger *slog.Logger
}

// MDNSBrowser implements Browser using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.Service == "" {
		config.Service = ServiceTypeController
	}
	if config.Domain == "" {
		config.Domain = Domain
	}
	return &MDNSBrowser{config: config}
}

// Browse implements Browser.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Controller, error) {
	out := make(chan *Controller)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(instanceSet)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				c := seen.add(entryToController(entry))
				if c == nil {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case entry, ok := <-removed:
				if ok {
					delete(seen, entry.Instance)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	opts := b.browserOptions()
	go func() {
		if err := zeroconf.Browse(ctx, b.config.Service, b.config.Domain, entries, removed, opts...); err != nil && b.config.Logger != nil {
			b.config.Logger.Warn("mDNS browse failed", "service", b.config.Service, "error", err)
		}
	}()

	return out, nil
}

// instanceSet tracks the controllers a browse has reported, by instance.
type instanceSet map[string]*Controller

// add records c and returns a copy to emit, or nil if c adds nothing new.
func (s instanceSet) add(c *Controller) *Controller {
	existing, found := s[c.InstanceName]
	if !found {
		s[c.InstanceName] = c
		return c.clone()
	}
	merged := mergeAddresses(existing.Addresses, c.Addresses)
	if len(merged) == len(existing.Addresses) {
		return nil
	}
	existing.Addresses = merged
	return existing.clone()
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToController converts a zeroconf entry.
func entryToController(entry *zeroconf.ServiceEntry) *Controller {
	txt := StringsToTXTRecords(entry.Text)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	port := entry.Port
	if port == 0 {
		port = DefaultControllerPort
	}

	return &Controller{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         port,
		Addresses:    addrs,
		Name:         txt[TXTKeyName],
		Firmware:     txt[TXTKeyFirmware],
		StatePath:    txt[TXTKeyPath],
	}
}

// Find returns the first controller b reports within timeout.
func Find(ctx context.Context, b Browser, timeout time.Duration) (*Controller, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case c, ok := <-found:
			if !ok {
				return nil, ErrNotFound
			}
			if _, err := c.Address(); err != nil {
				continue
			}
			return c, nil
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
