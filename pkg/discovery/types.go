package discovery

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Service types and defaults.
const (
	// ServiceTypeController is advertised by greenhouse controllers.
	ServiceTypeController = "_invernadero._tcp"

	// ServiceTypeDashboard is advertised by the dashboard daemon.
	ServiceTypeDashboard = "_invernadero-ui._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultControllerPort is assumed when an entry carries no port.
	DefaultControllerPort = 80
)

// TXT record keys.
const (
	TXTKeyName     = "name"
	TXTKeyFirmware = "fw"
	TXTKeyPath     = "path"
	TXTKeyVersion  = "ver"
)

// Discovery errors.
var (
	ErrNotFound  = errors.New("no controller found")
	ErrNoAddress = errors.New("controller entry has no usable address")
)

// TXTRecordMap holds decoded TXT key/value pairs.
type TXTRecordMap map[string]string

// Controller is a controller found on the network.
type Controller struct {
	InstanceName string
	Host         string
	Port         int
	Addresses    []string

	// Name is the human-readable controller name from TXT.
	Name string

	// Firmware is the firmware version from TXT.
	Firmware string

	// StatePath overrides the state endpoint when advertised.
	StatePath string
}

func (c *Controller) clone() *Controller {
	cp := *c
	cp.Addresses = append([]string(nil), c.Addresses...)
	return &cp
}

// Address returns the preferred address, IPv4 first.
func (c *Controller) Address() (string, error) {
	var v6 string
	for _, a := range c.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return a, nil
		}
		if v6 == "" {
			v6 = a
		}
	}
	if v6 != "" {
		return v6, nil
	}
	if h := strings.TrimSuffix(c.Host, "."); h != "" {
		return h, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoAddress, c.InstanceName)
}

// String returns a short description.
func (c *Controller) String() string {
	addr, _ := c.Address()
	name := c.Name
	if name == "" {
		name = c.InstanceName
	}
	return fmt.Sprintf("%s (%s)", name, net.JoinHostPort(addr, strconv.Itoa(c.Port)))
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range add {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}
