package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	controllers []*Controller
}

func (f *fakeBrowser) Browse(ctx context.Context) (<-chan *Controller, error) {
	out := make(chan *Controller)
	go func() {
		defer close(out)
		for _, c := range f.controllers {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func TestTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"name=Invernadero", "fw=1.2", "flag", ""})
	assert.Equal(t, TXTRecordMap{"name": "Invernadero", "fw": "1.2", "flag": ""}, txt)

	assert.Equal(t, []string{"a=1", "b=2"}, TXTRecordsToStrings(TXTRecordMap{"b": "2", "a": "1"}))
}

func TestEntryToController(t *testing.T) {
	entry := zeroconf.NewServiceEntry("greenhouse-1", ServiceTypeController, Domain)
	entry.HostName = "esp32-greenhouse.local."
	entry.Text = []string{"name=Invernadero Norte", "fw=2.0.1", "path=/datos"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.2.14")}
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	c := entryToController(entry)
	assert.Equal(t, "greenhouse-1", c.InstanceName)
	assert.Equal(t, DefaultControllerPort, c.Port)
	assert.Equal(t, "Invernadero Norte", c.Name)
	assert.Equal(t, "2.0.1", c.Firmware)
	assert.Equal(t, "/datos", c.StatePath)
	assert.Equal(t, []string{"192.168.2.14", "fe80::1"}, c.Addresses)

	addr, err := c.Address()
	require.NoError(t, err)
	assert.Equal(t, "192.168.2.14", addr)
	assert.Equal(t, "Invernadero Norte (192.168.2.14:80)", c.String())
}

func TestControllerAddressFallbacks(t *testing.T) {
	c := &Controller{Addresses: []string{"fe80::2"}}
	addr, err := c.Address()
	require.NoError(t, err)
	assert.Equal(t, "fe80::2", addr)

	c = &Controller{Host: "esp32.local."}
	addr, err = c.Address()
	require.NoError(t, err)
	assert.Equal(t, "esp32.local", addr)

	c = &Controller{InstanceName: "x"}
	_, err = c.Address()
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestInstanceSetEmitsCopies(t *testing.T) {
	seen := make(instanceSet)

	first := seen.add(&Controller{InstanceName: "gh", Addresses: []string{"192.168.2.14"}})
	require.NotNil(t, first)

	assert.Nil(t, seen.add(&Controller{InstanceName: "gh", Addresses: []string{"192.168.2.14"}}), "nothing new")

	second := seen.add(&Controller{InstanceName: "gh", Addresses: []string{"fe80::1"}})
	require.NotNil(t, second)
	assert.Equal(t, []string{"192.168.2.14", "fe80::1"}, second.Addresses)

	seen.add(&Controller{InstanceName: "gh", Addresses: []string{"10.0.0.9"}})
	assert.Equal(t, []string{"192.168.2.14"}, first.Addresses, "emitted value unchanged")
	assert.Equal(t, []string{"192.168.2.14", "fe80::1"}, second.Addresses, "emitted value unchanged")
}

func TestFind(t *testing.T) {
	b := &fakeBrowser{controllers: []*Controller{
		{InstanceName: "no-address"},
		{InstanceName: "good", Port: 80, Addresses: []string{"10.0.0.5"}},
	}}

	c, err := Find(context.Background(), b, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "good", c.InstanceName)
}

func TestFindTimeout(t *testing.T) {
	_, err := Find(context.Background(), &fakeBrowser{}, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewMDNSBrowserDefaults(t *testing.T) {
	b := NewMDNSBrowser(BrowserConfig{})
	assert.Equal(t, ServiceTypeController, b.config.Service)
	assert.Equal(t, Domain, b.config.Domain)
	assert.Empty(t, b.browserOptions())
}
