package model

// Object is a configuration entry that can be created on the device.
type Object interface {
	Category() Category
	EntryName() string
}

type IkeGateway struct {
	Name                    GatewayName
	Version                 string
	PeerIPType              string
	PeerIPValue             string
	Interface               string
	LocalIPAddressType      string
	LocalIPAddress          string
	PreSharedKey            string
	PeerIDType              string
	PeerIDValue             string
	EnablePassiveMode       bool
	EnableNATTraversal      bool
	EnableFragmentation     bool
	IKEv1ExchangeMode       string
	IKEv1CryptoProfile      string
	EnableDeadPeerDetection bool
	IKEv2CryptoProfile      string
}

type TunnelInterface struct {
	Name    InterfaceName
	IP      string // address with prefix, e.g. 169.254.1.1/30
	Comment string
}

type IpsecTunnel struct {
	Name                TunnelName
	TunnelInterface     InterfaceName
	Type                string
	IkeGateway          GatewayName
	IpsecCryptoProfile  string
	EnableTunnelMonitor bool
}

type AddressObject struct {
	Name        AddressName
	Type        string
	Value       string
	Description string
}

type StaticRoute struct {
	Name          string
	VirtualRouter RouterName
	Destination   AddressName
	NexthopType   string
	Nexthop       string
	Interface     InterfaceName
	Metric        int
}

type SecurityRule struct {
	Name             RuleName
	FromZone         []string
	ToZone           []string
	Source           []string
	SourceUser       []string
	HIPProfiles      []string
	Destination      []AddressName
	Application      []string
	Service          []string
	URLCategory      []string
	Action           string
	LogSetting       string
	Virus            string
	Spyware          string
	Vulnerability    string
	WildfireAnalysis string
}

// Zone is the single logical zone every tunnel interface joins.
type Zone struct {
	Name       ZoneName
	Mode       string
	Interfaces []InterfaceName
}

func (g IkeGateway) Category() Category      { return CategoryIkeGateway }
func (t TunnelInterface) Category() Category { return CategoryTunnelInterface }
func (t IpsecTunnel) Category() Category     { return CategoryIpsecTunnel }
func (a AddressObject) Category() Category   { return CategoryAddressObject }
func (r StaticRoute) Category() Category     { return CategoryStaticRoute }
func (r SecurityRule) Category() Category    { return CategorySecurityRule }
func (z Zone) Category() Category            { return CategoryZone }

func (g IkeGateway) EntryName() string      { return string(g.Name) }
func (t TunnelInterface) EntryName() string { return string(t.Name) }
func (t IpsecTunnel) EntryName() string     { return string(t.Name) }
func (a AddressObject) EntryName() string   { return string(a.Name) }
func (r StaticRoute) EntryName() string     { return r.Name }
func (r SecurityRule) EntryName() string    { return string(r.Name) }
func (z Zone) EntryName() string            { return string(z.Name) }

// VirtualRouter is the device routing context tunnel interfaces attach to.
type VirtualRouter struct {
	Name       RouterName
	Interfaces []InterfaceName
}

// AddressGroup is a static address group on the device.
type AddressGroup struct {
	Name    string
	Static  []AddressName
	Dynamic bool
}

// RouterSnapshot records a fetch-mutate-push cycle on the virtual router.
// The cycle is not atomic: Before is what was read, After what was pushed.
type RouterSnapshot struct {
	Before VirtualRouter
	After  VirtualRouter
}

type GroupSnapshot struct {
	Before AddressGroup
	After  AddressGroup
}

// HAState is the high-availability status reported by a device.
type HAState struct {
	Enabled     bool
	LocalState  string // "active", "passive", ...
	PeerState   string
	RunningSync string // "synchronized", "synchronization in progress", ...
}

func (s HAState) Active() bool {
	return !s.Enabled || s.LocalState == "active" || s.LocalState == "active-primary"
}

func (s HAState) Synced() bool {
	return !s.Enabled || s.RunningSync == "synchronized"
}
