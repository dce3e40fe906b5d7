package model

import (
	"fmt"
	"time"
)

// Typed object names. References between objects use these so the
// referenced category is visible in the type.
type (
	GatewayName   string
	InterfaceName string
	TunnelName    string
	AddressName   string
	RouterName    string
	ZoneName      string
	RuleName      string
)

type Category string

const (
	CategoryIkeGateway      Category = "ike_gateway"
	CategoryTunnelInterface Category = "tunnel_interface"
	CategoryRouterInterface Category = "router_interface"
	CategoryZone            Category = "zone"
	CategoryIpsecTunnel     Category = "ipsec_tunnel"
	CategoryAddressObject   Category = "address_object"
	CategoryAddressGroup    Category = "address_group"
	CategoryStaticRoute     Category = "static_route"
	CategorySecurityRule    Category = "security_rule"
)

// ApplyOrder is the order in which categories are pushed to the device.
// An object may only reference objects of an earlier category.
var ApplyOrder = []Category{
	CategoryIkeGateway,
	CategoryTunnelInterface,
	CategoryRouterInterface,
	CategoryZone,
	CategoryIpsecTunnel,
	CategoryAddressObject,
	CategoryAddressGroup,
	CategoryStaticRoute,
	CategorySecurityRule,
}

// Rank returns the position of c in ApplyOrder, or -1.
func (c Category) Rank() int {
	for i, o := range ApplyOrder {
		if o == c {
			return i
		}
	}
	return -1
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if c.Rank() < 0 {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Settings is the decoded provisioning configuration.
type Settings struct {
	Firewalls     FirewallSettings     `toml:"firewalls"`
	APIKey        APIKeySettings       `toml:"api_key"`
	RouterName    RouterSettings       `toml:"router_name"`
	IkeGateway    IkeGatewaySettings   `toml:"ike_gateway"`
	IpsecTunnel   IpsecTunnelSettings  `toml:"ipsec_tunnel"`
	AddressObject AddressSettings      `toml:"address_object"`
	StaticRoute   StaticRouteSettings  `toml:"static_route"`
	SecurityRule  SecurityRuleSettings `toml:"security_rule"`
	Zone          ZoneSettings         `toml:"zone"`
	AddressGroup  AddressGroupSettings `toml:"address_group"`
	Apply         ApplySettings        `toml:"apply"`
}

type FirewallSettings struct {
	Primary            string   `toml:"fw"`
	Peer               string   `toml:"fw_ha"`
	Vsys               string   `toml:"vsys"`
	InsecureSkipVerify bool     `toml:"insecure_skip_verify"`
	Timeout            Duration `toml:"timeout"`
}

type APIKeySettings struct {
	Key string `toml:"key"`
}

type RouterSettings struct {
	Name RouterName `toml:"name"`
}

type IkeGatewaySettings struct {
	Version                 string `toml:"version"`
	PeerIPType              string `toml:"peer_ip_type"`
	Interface               string `toml:"interface"`
	LocalIPAddressType      string `toml:"local_ip_address_type"`
	LocalIPAddress          string `toml:"local_ip_address"`
	PreSharedKey            string `toml:"pre_shared_key"`
	PeerIDType              string `toml:"peer_id_type"`
	EnablePassiveMode       bool   `toml:"enable_passive_mode"`
	EnableNATTraversal      bool   `toml:"enable_nat_traversal"`
	EnableFragmentation     bool   `toml:"enable_fragmentation"`
	IKEv1ExchangeMode       string `toml:"ikev1_exchange_mode"`
	IKEv1CryptoProfile      string `toml:"ikev1_crypto_profile"`
	EnableDeadPeerDetection bool   `toml:"enable_dead_peer_detection"`
	IKEv2CryptoProfile      string `toml:"ikev2_crypto_profile"`
}

type IpsecTunnelSettings struct {
	Type                string `toml:"type"`
	IpsecCryptoProfile  string `toml:"ak_ipsec_crypto_profile"`
	EnableTunnelMonitor bool   `toml:"enable_tunnel_monitor"`
}

type AddressSettings struct {
	Type string `toml:"type"` // "ip-netmask", "ip-range", "fqdn"
}

type StaticRouteSettings struct {
	NexthopType string `toml:"nexthop_type"` // "ip-address", "discard", "none"
	Metric      int    `toml:"metric"`
}

type SecurityRuleSettings struct {
	FromZone         []string `toml:"fromzone"`
	ToZone           []string `toml:"tozone"`
	Source           []string `toml:"source"`
	SourceUser       []string `toml:"source_user"`
	HIPProfiles      []string `toml:"hip_profiles"`
	Application      []string `toml:"application"`
	Service          []string `toml:"service"`
	Category         []string `toml:"category"`
	Action           string   `toml:"action"`
	LogSetting       string   `toml:"log_setting"`
	Virus            string   `toml:"virus"`
	Spyware          string   `toml:"spyware"`
	Vulnerability    string   `toml:"vulnerability"`
	WildfireAnalysis string   `toml:"wildfire_analysis"`
}

type ZoneSettings struct {
	Name ZoneName `toml:"name"`
	Mode string   `toml:"mode"`
}

type AddressGroupSettings struct {
	Name string `toml:"name"`
}

// ApplySettings tunes how categories are pushed. PerItem lists the
// categories created with one call per object instead of one bulk call.
type ApplySettings struct {
	PerItem []string `toml:"per_item"`
}

// Duration is a time.Duration decoded from a TOML string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// EndpointRecord is one remote site from the endpoint list.
type EndpointRecord struct {
	Hostname          string
	IkeGatewayName    string
	TunnelName        string
	PanTunnel         string
	IpsecTunnelName   string
	ObjectName        string
	Subnet            string
	ObjectDescription string
	LocalTunnel       string
	FirewallRuleName  string
}
