package panos

import (
	"encoding/xml"
	"fmt"
	"strings"

	"vpn-provisioner/internal/model"
)

type yesNo bool

func (b yesNo) MarshalText() ([]byte, error) {
	if b {
		return []byte("yes"), nil
	}
	return []byte("no"), nil
}

func (b *yesNo) UnmarshalText(text []byte) error {
	*b = yesNo(strings.TrimSpace(string(text)) == "yes")
	return nil
}

type memberList struct {
	Members []string `xml:"member"`
}

// members returns nil for an empty list so the element is omitted.
func members[T ~string](values []T) *memberList {
	if len(values) == 0 {
		return nil
	}
	m := &memberList{Members: make([]string, len(values))}
	for i, v := range values {
		m.Members[i] = string(v)
	}
	return m
}

func member(value string) *memberList {
	if value == "" {
		return nil
	}
	return &memberList{Members: []string{value}}
}

type namedEntry struct {
	Name string `xml:"name,attr"`
}

type empty struct{}

type ikeGatewayEntry struct {
	XMLName      xml.Name        `xml:"entry"`
	Name         string          `xml:"name,attr"`
	PreSharedKey string          `xml:"authentication>pre-shared-key>key"`
	Protocol     ikeProtocol     `xml:"protocol"`
	Common       ikeCommon       `xml:"protocol-common"`
	LocalAddress ikeLocalAddress `xml:"local-address"`
	PeerAddress  ikePeerAddress  `xml:"peer-address"`
	PeerID       *ikePeerID      `xml:"peer-id"`
}

type ikeProtocol struct {
	IKEv1   ikeVersion `xml:"ikev1"`
	IKEv2   ikeVersion `xml:"ikev2"`
	Version string     `xml:"version"`
}

type ikeVersion struct {
	ExchangeMode  string `xml:"exchange-mode,omitempty"`
	CryptoProfile string `xml:"ike-crypto-profile,omitempty"`
	DPD           yesNo  `xml:"dpd>enable"`
}

type ikeCommon struct {
	NATTraversal  yesNo `xml:"nat-traversal>enable"`
	PassiveMode   yesNo `xml:"passive-mode"`
	Fragmentation yesNo `xml:"fragmentation>enable"`
}

type ikeLocalAddress struct {
	Interface  string `xml:"interface"`
	IP         string `xml:"ip,omitempty"`
	FloatingIP string `xml:"floating-ip,omitempty"`
}

type ikePeerAddress struct {
	Dynamic *empty `xml:"dynamic"`
	IP      string `xml:"ip,omitempty"`
	FQDN    string `xml:"fqdn,omitempty"`
}

type ikePeerID struct {
	Type string `xml:"type"`
	ID   string `xml:"id"`
}

type tunnelInterfaceEntry struct {
	XMLName xml.Name     `xml:"entry"`
	Name    string       `xml:"name,attr"`
	IPs     []namedEntry `xml:"ip>entry"`
	Comment string       `xml:"comment,omitempty"`
}

type ipsecTunnelEntry struct {
	XMLName         xml.Name `xml:"entry"`
	Name            string   `xml:"name,attr"`
	TunnelInterface string   `xml:"tunnel-interface"`
	AutoKey         autoKey  `xml:"auto-key"`
	TunnelMonitor   yesNo    `xml:"tunnel-monitor>enable"`
}

type autoKey struct {
	Gateways      []namedEntry `xml:"ike-gateway>entry"`
	CryptoProfile string       `xml:"ipsec-crypto-profile"`
}

type zoneEntry struct {
	XMLName     xml.Name    `xml:"entry"`
	Name        string      `xml:"name,attr"`
	Layer3      *memberList `xml:"network>layer3"`
	Layer2      *memberList `xml:"network>layer2"`
	VirtualWire *memberList `xml:"network>virtual-wire"`
	Tap         *memberList `xml:"network>tap"`
}

type addressEntry struct {
	XMLName     xml.Name `xml:"entry"`
	Name        string   `xml:"name,attr"`
	IPNetmask   string   `xml:"ip-netmask,omitempty"`
	IPRange     string   `xml:"ip-range,omitempty"`
	FQDN        string   `xml:"fqdn,omitempty"`
	Description string   `xml:"description,omitempty"`
}

type staticRouteEntry struct {
	XMLName     xml.Name `xml:"entry"`
	Name        string   `xml:"name,attr"`
	Destination string   `xml:"destination"`
	Interface   string   `xml:"interface,omitempty"`
	Metric      int      `xml:"metric,omitempty"`
	Nexthop     *nexthop `xml:"nexthop"`
}

type nexthop struct {
	IPAddress string `xml:"ip-address,omitempty"`
	Discard   *empty `xml:"discard"`
}

type securityRuleEntry struct {
	XMLName     xml.Name      `xml:"entry"`
	Name        string        `xml:"name,attr"`
	From        *memberList   `xml:"from"`
	To          *memberList   `xml:"to"`
	Source      *memberList   `xml:"source"`
	SourceUser  *memberList   `xml:"source-user"`
	HIPProfiles *memberList   `xml:"hip-profiles"`
	Destination *memberList   `xml:"destination"`
	Application *memberList   `xml:"application"`
	Service     *memberList   `xml:"service"`
	Category    *memberList   `xml:"category"`
	Action      string        `xml:"action"`
	LogSetting  string        `xml:"log-setting,omitempty"`
	Profiles    *ruleProfiles `xml:"profile-setting>profiles"`
}

type ruleProfiles struct {
	Virus            *memberList `xml:"virus"`
	Spyware          *memberList `xml:"spyware"`
	Vulnerability    *memberList `xml:"vulnerability"`
	WildfireAnalysis *memberList `xml:"wildfire-analysis"`
}

// entry converts obj to its XML entry.
func entry(obj model.Object) (any, error) {
	switch o := obj.(type) {
	case model.IkeGateway:
		return ikeGatewayXML(o)
	case model.TunnelInterface:
		e := tunnelInterfaceEntry{Name: string(o.Name), Comment: o.Comment}
		if o.IP != "" {
			e.IPs = []namedEntry{{Name: o.IP}}
		}
		return e, nil
	case model.IpsecTunnel:
		if o.Type != "auto-key" {
			return nil, fmt.Errorf("ipsec tunnel %s: unsupported type %q", o.Name, o.Type)
		}
		return ipsecTunnelEntry{
			Name:            string(o.Name),
			TunnelInterface: string(o.TunnelInterface),
			AutoKey: autoKey{
				Gateways:      []namedEntry{{Name: string(o.IkeGateway)}},
				CryptoProfile: o.IpsecCryptoProfile,
			},
			TunnelMonitor: yesNo(o.EnableTunnelMonitor),
		}, nil
	case model.Zone:
		return zoneXML(o)
	case model.AddressObject:
		e := addressEntry{Name: string(o.Name), Description: o.Description}
		switch o.Type {
		case "ip-netmask":
			e.IPNetmask = o.Value
		case "ip-range":
			e.IPRange = o.Value
		case "fqdn":
			e.FQDN = o.Value
		default:
			return nil, fmt.Errorf("address %s: unsupported type %q", o.Name, o.Type)
		}
		return e, nil
	case model.StaticRoute:
		e := staticRouteEntry{
			Name:        o.Name,
			Destination: string(o.Destination),
			Interface:   string(o.Interface),
			Metric:      o.Metric,
		}
		switch o.NexthopType {
		case "ip-address":
			e.Nexthop = &nexthop{IPAddress: o.Nexthop}
		case "discard":
			e.Nexthop = &nexthop{Discard: &empty{}}
		case "none", "":
		default:
			return nil, fmt.Errorf("static route %s: unsupported nexthop type %q", o.Name, o.NexthopType)
		}
		return e, nil
	case model.SecurityRule:
		e := securityRuleEntry{
			Name:        string(o.Name),
			From:        members(o.FromZone),
			To:          members(o.ToZone),
			Source:      members(o.Source),
			SourceUser:  members(o.SourceUser),
			HIPProfiles: members(o.HIPProfiles),
			Destination: members(o.Destination),
			Application: members(o.Application),
			Service:     members(o.Service),
			Category:    members(o.URLCategory),
			Action:      o.Action,
			LogSetting:  o.LogSetting,
		}
		if o.Virus != "" || o.Spyware != "" || o.Vulnerability != "" || o.WildfireAnalysis != "" {
			e.Profiles = &ruleProfiles{
				Virus:            member(o.Virus),
				Spyware:          member(o.Spyware),
				Vulnerability:    member(o.Vulnerability),
				WildfireAnalysis: member(o.WildfireAnalysis),
			}
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported object type %T", obj)
	}
}

func ikeGatewayXML(g model.IkeGateway) (ikeGatewayEntry, error) {
	e := ikeGatewayEntry{
		Name:         string(g.Name),
		PreSharedKey: g.PreSharedKey,
		Protocol: ikeProtocol{
			IKEv1: ikeVersion{
				ExchangeMode:  g.IKEv1ExchangeMode,
				CryptoProfile: g.IKEv1CryptoProfile,
				DPD:           yesNo(g.EnableDeadPeerDetection),
			},
			IKEv2: ikeVersion{
				CryptoProfile: g.IKEv2CryptoProfile,
				DPD:           yesNo(g.EnableDeadPeerDetection),
			},
			Version: g.Version,
		},
		Common: ikeCommon{
			NATTraversal:  yesNo(g.EnableNATTraversal),
			PassiveMode:   yesNo(g.EnablePassiveMode),
			Fragmentation: yesNo(g.EnableFragmentation),
		},
		LocalAddress: ikeLocalAddress{Interface: g.Interface},
	}

	switch g.LocalIPAddressType {
	case "ip":
		e.LocalAddress.IP = g.LocalIPAddress
	case "floating-ip":
		e.LocalAddress.FloatingIP = g.LocalIPAddress
	case "":
	default:
		return e, fmt.Errorf("ike gateway %s: unsupported local address type %q", g.Name, g.LocalIPAddressType)
	}

	switch g.PeerIPType {
	case "dynamic":
		e.PeerAddress.Dynamic = &empty{}
	case "ip":
		e.PeerAddress.IP = g.PeerIPValue
	case "fqdn":
		e.PeerAddress.FQDN = g.PeerIPValue
	default:
		return e, fmt.Errorf("ike gateway %s: unsupported peer address type %q", g.Name, g.PeerIPType)
	}

	if g.PeerIDType != "" {
		e.PeerID = &ikePeerID{Type: g.PeerIDType, ID: g.PeerIDValue}
	}
	return e, nil
}

func zoneXML(z model.Zone) (zoneEntry, error) {
	e := zoneEntry{Name: string(z.Name)}
	ifaces := members(z.Interfaces)
	if ifaces == nil {
		ifaces = &memberList{}
	}
	switch z.Mode {
	case "layer3":
		e.Layer3 = ifaces
	case "layer2":
		e.Layer2 = ifaces
	case "virtual-wire":
		e.VirtualWire = ifaces
	case "tap":
		e.Tap = ifaces
	default:
		return e, fmt.Errorf("zone %s: unsupported mode %q", z.Name, z.Mode)
	}
	return e, nil
}

type namedMembers struct {
	XMLName xml.Name
	Members []string `xml:"member"`
}

// xmlString marshals m as an element called name.
func xmlString(name string, m *memberList) (string, error) {
	e := namedMembers{XMLName: xml.Name{Local: name}}
	if m != nil {
		e.Members = m.Members
	}
	out, err := xml.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// memberElements marshals values as sibling <member> nodes.
func memberElements[T ~string](values []T) (string, error) {
	var b strings.Builder
	enc := xml.NewEncoder(&b)
	for _, v := range values {
		if err := enc.EncodeElement(string(v), xml.StartElement{Name: xml.Name{Local: "member"}}); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// encodeEntries marshals objs into one element string of concatenated
// <entry> nodes.
func encodeEntries(objs []model.Object) (string, error) {
	var b strings.Builder
	for _, obj := range objs {
		e, err := entry(obj)
		if err != nil {
			return "", err
		}
		out, err := xml.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s %s: %w", obj.Category(), obj.EntryName(), err)
		}
		b.Write(out)
	}
	return b.String(), nil
}

type routerResult struct {
	Entries []routerEntry `xml:"entry"`
}

type routerEntry struct {
	Name       string     `xml:"name,attr"`
	Interfaces memberList `xml:"interface"`
}

type addressGroupResult struct {
	Entries []addressGroupEntry `xml:"address-group>entry"`
}

type addressGroupEntry struct {
	XMLName xml.Name    `xml:"entry"`
	Name    string      `xml:"name,attr"`
	Static  *memberList `xml:"static"`
	Dynamic *struct {
		Filter string `xml:"filter"`
	} `xml:"dynamic"`
}

type haResult struct {
	Enabled     yesNo  `xml:"enabled"`
	LocalState  string `xml:"group>local-info>state"`
	PeerState   string `xml:"group>peer-info>state"`
	RunningSync string `xml:"group>running-sync"`
}
