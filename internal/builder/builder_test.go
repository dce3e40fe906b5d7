package builder

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vpn-provisioner/internal/model"
)

func testSettings() *model.Settings {
	return &model.Settings{
		Firewalls:  model.FirewallSettings{Primary: "192.0.2.10", Peer: "192.0.2.11", Vsys: "vsys1"},
		APIKey:     model.APIKeySettings{Key: "secret"},
		RouterName: model.RouterSettings{Name: "default"},
		IkeGateway: model.IkeGatewaySettings{
			Version:                 "ikev2-preferred",
			PeerIPType:              "dynamic",
			Interface:               "ethernet1/1",
			LocalIPAddressType:      "ip",
			LocalIPAddress:          "198.51.100.2/29",
			PreSharedKey:            "psk",
			PeerIDType:              "fqdn",
			EnablePassiveMode:       true,
			EnableNATTraversal:      true,
			IKEv1ExchangeMode:       "aggressive",
			IKEv1CryptoProfile:      "default",
			EnableDeadPeerDetection: true,
			IKEv2CryptoProfile:      "suite-b",
		},
		IpsecTunnel:   model.IpsecTunnelSettings{Type: "auto-key", IpsecCryptoProfile: "default"},
		AddressObject: model.AddressSettings{Type: "ip-netmask"},
		StaticRoute:   model.StaticRouteSettings{NexthopType: "ip-address", Metric: 10},
		SecurityRule: model.SecurityRuleSettings{
			FromZone:         []string{"trust"},
			ToZone:           []string{"vpn"},
			Source:           []string{"any"},
			SourceUser:       []string{"any"},
			HIPProfiles:      []string{"any"},
			Application:      []string{"any"},
			Service:          []string{"application-default"},
			Category:         []string{"any"},
			Action:           "allow",
			LogSetting:       "default",
			Virus:            "default",
			Spyware:          "strict",
			Vulnerability:    "strict",
			WildfireAnalysis: "default",
		},
		Zone:         model.ZoneSettings{Name: "vpn", Mode: "layer3"},
		AddressGroup: model.AddressGroupSettings{Name: "VPN-SITES"},
	}
}

func siteA() model.EndpointRecord {
	return model.EndpointRecord{
		Hostname:          "site-a",
		IkeGatewayName:    "GW-A",
		TunnelName:        "tunnel.1",
		PanTunnel:         "169.254.1.1",
		IpsecTunnelName:   "IPSEC-A",
		ObjectName:        "NET-A",
		Subnet:            "10.1.0.0/24",
		ObjectDescription: "Site A LAN",
		LocalTunnel:       "169.254.1.2",
		FirewallRuleName:  "ALLOW-A",
	}
}

func site(n int) model.EndpointRecord {
	return model.EndpointRecord{
		Hostname:         fmt.Sprintf("site-%d", n),
		IkeGatewayName:   fmt.Sprintf("GW-%d", n),
		TunnelName:       fmt.Sprintf("tunnel.%d", n),
		PanTunnel:        fmt.Sprintf("169.254.%d.1", n),
		IpsecTunnelName:  fmt.Sprintf("IPSEC-%d", n),
		ObjectName:       fmt.Sprintf("NET-%d", n),
		Subnet:           fmt.Sprintf("10.%d.0.0/24", n),
		LocalTunnel:      fmt.Sprintf("169.254.%d.2", n),
		FirewallRuleName: fmt.Sprintf("ALLOW-%d", n),
	}
}

func TestBuildSingleEndpoint(t *testing.T) {
	s := testSettings()
	plan, err := Build(s, []model.EndpointRecord{siteA()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantGateway := model.IkeGateway{
		Name:                    "GW-A",
		Version:                 "ikev2-preferred",
		PeerIPType:              "dynamic",
		Interface:               "ethernet1/1",
		LocalIPAddressType:      "ip",
		LocalIPAddress:          "198.51.100.2/29",
		PreSharedKey:            "psk",
		PeerIDType:              "fqdn",
		PeerIDValue:             "site-a",
		EnablePassiveMode:       true,
		EnableNATTraversal:      true,
		IKEv1ExchangeMode:       "aggressive",
		IKEv1CryptoProfile:      "default",
		EnableDeadPeerDetection: true,
		IKEv2CryptoProfile:      "suite-b",
	}
	if diff := cmp.Diff([]model.IkeGateway{wantGateway}, plan.Gateways); diff != "" {
		t.Errorf("gateway mismatch (-want +got):\n%s", diff)
	}

	wantIface := model.TunnelInterface{Name: "tunnel.1", IP: "169.254.1.1/30", Comment: "Tunnel to site-a"}
	if diff := cmp.Diff([]model.TunnelInterface{wantIface}, plan.TunnelInterfaces); diff != "" {
		t.Errorf("tunnel interface mismatch (-want +got):\n%s", diff)
	}

	wantZone := model.Zone{Name: "vpn", Mode: "layer3", Interfaces: []model.InterfaceName{"tunnel.1"}}
	if diff := cmp.Diff(wantZone, plan.Zone); diff != "" {
		t.Errorf("zone mismatch (-want +got):\n%s", diff)
	}

	wantTunnel := model.IpsecTunnel{
		Name: "IPSEC-A", TunnelInterface: "tunnel.1", Type: "auto-key",
		IkeGateway: "GW-A", IpsecCryptoProfile: "default",
	}
	if diff := cmp.Diff([]model.IpsecTunnel{wantTunnel}, plan.IpsecTunnels); diff != "" {
		t.Errorf("ipsec tunnel mismatch (-want +got):\n%s", diff)
	}

	wantAddr := model.AddressObject{Name: "NET-A", Type: "ip-netmask", Value: "10.1.0.0/24", Description: "Site A LAN"}
	if diff := cmp.Diff([]model.AddressObject{wantAddr}, plan.Addresses); diff != "" {
		t.Errorf("address mismatch (-want +got):\n%s", diff)
	}

	wantRoute := model.StaticRoute{
		Name: "NET-A", VirtualRouter: "default", Destination: "NET-A",
		NexthopType: "ip-address", Nexthop: "169.254.1.2", Interface: "tunnel.1", Metric: 10,
	}
	if diff := cmp.Diff([]model.StaticRoute{wantRoute}, plan.StaticRoutes); diff != "" {
		t.Errorf("static route mismatch (-want +got):\n%s", diff)
	}

	r := s.SecurityRule
	wantRule := model.SecurityRule{
		Name: "ALLOW-A", FromZone: r.FromZone, ToZone: r.ToZone, Source: r.Source,
		SourceUser: r.SourceUser, HIPProfiles: r.HIPProfiles,
		Destination: []model.AddressName{"NET-A"},
		Application: r.Application, Service: r.Service, URLCategory: r.Category,
		Action: "allow", LogSetting: "default", Virus: "default", Spyware: "strict",
		Vulnerability: "strict", WildfireAnalysis: "default",
	}
	if diff := cmp.Diff([]model.SecurityRule{wantRule}, plan.SecurityRules); diff != "" {
		t.Errorf("security rule mismatch (-want +got):\n%s", diff)
	}

	if plan.Router != "default" || plan.AddressGroup != "VPN-SITES" {
		t.Errorf("unexpected router/group %q %q", plan.Router, plan.AddressGroup)
	}
}

func TestBuildKeepsInputOrder(t *testing.T) {
	records := []model.EndpointRecord{site(3), site(1), site(2)}
	plan, err := Build(testSettings(), records)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, n := range []int{len(plan.Gateways), len(plan.TunnelInterfaces), len(plan.IpsecTunnels),
		len(plan.Addresses), len(plan.StaticRoutes), len(plan.SecurityRules), len(plan.Zone.Interfaces)} {
		if n != len(records) {
			t.Fatalf("expected one object per endpoint, got %d", n)
		}
	}
	want := []model.InterfaceName{"tunnel.3", "tunnel.1", "tunnel.2"}
	if diff := cmp.Diff(want, plan.Zone.Interfaces); diff != "" {
		t.Errorf("zone order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.AddressName{"NET-3", "NET-1", "NET-2"}, plan.AddressNames()); diff != "" {
		t.Errorf("address order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEmpty(t *testing.T) {
	plan, err := Build(testSettings(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !plan.Empty() || len(plan.Zone.Interfaces) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestBuildStaticPeerUsesHostname(t *testing.T) {
	s := testSettings()
	s.IkeGateway.PeerIPType = "fqdn"
	plan, err := Build(s, []model.EndpointRecord{siteA()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if plan.Gateways[0].PeerIPValue != "site-a" {
		t.Errorf("expected peer address site-a, got %q", plan.Gateways[0].PeerIPValue)
	}
}

func TestBuildIPPeerRequiresAddress(t *testing.T) {
	s := testSettings()
	s.IkeGateway.PeerIPType = "ip"
	if _, err := Build(s, []model.EndpointRecord{siteA()}); err == nil || !strings.Contains(err.Error(), "hostname") {
		t.Fatalf("expected hostname error, got %v", err)
	}

	rec := siteA()
	rec.Hostname = "203.0.113.7"
	plan, err := Build(s, []model.EndpointRecord{rec})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if plan.Gateways[0].PeerIPValue != "203.0.113.7" {
		t.Errorf("expected peer address 203.0.113.7, got %q", plan.Gateways[0].PeerIPValue)
	}
}

func TestBuildRulesDoNotShareLists(t *testing.T) {
	s := testSettings()
	plan, err := Build(s, []model.EndpointRecord{site(1), site(2)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	plan.SecurityRules[0].FromZone[0] = "untrust"
	plan.SecurityRules[0].URLCategory[0] = "news"
	if plan.SecurityRules[1].FromZone[0] != "trust" || plan.SecurityRules[1].URLCategory[0] != "any" {
		t.Errorf("second rule changed with the first: %+v", plan.SecurityRules[1])
	}
	if s.SecurityRule.FromZone[0] != "trust" || s.SecurityRule.Category[0] != "any" {
		t.Errorf("settings changed with the rule: %+v", s.SecurityRule)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		records func() []model.EndpointRecord
		want    string
	}{
		{
			name: "bad pan_tunnel",
			records: func() []model.EndpointRecord {
				r := siteA()
				r.PanTunnel = "not-an-ip"
				return []model.EndpointRecord{r}
			},
			want: "pan_tunnel",
		},
		{
			name: "bad local_tunnel",
			records: func() []model.EndpointRecord {
				r := siteA()
				r.LocalTunnel = "169.254.1.2/30"
				return []model.EndpointRecord{r}
			},
			want: "local_tunnel",
		},
		{
			name: "bad subnet",
			records: func() []model.EndpointRecord {
				r := siteA()
				r.Subnet = "10.1.0.0/40"
				return []model.EndpointRecord{r}
			},
			want: "subnet",
		},
		{
			name: "duplicate tunnel",
			records: func() []model.EndpointRecord {
				b := site(2)
				b.TunnelName = "tunnel.1"
				return []model.EndpointRecord{siteA(), b}
			},
			want: "duplicate tunnel_interface",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(testSettings(), tt.records())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}
