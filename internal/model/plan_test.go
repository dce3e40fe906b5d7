package model

import (
	"errors"
	"testing"
)

func validPlan() *Plan {
	return &Plan{
		Router:           "default",
		AddressGroup:     "VPN-SITES",
		Gateways:         []IkeGateway{{Name: "gw-a"}},
		TunnelInterfaces: []TunnelInterface{{Name: "tunnel.1", IP: "169.254.1.1/30"}},
		Zone:             Zone{Name: "vpn", Mode: "layer3", Interfaces: []InterfaceName{"tunnel.1"}},
		IpsecTunnels:     []IpsecTunnel{{Name: "ipsec-a", TunnelInterface: "tunnel.1", IkeGateway: "gw-a"}},
		Addresses:        []AddressObject{{Name: "NET-A", Value: "10.1.0.0/24"}},
		StaticRoutes:     []StaticRoute{{Name: "NET-A", Destination: "NET-A", Interface: "tunnel.1"}},
		SecurityRules:    []SecurityRule{{Name: "allow-a", Destination: []AddressName{"NET-A"}}},
	}
}

func TestPlanValidateAcceptsResolvedReferences(t *testing.T) {
	if err := validPlan().Validate(); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}
}

func TestPlanValidateRejectsDanglingReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"zone interface", func(p *Plan) { p.Zone.Interfaces = []InterfaceName{"tunnel.9"} }},
		{"ipsec gateway", func(p *Plan) { p.IpsecTunnels[0].IkeGateway = "gw-x" }},
		{"ipsec interface", func(p *Plan) { p.IpsecTunnels[0].TunnelInterface = "tunnel.9" }},
		{"route destination", func(p *Plan) { p.StaticRoutes[0].Destination = "NET-X" }},
		{"route interface", func(p *Plan) { p.StaticRoutes[0].Interface = "tunnel.9" }},
		{"rule destination", func(p *Plan) { p.SecurityRules[0].Destination = []AddressName{"NET-X"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)
			err := p.Validate()
			if !errors.Is(err, ErrDanglingReference) {
				t.Fatalf("expected ErrDanglingReference, got %v", err)
			}
		})
	}
}

func TestPlanEmpty(t *testing.T) {
	if !(&Plan{}).Empty() {
		t.Error("expected zero plan to be empty")
	}
	if validPlan().Empty() {
		t.Error("expected populated plan to be non-empty")
	}
}

func TestApplyOrderRanks(t *testing.T) {
	if CategoryIkeGateway.Rank() >= CategoryIpsecTunnel.Rank() {
		t.Error("ike gateways must be applied before ipsec tunnels")
	}
	if CategoryTunnelInterface.Rank() >= CategoryZone.Rank() {
		t.Error("tunnel interfaces must be applied before the zone")
	}
	if CategoryAddressObject.Rank() >= CategoryStaticRoute.Rank() {
		t.Error("address objects must be applied before static routes")
	}
	if Category("bogus").Rank() != -1 {
		t.Error("expected -1 for unknown category")
	}
	if _, err := ParseCategory("static_route"); err != nil {
		t.Errorf("expected static_route to parse, got %v", err)
	}
	if _, err := ParseCategory("nat_rule"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestHAState(t *testing.T) {
	if !(HAState{Enabled: false}).Synced() {
		t.Error("standalone device should count as synced")
	}
	s := HAState{Enabled: true, LocalState: "passive", RunningSync: "synchronization in progress"}
	if s.Active() || s.Synced() {
		t.Errorf("unexpected state %+v", s)
	}
	s = HAState{Enabled: true, LocalState: "active", RunningSync: "synchronized"}
	if !s.Active() || !s.Synced() {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestObjectCategories(t *testing.T) {
	tests := []struct {
		obj  Object
		want Category
	}{
		{IkeGateway{Name: "GW-A"}, CategoryIkeGateway},
		{TunnelInterface{Name: "tunnel.1"}, CategoryTunnelInterface},
		{IpsecTunnel{Name: "IPSEC-A"}, CategoryIpsecTunnel},
		{AddressObject{Name: "NET-A"}, CategoryAddressObject},
		{StaticRoute{Name: "NET-A"}, CategoryStaticRoute},
		{SecurityRule{Name: "ALLOW-A", URLCategory: []string{"any"}}, CategorySecurityRule},
		{Zone{Name: "vpn"}, CategoryZone},
	}
	for _, tt := range tests {
		if got := tt.obj.Category(); got != tt.want {
			t.Errorf("%T: expected category %s, got %s", tt.obj, tt.want, got)
		}
		if tt.obj.EntryName() == "" {
			t.Errorf("%T: expected entry name", tt.obj)
		}
	}
}
