package model

import (
	"errors"
	"fmt"
)

// ErrDanglingReference is returned by Plan.Validate when an object names
// another object that the plan does not create.
var ErrDanglingReference = errors.New("dangling reference")

// Plan holds every object built from the endpoint list, one ordered
// collection per category. Collections are in endpoint input order.
type Plan struct {
	Router       RouterName
	AddressGroup string

	Gateways         []IkeGateway
	TunnelInterfaces []TunnelInterface
	Zone             Zone
	IpsecTunnels     []IpsecTunnel
	Addresses        []AddressObject
	StaticRoutes     []StaticRoute
	SecurityRules    []SecurityRule
}

// Empty reports whether no endpoint contributed to the plan.
func (p *Plan) Empty() bool {
	return len(p.Gateways) == 0 && len(p.TunnelInterfaces) == 0 &&
		len(p.IpsecTunnels) == 0 && len(p.Addresses) == 0 &&
		len(p.StaticRoutes) == 0 && len(p.SecurityRules) == 0
}

// AddressNames returns the names of the planned address objects in order.
func (p *Plan) AddressNames() []AddressName {
	names := make([]AddressName, 0, len(p.Addresses))
	for _, a := range p.Addresses {
		names = append(names, a.Name)
	}
	return names
}

// InterfaceNames returns the names of the planned tunnel interfaces in order.
func (p *Plan) InterfaceNames() []InterfaceName {
	names := make([]InterfaceName, 0, len(p.TunnelInterfaces))
	for _, t := range p.TunnelInterfaces {
		names = append(names, t.Name)
	}
	return names
}

// Validate checks that every name reference in the plan resolves to an
// object the plan creates in an earlier step of ApplyOrder.
//
// Resolution order:
//
//	zone, router interface -> tunnel interface
//	ipsec tunnel           -> ike gateway, tunnel interface
//	address group          -> address object
//	static route           -> address object, tunnel interface
//	security rule          -> address object
func (p *Plan) Validate() error {
	gateways := make(map[GatewayName]bool, len(p.Gateways))
	for _, g := range p.Gateways {
		gateways[g.Name] = true
	}
	ifaces := make(map[InterfaceName]bool, len(p.TunnelInterfaces))
	for _, t := range p.TunnelInterfaces {
		ifaces[t.Name] = true
	}
	addrs := make(map[AddressName]bool, len(p.Addresses))
	for _, a := range p.Addresses {
		addrs[a.Name] = true
	}

	for _, name := range p.Zone.Interfaces {
		if !ifaces[name] {
			return fmt.Errorf("zone %s: interface %s: %w", p.Zone.Name, name, ErrDanglingReference)
		}
	}
	for _, t := range p.IpsecTunnels {
		if !gateways[t.IkeGateway] {
			return fmt.Errorf("ipsec tunnel %s: ike gateway %s: %w", t.Name, t.IkeGateway, ErrDanglingReference)
		}
		if !ifaces[t.TunnelInterface] {
			return fmt.Errorf("ipsec tunnel %s: interface %s: %w", t.Name, t.TunnelInterface, ErrDanglingReference)
		}
	}
	for _, r := range p.StaticRoutes {
		if !addrs[r.Destination] {
			return fmt.Errorf("static route %s: destination %s: %w", r.Name, r.Destination, ErrDanglingReference)
		}
		if !ifaces[r.Interface] {
			return fmt.Errorf("static route %s: interface %s: %w", r.Name, r.Interface, ErrDanglingReference)
		}
	}
	for _, r := range p.SecurityRules {
		for _, d := range r.Destination {
			if !addrs[d] {
				return fmt.Errorf("security rule %s: destination %s: %w", r.Name, d, ErrDanglingReference)
			}
		}
	}
	return nil
}
