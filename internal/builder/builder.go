package builder

import (
	"fmt"
	"log/slog"
	"slices"

	"vpn-provisioner/internal/model"
	"vpn-provisioner/internal/utils"
)

// Build turns endpoint records into a plan. Per-endpoint fields come from
// the record, everything else from settings; the two never overlap.
// Collections keep the endpoint input order.
func Build(s *model.Settings, records []model.EndpointRecord) (*model.Plan, error) {
	plan := &model.Plan{
		Router:       s.RouterName.Name,
		AddressGroup: s.AddressGroup.Name,
		Zone: model.Zone{
			Name: s.Zone.Name,
			Mode: s.Zone.Mode,
		},
	}
	seen := newNameIndex()

	for i, rec := range records {
		if err := checkRecord(s, rec); err != nil {
			return nil, fmt.Errorf("endpoint %d (%s): %w", i+1, rec.Hostname, err)
		}
		if err := seen.add(rec); err != nil {
			return nil, fmt.Errorf("endpoint %d (%s): %w", i+1, rec.Hostname, err)
		}

		plan.Gateways = append(plan.Gateways, ikeGateway(s, rec))
		slog.Debug("Built ike gateway", "hostname", rec.Hostname, "name", rec.IkeGatewayName)

		tunnelIP, err := utils.TunnelAddress(rec.PanTunnel)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d (%s): pan_tunnel: %w", i+1, rec.Hostname, err)
		}
		plan.TunnelInterfaces = append(plan.TunnelInterfaces, model.TunnelInterface{
			Name:    model.InterfaceName(rec.TunnelName),
			IP:      tunnelIP,
			Comment: fmt.Sprintf("Tunnel to %s", rec.Hostname),
		})
		slog.Debug("Built tunnel interface", "hostname", rec.Hostname, "name", rec.TunnelName, "ip", tunnelIP)

		plan.Zone.Interfaces = append(plan.Zone.Interfaces, model.InterfaceName(rec.TunnelName))

		plan.IpsecTunnels = append(plan.IpsecTunnels, model.IpsecTunnel{
			Name:                model.TunnelName(rec.IpsecTunnelName),
			TunnelInterface:     model.InterfaceName(rec.TunnelName),
			Type:                s.IpsecTunnel.Type,
			IkeGateway:          model.GatewayName(rec.IkeGatewayName),
			IpsecCryptoProfile:  s.IpsecTunnel.IpsecCryptoProfile,
			EnableTunnelMonitor: s.IpsecTunnel.EnableTunnelMonitor,
		})

		plan.Addresses = append(plan.Addresses, model.AddressObject{
			Name:        model.AddressName(rec.ObjectName),
			Type:        s.AddressObject.Type,
			Value:       rec.Subnet,
			Description: rec.ObjectDescription,
		})

		plan.StaticRoutes = append(plan.StaticRoutes, model.StaticRoute{
			Name:          rec.ObjectName,
			VirtualRouter: s.RouterName.Name,
			Destination:   model.AddressName(rec.ObjectName),
			NexthopType:   s.StaticRoute.NexthopType,
			Nexthop:       rec.LocalTunnel,
			Interface:     model.InterfaceName(rec.TunnelName),
			Metric:        s.StaticRoute.Metric,
		})

		plan.SecurityRules = append(plan.SecurityRules, securityRule(s, rec))
		slog.Debug("Built endpoint objects", "hostname", rec.Hostname)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func ikeGateway(s *model.Settings, rec model.EndpointRecord) model.IkeGateway {
	g := s.IkeGateway
	gw := model.IkeGateway{
		Name:                    model.GatewayName(rec.IkeGatewayName),
		Version:                 g.Version,
		PeerIPType:              g.PeerIPType,
		Interface:               g.Interface,
		LocalIPAddressType:      g.LocalIPAddressType,
		LocalIPAddress:          g.LocalIPAddress,
		PreSharedKey:            g.PreSharedKey,
		PeerIDType:              g.PeerIDType,
		PeerIDValue:             rec.Hostname,
		EnablePassiveMode:       g.EnablePassiveMode,
		EnableNATTraversal:      g.EnableNATTraversal,
		EnableFragmentation:     g.EnableFragmentation,
		IKEv1ExchangeMode:       g.IKEv1ExchangeMode,
		IKEv1CryptoProfile:      g.IKEv1CryptoProfile,
		EnableDeadPeerDetection: g.EnableDeadPeerDetection,
		IKEv2CryptoProfile:      g.IKEv2CryptoProfile,
	}
	// A static peer is addressed by the endpoint hostname, which must be an
	// address when the peer type is ip.
	if g.PeerIPType != "dynamic" {
		gw.PeerIPValue = rec.Hostname
	}
	return gw
}

func securityRule(s *model.Settings, rec model.EndpointRecord) model.SecurityRule {
	r := s.SecurityRule
	return model.SecurityRule{
		Name:             model.RuleName(rec.FirewallRuleName),
		FromZone:         slices.Clone(r.FromZone),
		ToZone:           slices.Clone(r.ToZone),
		Source:           slices.Clone(r.Source),
		SourceUser:       slices.Clone(r.SourceUser),
		HIPProfiles:      slices.Clone(r.HIPProfiles),
		Destination:      []model.AddressName{model.AddressName(rec.ObjectName)},
		Application:      slices.Clone(r.Application),
		Service:          slices.Clone(r.Service),
		URLCategory:      slices.Clone(r.Category),
		Action:           r.Action,
		LogSetting:       r.LogSetting,
		Virus:            r.Virus,
		Spyware:          r.Spyware,
		Vulnerability:    r.Vulnerability,
		WildfireAnalysis: r.WildfireAnalysis,
	}
}

// checkRecord validates addressing fields the device would otherwise
// reject halfway through the run.
func checkRecord(s *model.Settings, rec model.EndpointRecord) error {
	if s.IkeGateway.PeerIPType == "ip" {
		if err := utils.ValidateIP(rec.Hostname); err != nil {
			return fmt.Errorf("hostname: peer_ip_type is ip: %w", err)
		}
	}
	if s.StaticRoute.NexthopType == "ip-address" {
		if err := utils.ValidateIP(rec.LocalTunnel); err != nil {
			return fmt.Errorf("local_tunnel: %w", err)
		}
		if !utils.SameTunnelNetwork(rec.PanTunnel, rec.LocalTunnel) {
			slog.Warn("Next hop is outside the tunnel interface network",
				"hostname", rec.Hostname, "pan_tunnel", rec.PanTunnel, "local_tunnel", rec.LocalTunnel)
		}
	}
	if s.AddressObject.Type == "ip-netmask" {
		if err := utils.ValidateCIDR(rec.Subnet); err != nil {
			return fmt.Errorf("subnet: %w", err)
		}
	}
	return nil
}

// nameIndex rejects endpoints that reuse a name already taken in the
// same category; the device would silently merge them.
type nameIndex map[model.Category]map[string]bool

func newNameIndex() nameIndex {
	return make(nameIndex)
}

func (n nameIndex) add(rec model.EndpointRecord) error {
	names := []struct {
		cat  model.Category
		name string
	}{
		{model.CategoryIkeGateway, rec.IkeGatewayName},
		{model.CategoryTunnelInterface, rec.TunnelName},
		{model.CategoryIpsecTunnel, rec.IpsecTunnelName},
		{model.CategoryAddressObject, rec.ObjectName},
		{model.CategorySecurityRule, rec.FirewallRuleName},
	}
	for _, e := range names {
		if n[e.cat] == nil {
			n[e.cat] = make(map[string]bool)
		}
		if n[e.cat][e.name] {
			return fmt.Errorf("duplicate %s name %q", e.cat, e.name)
		}
		n[e.cat][e.name] = true
	}
	return nil
}
