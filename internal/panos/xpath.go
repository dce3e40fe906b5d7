package panos

import (
	"fmt"
	"strings"

	"vpn-provisioner/internal/model"
)

const deviceXPath = "/config/devices/entry[@name='localhost.localdomain']"

// entryXPath appends an entry selector for name to parent.
func entryXPath(parent, name string) string {
	return fmt.Sprintf("%s/entry[@name=%s]", parent, quoteXPath(name))
}

// quoteXPath quotes s as an XPath string literal.
func quoteXPath(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

type locations struct {
	vsys string
}

func (l locations) vsysXPath() string {
	return entryXPath(deviceXPath+"/vsys", l.vsys)
}

func (l locations) routerXPath(name model.RouterName) string {
	return entryXPath(deviceXPath+"/network/virtual-router", string(name))
}

func (l locations) interfaceImportXPath() string {
	return l.vsysXPath() + "/import/network/interface"
}

func (l locations) addressGroupsXPath() string {
	return l.vsysXPath() + "/address-group"
}

// parent returns the xpath under which entries of obj live.
func (l locations) parent(obj model.Object) (string, error) {
	switch o := obj.(type) {
	case model.IkeGateway:
		return deviceXPath + "/network/ike/gateway", nil
	case model.TunnelInterface:
		return deviceXPath + "/network/interface/tunnel/units", nil
	case model.IpsecTunnel:
		return deviceXPath + "/network/tunnel/ipsec", nil
	case model.Zone:
		return l.vsysXPath() + "/zone", nil
	case model.AddressObject:
		return l.vsysXPath() + "/address", nil
	case model.StaticRoute:
		if o.VirtualRouter == "" {
			return "", fmt.Errorf("static route %s has no virtual router", o.Name)
		}
		return l.routerXPath(o.VirtualRouter) + "/routing-table/ip/static-route", nil
	case model.SecurityRule:
		return l.vsysXPath() + "/rulebase/security/rules", nil
	default:
		return "", fmt.Errorf("unsupported object type %T", obj)
	}
}
