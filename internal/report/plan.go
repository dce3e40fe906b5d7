package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"vpn-provisioner/internal/model"
)

// WritePlan renders the objects of p as tables, one row per endpoint,
// followed by the shared zone, router and address group changes.
func WritePlan(w io.Writer, p *model.Plan) {
	if p.Empty() {
		fmt.Fprintln(w, "No endpoints to provision.")
		return
	}

	table := newTable(w)
	table.SetHeader([]string{"#", "IKE Gateway", "Peer ID", "Tunnel", "Tunnel IP", "IPsec Tunnel", "Address", "Subnet", "Next Hop", "Rule"})
	for i := range p.Gateways {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			string(p.Gateways[i].Name),
			p.Gateways[i].PeerIDValue,
			string(p.TunnelInterfaces[i].Name),
			p.TunnelInterfaces[i].IP,
			string(p.IpsecTunnels[i].Name),
			string(p.Addresses[i].Name),
			p.Addresses[i].Value,
			p.StaticRoutes[i].Nexthop,
			string(p.SecurityRules[i].Name),
		})
	}
	table.Render()

	shared := newTable(w)
	shared.SetHeader([]string{"Object", "Name", "Members Added"})
	shared.Append([]string{"zone", string(p.Zone.Name), joinNames(p.Zone.Interfaces)})
	shared.Append([]string{"virtual router", string(p.Router), joinNames(p.InterfaceNames())})
	shared.Append([]string{"address group", p.AddressGroup, joinNames(p.AddressNames())})
	shared.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
