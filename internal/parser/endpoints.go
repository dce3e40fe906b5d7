package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"vpn-provisioner/internal/model"
)

// Endpoint file columns, in the order they usually appear.
var endpointColumns = []string{
	"hostname",
	"ike_gateway_name",
	"tunnel_name",
	"pan_tunnel",
	"ipsec_tunnel_name",
	"object_name",
	"subnet",
	"object_description",
	"local_tunnel",
	"firewall_rule_name",
}

// optionalValues may be left blank in a data row.
var optionalValues = map[string]bool{
	"object_description": true,
}

// ParseEndpoints reads the endpoint CSV. The header row is required and
// must name every endpoint column; column order is free.
func ParseEndpoints(r io.Reader) ([]model.EndpointRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	colMap := make(map[string]int)
	for i, colName := range header {
		colMap[strings.ToLower(strings.TrimSpace(colName))] = i
	}
	for _, col := range endpointColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("could not find '%s' column in endpoint file", col)
		}
	}

	var records []model.EndpointRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		values := make(map[string]string, len(endpointColumns))
		for _, col := range endpointColumns {
			v := strings.TrimSpace(row[colMap[col]])
			if v == "" && !optionalValues[col] {
				return nil, fmt.Errorf("line %d: empty value in column '%s'", line, col)
			}
			values[col] = v
		}
		records = append(records, recordFromValues(values))
	}
	return records, nil
}

func recordFromValues(v map[string]string) model.EndpointRecord {
	return model.EndpointRecord{
		Hostname:          v["hostname"],
		IkeGatewayName:    v["ike_gateway_name"],
		TunnelName:        v["tunnel_name"],
		PanTunnel:         v["pan_tunnel"],
		IpsecTunnelName:   v["ipsec_tunnel_name"],
		ObjectName:        v["object_name"],
		Subnet:            v["subnet"],
		ObjectDescription: v["object_description"],
		LocalTunnel:       v["local_tunnel"],
		FirewallRuleName:  v["firewall_rule_name"],
	}
}
