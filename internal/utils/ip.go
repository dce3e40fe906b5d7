package utils

import (
	"fmt"
	"net"
	"strings"
)

// TunnelPrefix is the prefix length assigned to tunnel interface addresses.
const TunnelPrefix = 30

// TunnelAddress returns ip with the tunnel prefix appended, e.g.
// "169.254.1.1" -> "169.254.1.1/30". The host bits are kept.
func TunnelAddress(ip string) (string, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 tunnel address %q", ip)
	}
	return fmt.Sprintf("%s/%d", parsed.String(), TunnelPrefix), nil
}

// SameTunnelNetwork reports whether a and b fall in the same tunnel subnet.
func SameTunnelNetwork(a, b string) bool {
	ipA, ipB := net.ParseIP(a), net.ParseIP(b)
	if ipA == nil || ipB == nil {
		return false
	}
	mask := net.CIDRMask(TunnelPrefix, 32)
	return ipA.Mask(mask).Equal(ipB.Mask(mask))
}

// ValidateIP returns an error unless s is an IPv4 or IPv6 address.
func ValidateIP(s string) error {
	if net.ParseIP(s) == nil {
		return fmt.Errorf("invalid IP address %q", s)
	}
	return nil
}

// ValidateCIDR returns an error unless s is an address with a prefix
// length. A bare address is accepted as a host route.
func ValidateCIDR(s string) error {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return nil
	}
	if net.ParseIP(s) != nil {
		return nil
	}
	return fmt.Errorf("invalid network %q", s)
}
