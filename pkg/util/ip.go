package util

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net"
	"strconv"
	"strings"
)

// ParseIPWithMask parses an IP address with CIDR notation
// Returns the IP, mask length, and any error
func ParseIPWithMask(cidr string) (net.IP, int, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid CIDR notation: %s", cidr)
	}
	if ip.To4() == nil {
		return nil, 0, fmt.Errorf("not an IPv4 prefix: %s", cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return ip.To4(), ones, nil
}

// IsValidIPv4 checks if a string is a valid dotted-quad IPv4 address
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil && strings.Count(ipStr, ".") == 3
}

// ParseMask accepts either a dotted netmask ("255.255.255.0") or a prefix
// length ("24") and returns the prefix length. Non-contiguous masks are rejected.
func ParseMask(s string) (int, error) {
	if !strings.Contains(s, ".") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 32 {
			return 0, fmt.Errorf("invalid mask length %q", s)
		}
		return n, nil
	}
	if !IsValidIPv4(s) {
		return 0, fmt.Errorf("invalid netmask %q", s)
	}
	m := IPToUint32(s)
	ones := bits.OnesCount32(m)
	if ones < 32 && m<<ones != 0 {
		return 0, fmt.Errorf("non-contiguous netmask %q", s)
	}
	return ones, nil
}

// MaskString renders a prefix length as a dotted netmask: 24 -> "255.255.255.0"
func MaskString(maskLen int) string {
	if maskLen < 0 {
		maskLen = 0
	}
	if maskLen > 32 {
		maskLen = 32
	}
	return net.IP(net.CIDRMask(maskLen, 32)).String()
}

// WildcardToMaskLen converts an inverse mask ("0.0.0.255") to a prefix length.
func WildcardToMaskLen(wildcard string) (int, error) {
	if !IsValidIPv4(wildcard) {
		return 0, fmt.Errorf("invalid wildcard %q", wildcard)
	}
	return ParseMask(Uint32ToIP(^IPToUint32(wildcard)))
}

// IPToUint32 converts a dotted IPv4 string to its integer form. Invalid input yields 0.
func IPToUint32(ipStr string) uint32 {
	ip := net.ParseIP(ipStr).To4()
	if ip == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}

// Uint32ToIP converts an integer address back to dotted form.
func Uint32ToIP(v uint32) string {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, v)
	return b.String()
}

// ComputeNetworkAddr returns the network address for a given IP and mask
func ComputeNetworkAddr(ipStr string, maskLen int) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	ip = ip.To4()
	if ip == nil {
		return ""
	}

	mask := net.CIDRMask(maskLen, 32)
	return ip.Mask(mask).String()
}

// ComputeBroadcastAddr returns the broadcast address for a given IP and mask
func ComputeBroadcastAddr(ipStr string, maskLen int) string {
	network := ComputeNetworkAddr(ipStr, maskLen)
	if network == "" {
		return ""
	}
	hostBits := uint32(0)
	if maskLen < 32 {
		hostBits = (uint32(1) << (32 - maskLen)) - 1
	}
	return Uint32ToIP(IPToUint32(network) | hostBits)
}

// NetworkPrefix returns the canonical "network/len" form, or "" for invalid input.
// NetworkPrefix("10.1.1.7", 24) -> "10.1.1.0/24"
func NetworkPrefix(ipStr string, maskLen int) string {
	if maskLen < 0 || maskLen > 32 {
		return ""
	}
	network := ComputeNetworkAddr(ipStr, maskLen)
	if network == "" {
		return ""
	}
	return fmt.Sprintf("%s/%d", network, maskLen)
}

// SameSubnet reports whether a and b fall in the same network of the given length.
func SameSubnet(a, b string, maskLen int) bool {
	na := ComputeNetworkAddr(a, maskLen)
	return na != "" && na == ComputeNetworkAddr(b, maskLen)
}

// PrefixContains reports whether prefix ("10.0.0.0/8") contains ip.
func PrefixContains(prefix, ipStr string) bool {
	_, ipNet, err := net.ParseCIDR(prefix)
	if err != nil {
		return false
	}
	ip := net.ParseIP(ipStr)
	return ip != nil && ipNet.Contains(ip)
}

// PrefixLen returns the mask length of a "network/len" prefix, or -1.
func PrefixLen(prefix string) int {
	_, n := SplitIPMask(prefix)
	if !strings.Contains(prefix, "/") {
		return -1
	}
	return n
}

// SplitIPMask splits a CIDR notation into IP and mask length
// Returns the IP (without mask) and mask length
func SplitIPMask(cidr string) (string, int) {
	parts := strings.Split(cidr, "/")
	if len(parts) != 2 {
		return cidr, 0
	}
	maskLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return parts[0], 0
	}
	return parts[0], maskLen
}

const maxASN = 4294967295 // 4-byte ASN range

// ValidateASN checks if an AS number is valid (1 to 4294967295).
func ValidateASN(asn int64) error {
	if asn < 1 || asn > maxASN {
		return fmt.Errorf("AS number must be between 1 and %d, got %d", maxASN, asn)
	}
	return nil
}
