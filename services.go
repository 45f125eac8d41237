package ipwry

import (
	"encoding/binary"
	"net"
	"strings"

	"lukechampine.com/uint128"
)

var maxIPv6 = uint128.New(^uint64(0), ^uint64(0))

// parseIPv4 - dotted quad to net.IP of length 4; rejects anything else
func parseIPv4(s string) (net.IP, bool) {
	if strings.Contains(s, ":") {
		return nil, false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, false
	}
	ip = ip.To4()
	return ip, ip != nil
}

// parseIPv6 - textual IPv6 to net.IP of length 16
func parseIPv6(s string) (net.IP, bool) {
	if !strings.Contains(s, ":") {
		return nil, false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, false
	}
	return ip.To16(), true
}

// ipV4ToInt - ip v4 to int
func ipV4ToInt(ip net.IP) uint32 {
	if len(ip) == 16 {
		return binary.BigEndian.Uint32(ip[12:16])
	}
	return binary.BigEndian.Uint32(ip)
}

func intToIPv4(v uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}

// ipV6ToInt - ip v6 to int, split into the network-order 64-bit halves
func ipV6ToInt(ip net.IP) uint128.Uint128 {
	ip = ip.To16()
	return uint128.New(binary.BigEndian.Uint64(ip[8:16]), binary.BigEndian.Uint64(ip[0:8]))
}

func intToIPv6(v uint128.Uint128) net.IP {
	ip := make(net.IP, net.IPv6len)
	binary.BigEndian.PutUint64(ip[0:8], v.Hi)
	binary.BigEndian.PutUint64(ip[8:16], v.Lo)
	return ip
}
