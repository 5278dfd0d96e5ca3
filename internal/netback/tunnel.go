package netback

import (
	"fmt"
	"strings"
)

// optimalMTUs maps a tunnel type to its recommended interface MTU, already
// accounting for that encapsulation's typical overhead on a 1500-byte path.
var optimalMTUs = map[string]int{
	"gre":       1396,
	"gre6":      1356,
	"wireguard": 1420,
	"l2tp":      1460,
	"pptp":      1500,
	"ipsec":     1436,
}

// minMTU is the IPv6 minimum link MTU; recommendations never go below it.
const minMTU = 1280

// mssHeadroom is the TCP/IP header overhead subtracted from the MTU to
// derive the MSS clamp value.
const mssHeadroom = 40

// TunnelTypes returns the known tunnel types in a stable order.
func TunnelTypes() []string {
	return []string{"gre", "gre6", "ipsec", "l2tp", "pptp", "wireguard"}
}

// OptimalMTU returns the recommended MTU for a tunnel type, reduced by any
// extra per-packet overhead (nested encapsulation, for example) and floored
// at the IPv6 minimum. Unknown tunnel types get the standard Ethernet 1500.
func OptimalMTU(tunnelType string, overhead int) int {
	base, ok := optimalMTUs[strings.ToLower(tunnelType)]
	if !ok {
		base = 1500
	}
	mtu := base - overhead
	if mtu < minMTU {
		mtu = minMTU
	}
	return mtu
}

// MSSClamp returns the TCP MSS clamp value for a given MTU.
func MSSClamp(mtu int) int {
	return mtu - mssHeadroom
}

// TunnelAdvice is an MTU recommendation plus a ready-to-paste remediation
// script for one tunnel interface.
type TunnelAdvice struct {
	Interface  string
	TunnelType string
	OptimalMTU int
	MSSClamp   int
	Script     string
}

// AdviseTunnel computes the MTU recommendation and remediation script for a
// tunnel interface. The script sets the interface MTU and adds a forward
// chain mangle rule clamping TCP MSS on SYN packets.
func AdviseTunnel(iface, tunnelType string) TunnelAdvice {
	mtu := OptimalMTU(tunnelType, 0)
	mss := MSSClamp(mtu)
	script := fmt.Sprintf(`
# MTU/MSS optimization for %s (%s)
/interface set %s mtu=%d
/ip firewall mangle add chain=forward protocol=tcp tcp-flags=syn tcp-mss=!0-%d action=change-mss new-mss=%d comment="MSS clamp for %s"
`, iface, tunnelType, iface, mtu, mss, mss, iface)

	return TunnelAdvice{
		Interface:  iface,
		TunnelType: tunnelType,
		OptimalMTU: mtu,
		MSSClamp:   mss,
		Script:     script,
	}
}
