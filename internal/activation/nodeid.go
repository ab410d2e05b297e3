// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package activation

import (
	"crypto/rand"
	"encoding/hex"
	"net"
)

// interfacePriority orders candidate network interfaces by preference
// when deriving a node ID from a MAC address.
var interfacePriority = []string{"eth0", "en0", "eth1", "en1", "wlan0", "wlan1"}

// GenerateNodeID derives a stable node identifier from the host's
// primary network interface MAC address, preferring the interfaces
// named in interfacePriority and otherwise taking the first non-zero
// MAC address found. If no interface has a usable hardware address, it
// falls back to an "ff"-prefixed random identifier.
func GenerateNodeID() string {
	if mac := primaryMAC(); mac != "" {
		return mac
	}

	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "ff0000000000"
	}
	return "ff" + hex.EncodeToString(buf)
}

func primaryMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	bestPrio := len(interfacePriority)
	var best string
	for _, iface := range ifaces {
		mac := iface.HardwareAddr
		if len(mac) == 0 || isZeroMAC(mac) {
			continue
		}
		if best == "" {
			best = hex.EncodeToString(mac)
		}
		for prio, name := range interfacePriority {
			if iface.Name == name && prio < bestPrio {
				best = hex.EncodeToString(mac)
				bestPrio = prio
			}
		}
	}
	return best
}

func isZeroMAC(mac net.HardwareAddr) bool {
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}
