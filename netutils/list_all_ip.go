package netutils

import (
	"net"
)

// ListAllIPs maps every up interface to its IPv4 addresses, loopback
// excluded. The interactive web shows it so users can tell which
// address renderers reach the bridge on.
func ListAllIPs() map[string][]string {
	result := make(map[string][]string)

	ifaces, err := net.Interfaces()
	if err != nil {
		result["error"] = []string{err.Error()}
		return result
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		var ips []string
		for _, addr := range addrs {
			ip := ipOf(addr)
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			ips = append(ips, ip.String())
		}
		if len(ips) > 0 {
			result[iface.Name] = ips
		}
	}

	return result
}

func ipOf(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
