package netutils

import (
	"net"
)

// GuessLocalIP returns the IPv4 address the host would use to reach the
// outside world. No packet is actually sent.
func GuessLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1", nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
