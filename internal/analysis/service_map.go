package analysis

import (
	"strconv"

	"wolrelay/internal/wol"
)

var wolPorts = map[int]string{
	0:               "any",
	wol.EchoPort:    "echo",
	wol.DefaultPort: "discard",
}

// GetServiceName returns the conventional name for a WoL listen port, or the
// port number as a string.
func GetServiceName(port int) string {
	if name, ok := wolPorts[port]; ok {
		return name
	}
	return strconv.Itoa(port)
}
