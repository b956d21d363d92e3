package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the machine-derived ID so it can't be correlated with other
// applications on the same machine.
const AppID = "tmc.go"

// MachineID retrieves the unique ID identifying the machine, falling back
// to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
