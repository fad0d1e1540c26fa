package workload

import (
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/loadcurve/pkg/utils"
)

// Free-text numeric inputs are parsed permissively: an unset, unparsable or
// negative value becomes 0 so a draft stays usable while being edited.

// ParseClientsPerHost parses the clients-per-host field
func ParseClientsPerHost(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseMaxRate parses the max requests/second field; 0 disables the ceiling
func ParseMaxRate(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !utils.IsFinite(v) || v < 0 {
		return 0
	}
	return v
}
