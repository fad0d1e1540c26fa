package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateExperimentID generates an experiment ID with a timestamp prefix
func GenerateExperimentID() string {
	timestamp := time.Now().Format("20060102-150405")
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return "exp-" + timestamp + "-" + short
}

// GenerateWorkloadID generates a workload entry ID
func GenerateWorkloadID() string {
	return uuid.NewString()
}
