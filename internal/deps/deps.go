// Package deps probes for the external binaries Baler shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external tool and the command used to invoke it.
// Optional requirements degrade features instead of blocking runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the probe result for one Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries probes each requirement against PATH and reports the
// outcomes in input order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, probe(req))
	}
	return results
}

func probe(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}

// MissingRequired returns the subset of statuses that are required and
// unavailable. An empty result means every hard dependency resolved.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}

// Resolve returns the absolute path for command when it can be found on
// PATH, otherwise the trimmed command unchanged. Status displays use this
// so operators see which binary a run would actually execute.
func Resolve(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return command
	}
	if resolved, err := exec.LookPath(command); err == nil {
		return resolved
	}
	return command
}
