// Package deps checks that the external optimizer binaries assetcdn invokes
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"assetcdn/internal/config"
)

// Requirement defines an external binary assetcdn relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// OptimizerRequirements lists the image optimizers named in cfg. They are
// optional because a failed optimization can fall back to the original bytes.
func OptimizerRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "optipng",
			Command:     cfg.Optimizers.OptiPNG,
			Description: "Lossless PNG optimization",
			Optional:    cfg.Publish.ContinueOnFailure,
		},
		{
			Name:        "jpegtran",
			Command:     cfg.Optimizers.Jpegtran,
			Description: "Lossless JPEG optimization",
			Optional:    cfg.Publish.ContinueOnFailure,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the unavailable entries of statuses.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available {
			out = append(out, s)
		}
	}
	return out
}
