// Package deps reports whether the external tools processors invoke are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediaproc/internal/config"
)

// Requirement is one external binary and the variants that need it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Variants lists the processor variants that invoke the tool.
	Variants []string
	Optional bool
}

// Status reports the availability of a dependency.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// Requirements lists every tool named in the configuration.
func Requirements(cfg *config.Config) []Requirement {
	tools := cfg.Tools
	return []Requirement{
		{Name: "ffmpeg", Command: tools.FFmpeg, Description: "Transcodes video and audio, dumps attachments", Variants: []string{"video", "audio"}},
		{Name: "ffprobe", Command: tools.FFprobe, Description: "Inspects streams before dispatch", Variants: []string{"video", "audio"}},
		{Name: "cp", Command: tools.Copy, Description: "Copies the original next to its derivatives", Variants: []string{"video", "audio", "image", "png", "svg", "xcf"}},
		{Name: "convert", Command: tools.Convert, Description: "Rasterizes generic images to PNG", Variants: []string{"image"}},
		{Name: "optipng", Command: tools.OptiPNG, Description: "Losslessly recompresses PNG output", Variants: []string{"image", "png", "xcf"}},
		{Name: "jpegtran", Command: tools.JPEGTran, Description: "Optimizes JPEG uploads", Variants: []string{"jpeg"}},
		{Name: "tidy", Command: tools.Tidy, Description: "Normalizes SVG markup", Variants: []string{"svg"}},
		{Name: "xcf2png", Command: tools.XCF2PNG, Description: "Flattens GIMP XCF images", Variants: []string{"xcf"}},
		{Name: "otfinfo", Command: tools.OTFInfo, Description: "Reads font names for subtitle stylesheets", Variants: []string{"video"}, Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Missing filters statuses down to unavailable required tools.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
