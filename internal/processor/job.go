package processor

import (
	"path/filepath"
	"strings"

	"mediaproc/internal/invocation"
	"mediaproc/internal/probe"
	"mediaproc/internal/services"
)

// Job is the input a processor is bound to.
type Job struct {
	// Hash namespaces every derived file.
	Hash string
	// Source is the input file path substituted for {input}.
	Source string
	// Extension is the input's extension without the leading dot.
	Extension  string
	StorageDir string
	Metadata   probe.Metadata
}

// Stem is the output basename every artifact extends.
func (j Job) Stem() string {
	return filepath.Join(j.StorageDir, j.Hash)
}

// Ext returns Extension without a leading dot.
func (j Job) Ext() string {
	return strings.TrimPrefix(strings.TrimSpace(j.Extension), ".")
}

// Path returns the artifact path for a format tag.
func (j Job) Path(tag string) string {
	return j.Stem() + "." + tag
}

// Validate checks the fields every variant relies on.
func (j Job) Validate() error {
	switch {
	case strings.TrimSpace(j.Hash) == "":
		return services.Wrap(services.ErrValidation, "processor", "job", "hash is required", nil)
	case strings.ContainsAny(j.Hash, `/\`) || j.Hash == "." || j.Hash == "..":
		return services.Wrap(services.ErrValidation, "processor", "job", "hash must be a single path element", nil)
	case strings.TrimSpace(j.Source) == "":
		return services.Wrap(services.ErrValidation, "processor", "job", "source path is required", nil)
	case strings.TrimSpace(j.StorageDir) == "":
		return services.Wrap(services.ErrValidation, "processor", "job", "storage directory is required", nil)
	}
	return nil
}

func (j Job) params() invocation.Params {
	return invocation.Params{Input: j.Source, Stem: j.Stem(), Ext: j.Ext()}
}
