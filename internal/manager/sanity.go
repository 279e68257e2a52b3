package manager

import (
	"os"
	"os/exec"
	"strings"
)

// SanityReport describes runtime checks for the managed backend command.
type SanityReport struct {
	Managed      bool   `json:"managed"`
	CommandFound bool   `json:"command_found"`
	CommandPath  string `json:"command_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SanityCheck validates that the configured backend command resolves to an
// executable. An empty command means the backend is externally supervised
// and there is nothing to check. It does not mutate state and is safe to
// call at any time.
func SanityCheck(command string) SanityReport {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return SanityReport{Managed: false}
	}
	r := SanityReport{Managed: true}

	bin := fields[0]
	if strings.ContainsRune(bin, os.PathSeparator) {
		fi, err := os.Stat(bin)
		switch {
		case err != nil:
			r.Error = err.Error()
		case fi.IsDir():
			r.CommandPath = bin
			r.Error = "backend command is a directory"
		default:
			r.CommandFound = true
			r.CommandPath = bin
		}
		return r
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.CommandFound = true
	r.CommandPath = path
	return r
}
