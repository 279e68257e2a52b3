package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gatewayd/internal/common/fsutil"
	"gatewayd/pkg/types"
)

// ownerLabel tags listing entries as served through this gateway.
const ownerLabel = "gatewayd"

// Static builds the single-entry model listing advertised when no model
// directory is configured: the backend serves exactly one model and the
// gateway echoes its configured identity.
func Static(modelID string) []types.Model {
	return []types.Model{{ID: modelID, Object: "model", OwnedBy: ownerLabel}}
}

// LoadDir scans a directory for *.gguf files and builds a model listing from
// the filenames, extension stripped. Deployments that mount the backend's
// model directory into the gateway can advertise everything the backend
// could serve instead of one configured id.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read model dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		id := name[:len(name)-len(".gguf")]
		models = append(models, types.Model{ID: id, Object: "model", OwnedBy: ownerLabel})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Discover resolves the advertised listing: a configured model directory
// wins when it yields at least one model, otherwise the single configured
// id is served. The error reports a configured but unusable directory; the
// static fallback is still returned alongside it.
func Discover(modelDir, modelID string) ([]types.Model, error) {
	if modelDir == "" {
		return Static(modelID), nil
	}
	models, err := LoadDir(modelDir)
	if err != nil {
		return Static(modelID), err
	}
	if len(models) == 0 {
		return Static(modelID), nil
	}
	return models, nil
}
