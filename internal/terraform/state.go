package terraform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// ShowTimeout bounds a `terraform show -json` invocation.
const ShowTimeout = 30 * time.Second

// State is the document produced by `terraform show -json`.
type State struct {
	FormatVersion    string       `json:"format_version"`
	TerraformVersion string       `json:"terraform_version"`
	Values           *StateValues `json:"values"`
}

// StateValues holds the root module of the state.
type StateValues struct {
	RootModule *StateModule `json:"root_module"`
}

// StateModule is a module within the state tree.
type StateModule struct {
	Address      string          `json:"address,omitempty"`
	Resources    []StateResource `json:"resources"`
	ChildModules []StateModule   `json:"child_modules"`
}

// StateResource is a single resource instance in the state.
type StateResource struct {
	Address string                 `json:"address"`
	Type    string                 `json:"type"`
	Name    string                 `json:"name"`
	Values  map[string]interface{} `json:"values"`
}

// ParseState decodes a `terraform show -json` document.
func ParseState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("terraform: parse state JSON: %w", err)
	}
	return &state, nil
}

// ShowState runs `terraform show -json` in dir with ShowTimeout. Non-zero
// exit, a missing binary or unparseable output all surface as errors so the
// caller can fall back to static inspection.
func ShowState(ctx context.Context, dir string, logger *zap.Logger) (*State, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, ShowTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "terraform", "show", "-json")
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Warn("terraform show failed",
			zap.String("dir", dir),
			zap.String("stderr", stderr.String()),
			zap.Error(err))
		return nil, fmt.Errorf("terraform: show -json in %s: %w", dir, err)
	}

	state, err := ParseState(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ResourcesOfType walks the full module tree and returns every resource of
// the given type.
func (s *State) ResourcesOfType(resourceType string) []StateResource {
	if s.Values == nil || s.Values.RootModule == nil {
		return nil
	}

	var out []StateResource
	var walk func(m *StateModule)
	walk = func(m *StateModule) {
		for _, r := range m.Resources {
			if r.Type == resourceType {
				out = append(out, r)
			}
		}
		for i := range m.ChildModules {
			walk(&m.ChildModules[i])
		}
	}
	walk(s.Values.RootModule)
	return out
}

// VPCCIDRs returns the cidr_block of every aws_vpc in the state.
func (s *State) VPCCIDRs() []string {
	var cidrs []string
	for _, r := range s.ResourcesOfType("aws_vpc") {
		if cidr, ok := r.Values["cidr_block"].(string); ok {
			cidrs = append(cidrs, cidr)
		}
	}
	return cidrs
}
