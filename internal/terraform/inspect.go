package terraform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Inspector parses the .tf files in a directory and answers structural
// questions about the declared configuration. The raw file bytes are kept
// so that textual probes (CIDR literals, policy names) still work when a
// value is built from expressions HCL cannot statically evaluate.
type Inspector struct {
	dir     string
	sources map[string][]byte
	bodies  map[string]*hclsyntax.Body
}

// NewInspector parses every .tf file in dir. Files that fail to parse are
// kept for textual inspection; a parse failure alone is not fatal since the
// original artifacts may use constructs the parser rejects.
func NewInspector(dir string) (*Inspector, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tf"))
	if err != nil {
		return nil, fmt.Errorf("terraform: glob %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("terraform: no .tf files in %s", dir)
	}
	sort.Strings(matches)

	ins := &Inspector{
		dir:     dir,
		sources: make(map[string][]byte, len(matches)),
		bodies:  make(map[string]*hclsyntax.Body, len(matches)),
	}

	parser := hclparse.NewParser()
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("terraform: read %s: %w", path, err)
		}
		name := filepath.Base(path)
		ins.sources[name] = data

		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() || file == nil {
			continue
		}
		if body, ok := file.Body.(*hclsyntax.Body); ok {
			ins.bodies[name] = body
		}
	}

	return ins, nil
}

// Dir returns the inspected directory.
func (ins *Inspector) Dir() string {
	return ins.dir
}

// Source returns the raw bytes of a parsed file, if present.
func (ins *Inspector) Source(name string) ([]byte, bool) {
	data, ok := ins.sources[name]
	return data, ok
}

// ResourceTypes returns the distinct resource types declared across all files.
func (ins *Inspector) ResourceTypes() []string {
	seen := make(map[string]struct{})
	for _, body := range ins.bodies {
		for _, block := range body.Blocks {
			if block.Type == "resource" && len(block.Labels) > 0 {
				seen[block.Labels[0]] = struct{}{}
			}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HasResourceTypePrefix reports whether any declared resource type starts
// with the given prefix. A prefix like "aws_rds" matches both
// aws_rds_cluster and aws_rds_global_cluster.
func (ins *Inspector) HasResourceTypePrefix(prefix string) bool {
	for _, t := range ins.ResourceTypes() {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	// Fall back to text: modules or unparseable files may still declare it.
	return ins.Contains("", prefix)
}

// OutputNames returns the output names declared in outputs.tf (or any file).
func (ins *Inspector) OutputNames() []string {
	seen := make(map[string]struct{})
	for _, body := range ins.bodies {
		for _, block := range body.Blocks {
			if block.Type == "output" && len(block.Labels) > 0 {
				seen[block.Labels[0]] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasOutput reports whether an output with the given name is declared.
func (ins *Inspector) HasOutput(name string) bool {
	for _, n := range ins.OutputNames() {
		if n == name {
			return true
		}
	}
	return ins.Contains("outputs.tf", name)
}

// ProviderRegions returns the statically resolvable region arguments of all
// aws provider blocks.
func (ins *Inspector) ProviderRegions() []string {
	var regions []string
	for _, body := range ins.bodies {
		for _, block := range body.Blocks {
			if block.Type != "provider" || len(block.Labels) == 0 || block.Labels[0] != "aws" {
				continue
			}
			attr, ok := block.Body.Attributes["region"]
			if !ok {
				continue
			}
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() || val.Type() != cty.String {
				continue
			}
			regions = append(regions, val.AsString())
		}
	}
	sort.Strings(regions)
	return regions
}

// ProviderCount returns how many aws provider blocks are declared.
func (ins *Inspector) ProviderCount() int {
	count := 0
	for _, body := range ins.bodies {
		for _, block := range body.Blocks {
			if block.Type == "provider" && len(block.Labels) > 0 && block.Labels[0] == "aws" {
				count++
			}
		}
	}
	return count
}

// Contains reports whether the named file (or, with an empty name, any
// parsed file) contains the literal substring.
func (ins *Inspector) Contains(file, substr string) bool {
	needle := []byte(substr)
	if file != "" {
		data, ok := ins.sources[file]
		return ok && bytes.Contains(data, needle)
	}
	for _, data := range ins.sources {
		if bytes.Contains(data, needle) {
			return true
		}
	}
	return false
}

// ContainsFold is Contains with case-insensitive matching.
func (ins *Inspector) ContainsFold(file, substr string) bool {
	needle := strings.ToLower(substr)
	if file != "" {
		data, ok := ins.sources[file]
		return ok && strings.Contains(strings.ToLower(string(data)), needle)
	}
	for _, data := range ins.sources {
		if strings.Contains(strings.ToLower(string(data)), needle) {
			return true
		}
	}
	return false
}
