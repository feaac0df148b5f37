// Package catalog loads the capabilities users can request.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/security"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Section groups capabilities for display
type Section struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
}

type document struct {
	Sections     []Section         `yaml:"sections"`
	Capabilities []core.Capability `yaml:"capabilities"`
}

// Catalog is an immutable, validated set of capabilities
type Catalog struct {
	sections []Section
	caps     []core.Capability
	byID     map[string]int
	// Source is the override file path, or empty for the embedded catalog
	Source string
}

// Default parses the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads path from fsys when it exists, else falls back to the embedded catalog
func Load(fsys afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default()
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	c.Source = path
	return c, nil
}

// Parse decodes and validates a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		sections: doc.Sections,
		caps:     doc.Capabilities,
		byID:     make(map[string]int, len(doc.Capabilities)),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.caps) == 0 {
		return fmt.Errorf("catalog has no capabilities")
	}

	sections := make(map[string]bool, len(c.sections))
	for _, s := range c.sections {
		if s.ID == "" {
			return fmt.Errorf("section without id")
		}
		sections[s.ID] = true
	}

	for i, capability := range c.caps {
		if err := validateCapability(capability, sections); err != nil {
			return fmt.Errorf("capability %q: %w", capability.ID, err)
		}
		if _, dup := c.byID[capability.ID]; dup {
			return fmt.Errorf("duplicate capability id %q", capability.ID)
		}
		c.byID[capability.ID] = i
	}
	return nil
}

func validateCapability(c core.Capability, sections map[string]bool) error {
	if err := security.ValidateCapabilityID(c.ID); err != nil {
		return err
	}
	if c.Label == "" {
		return fmt.Errorf("missing label")
	}
	if !sections[c.Section] {
		return fmt.Errorf("unknown section %q", c.Section)
	}
	if len(c.Packages) == 0 && c.Flatpak == "" && c.Dynamic == "" {
		return fmt.Errorf("needs packages, a flatpak id or a dynamic package set")
	}
	if c.Dynamic != "" && c.Dynamic != core.DynamicNvidia {
		return fmt.Errorf("unknown dynamic package set %q", c.Dynamic)
	}
	if err := security.ValidatePackageNames(c.Packages); err != nil {
		return err
	}
	if err := security.ValidatePackageNames(c.AltPackages); err != nil {
		return err
	}
	if c.Exec != "" {
		if err := security.ValidateExecutable(c.Exec); err != nil {
			return err
		}
	}
	if c.Flatpak != "" {
		if err := security.ValidateFlatpakID(c.Flatpak); err != nil {
			return err
		}
	}
	switch c.RequiresGPU {
	case core.VendorUnknown, core.VendorIntel, core.VendorAMD, core.VendorNvidia:
	default:
		return fmt.Errorf("unknown gpu vendor %q", c.RequiresGPU)
	}
	if c.Extras != nil {
		if len(c.Extras.Packages) == 0 {
			return fmt.Errorf("extras without packages")
		}
		if err := security.ValidatePackageNames(c.Extras.Packages); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the capability with id. Unknown ids wrap core.ErrUnknownCapability.
func (c *Catalog) Get(id string) (core.Capability, error) {
	i, ok := c.byID[id]
	if !ok {
		return core.Capability{}, fmt.Errorf("%q: %w", id, core.ErrUnknownCapability)
	}
	return c.caps[i], nil
}

// All returns every capability in catalog order
func (c *Catalog) All() []core.Capability {
	return append([]core.Capability(nil), c.caps...)
}

// Sections returns the declared sections in order
func (c *Catalog) Sections() []Section {
	return append([]Section(nil), c.sections...)
}

// InSection returns the capabilities of one section in catalog order
func (c *Catalog) InSection(section string) []core.Capability {
	var out []core.Capability
	for _, capability := range c.caps {
		if capability.Section == section {
			out = append(out, capability)
		}
	}
	return out
}

// Suggest returns up to three ids close to query, best match first
func (c *Catalog) Suggest(query string) []string {
	ids := make([]string, len(c.caps))
	for i, capability := range c.caps {
		ids[i] = capability.ID
	}

	ranks := fuzzy.RankFindNormalizedFold(query, ids)
	sort.Sort(ranks)

	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}
