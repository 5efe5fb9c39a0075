// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed events.yaml
var defaultCatalogData []byte

// EventCode is one entry of the event code catalog.
type EventCode struct {
	Code        string      `yaml:"code"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Address     AddressKind `yaml:"address"`
}

// UnmarshalYAML decodes the address kind from its lowercase name.
func (k *AddressKind) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	kind, ok := addressKindNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("line %d: unknown address kind %q", node.Line, name)
	}
	*k = kind
	return nil
}

type catalogFile struct {
	Events []EventCode `yaml:"events"`
}

// Catalog is a read-only code -> entry table.
type Catalog struct {
	entries []EventCode
	index   map[string]*EventCode
}

// LoadCatalog reads a YAML catalog. When a code appears more than once the
// first entry wins.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse event catalog: %w", err)
	}

	c := &Catalog{
		entries: file.Events,
		index:   make(map[string]*EventCode, len(file.Events)),
	}
	for i := range c.entries {
		e := &c.entries[i]
		if len(e.Code) != 2 {
			return nil, fmt.Errorf("event catalog entry %d: code %q must be 2 characters", i, e.Code)
		}
		if _, exists := c.index[e.Code]; exists {
			continue
		}
		c.index[e.Code] = e
	}

	return c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded SIA event catalog. It is parsed once.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := LoadCatalog(bytes.NewReader(defaultCatalogData))
		if err != nil {
			panic(fmt.Sprintf("sia: embedded event catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup returns the entry for an exact 2-character code.
func (c *Catalog) Lookup(code string) (*EventCode, bool) {
	e, ok := c.index[code]
	return e, ok
}

// Len returns the number of distinct codes.
func (c *Catalog) Len() int {
	return len(c.index)
}

// Codes returns every distinct code in sorted order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.index))
	for code := range c.index {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
