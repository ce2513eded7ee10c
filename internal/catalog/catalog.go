// Package catalog defines the document groups the service indexes and the
// names offered by the index selector.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoaderKind selects how a group's documents are read.
type LoaderKind string

const (
	// LoaderFiles reads an explicit list of files.
	LoaderFiles LoaderKind = "files"
	// LoaderDirectory reads a directory tree.
	LoaderDirectory LoaderKind = "directory"
	// LoaderAggregate takes the union of other groups' documents.
	LoaderAggregate LoaderKind = "aggregate"
)

// Well-known names.
const (
	GraphName = "graph"
	Mixed     = "mixed"
	Blake     = "blake"
	AllDocs   = "all_docs"
)

// Group is a named set of source documents indexed together.
type Group struct {
	Name   string     `yaml:"name"`
	Loader LoaderKind `yaml:"loader"`
	// Paths are files or a single directory, relative to the documents root.
	Paths []string `yaml:"paths,omitempty"`
	// Members names the groups an aggregate draws from.
	Members []string `yaml:"members,omitempty"`
	// Metadata is attached to every document of the group.
	Metadata map[string]any `yaml:"metadata,omitempty"`
	// PersistDir is relative to the storage root.
	PersistDir string `yaml:"persist_dir"`
	// Summary describes the group to a composable graph.
	Summary string `yaml:"summary,omitempty"`
	// InGraph adds the group as a child of the composable graph.
	InGraph bool `yaml:"in_graph,omitempty"`
}

// Description is one line of the index description shown in the UI.
type Description struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// Catalog is the immutable set of groups plus the selector configuration.
type Catalog struct {
	Groups       []Group       `yaml:"groups"`
	GraphName    string        `yaml:"graph_name"`
	Selector     []string      `yaml:"selector"`
	DefaultIndex string        `yaml:"default_index"`
	Descriptions []Description `yaml:"descriptions"`
}

// Default returns the built-in catalog: one 10-K group per year, the mixed
// and blake folders, the aggregate of the filings and mixed documents, and
// a graph over the years.
func Default(years []int) *Catalog {
	c := &Catalog{GraphName: GraphName, DefaultIndex: Mixed}

	var yearNames []string
	for _, year := range years {
		name := strconv.Itoa(year)
		yearNames = append(yearNames, name)
		c.Groups = append(c.Groups, Group{
			Name:       name,
			Loader:     LoaderFiles,
			Paths:      []string{filepath.Join("uber", fmt.Sprintf("UBER_%d.html", year))},
			Metadata:   map[string]any{"year": year},
			PersistDir: filepath.Join("uber", name),
			Summary:    fmt.Sprintf("UBER 10-k Filing for %d fiscal year", year),
			InGraph:    true,
		})
	}

	c.Groups = append(c.Groups,
		Group{
			Name:       Mixed,
			Loader:     LoaderDirectory,
			Paths:      []string{Mixed},
			PersistDir: Mixed,
			Summary:    "Mixed collection of documents on different topics",
		},
		Group{
			Name:       Blake,
			Loader:     LoaderDirectory,
			Paths:      []string{Blake},
			PersistDir: Blake,
			Summary:    "Video workshop collection of documents",
		},
		Group{
			Name:       AllDocs,
			Loader:     LoaderAggregate,
			Members:    append(slices.Clone(yearNames), Mixed),
			PersistDir: AllDocs,
			Summary:    "Collection of mixed documents on different topics and UBER 10K Filings",
		},
	)

	c.Selector = append(slices.Clone(yearNames), GraphName, Blake, Mixed, AllDocs)

	if len(years) > 0 {
		label := yearNames[0]
		if len(years) > 1 {
			label = yearNames[0] + "-" + yearNames[len(yearNames)-1]
		}
		c.Descriptions = append(c.Descriptions, Description{Label: label, Text: "Uber annual 10K filings"})
	}
	c.Descriptions = append(c.Descriptions,
		Description{Label: GraphName, Text: "Combined index of Uber filings utilizing a Composable Graph"},
		Description{Label: Blake, Text: "Blake Snyder's 15 beats of a screenplay"},
		Description{Label: Mixed, Text: "Mixed set of business documents in different formats"},
		Description{Label: AllDocs, Text: "Single index of all documents"},
	)
	return c
}

// LoadFile reads a catalog from a YAML file and validates it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if c.GraphName == "" {
		c.GraphName = GraphName
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names, loaders and references between groups.
func (c *Catalog) Validate() error {
	var errs []error
	names := make(map[string]bool, len(c.Groups))
	dirs := make(map[string]string, len(c.Groups))

	for _, g := range c.Groups {
		switch {
		case g.Name == "":
			errs = append(errs, errors.New("group with empty name"))
			continue
		case g.Name == c.GraphName:
			errs = append(errs, fmt.Errorf("group %q uses the graph name", g.Name))
		case names[g.Name]:
			errs = append(errs, fmt.Errorf("duplicate group %q", g.Name))
		}
		names[g.Name] = true

		if g.PersistDir == "" {
			errs = append(errs, fmt.Errorf("group %q has no persist dir", g.Name))
		} else if other, ok := dirs[filepath.Clean(g.PersistDir)]; ok {
			errs = append(errs, fmt.Errorf("groups %q and %q share persist dir %s", other, g.Name, g.PersistDir))
		} else {
			dirs[filepath.Clean(g.PersistDir)] = g.Name
		}

		switch g.Loader {
		case LoaderFiles, LoaderDirectory:
			if len(g.Paths) == 0 {
				errs = append(errs, fmt.Errorf("group %q has no paths", g.Name))
			}
			if g.Loader == LoaderDirectory && len(g.Paths) != 1 {
				errs = append(errs, fmt.Errorf("directory group %q needs exactly one path", g.Name))
			}
		case LoaderAggregate:
			if len(g.Members) == 0 {
				errs = append(errs, fmt.Errorf("aggregate group %q has no members", g.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("group %q has unknown loader %q", g.Name, g.Loader))
		}
		if g.InGraph && g.Summary == "" {
			errs = append(errs, fmt.Errorf("graph child %q has no summary", g.Name))
		}
	}

	for _, g := range c.Groups {
		for _, m := range g.Members {
			member, ok := c.Group(m)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("aggregate group %q: unknown member %q", g.Name, m))
			case member.Loader == LoaderAggregate:
				errs = append(errs, fmt.Errorf("aggregate group %q: member %q is itself an aggregate", g.Name, m))
			}
		}
	}

	for _, s := range c.Selector {
		if !names[s] && !(s == c.GraphName && len(c.GraphMembers()) > 0) {
			errs = append(errs, fmt.Errorf("selector name %q has no group or graph", s))
		}
	}
	if !slices.Contains(c.Selector, c.DefaultIndex) {
		errs = append(errs, fmt.Errorf("default index %q is not in the selector", c.DefaultIndex))
	}

	return errors.Join(errs...)
}

// Group looks up a group by name.
func (c *Catalog) Group(name string) (Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// GraphMembers returns the groups under the composable graph, in catalog order.
func (c *Catalog) GraphMembers() []Group {
	var out []Group
	for _, g := range c.Groups {
		if g.InGraph {
			out = append(out, g)
		}
	}
	return out
}

// HasGraph reports whether the selector offers the composable graph.
func (c *Catalog) HasGraph() bool {
	return slices.Contains(c.Selector, c.GraphName) && len(c.GraphMembers()) > 0
}
