// Package template loads a workflow YAML file into a compiled Template,
// running every node's script field through the script parser at load
// time (spec §4, §6).
package template

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jav-tidy/javtidy/internal/script"
)

// ChildNode pairs a child's mapping key with its compiled descriptor,
// kept as an ordered slice (rather than a Go map) so sibling iteration
// order is deterministic and matches the YAML source order.
type ChildNode struct {
	Name string
	Node *Node
}

// Node is one compiled entry in a workflow tree (spec §3's "node
// descriptor"). A leaf value node has no children.
type Node struct {
	Script   *script.Pipeline
	Request  bool
	Children []ChildNode
}

// UnmarshalYAML accepts either a bare script string (a leaf value node)
// or a mapping of {script, request?, children?}, following dsl.go's
// hand-rolled node-kind switch instead of generic struct decoding.
func (n *Node) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p, err := script.Parse(node.Value)
		if err != nil {
			return fmt.Errorf("template: node %q: %w", node.Value, err)
		}
		n.Script = p
		return nil

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			key := node.Content[i].Value
			value := node.Content[i+1]

			switch key {
			case "script":
				var src string
				if err := value.Decode(&src); err != nil {
					return fmt.Errorf("template: node: script must be a string: %w", err)
				}
				p, err := script.Parse(src)
				if err != nil {
					return fmt.Errorf("template: node script %q: %w", src, err)
				}
				n.Script = p

			case "request":
				if err := value.Decode(&n.Request); err != nil {
					return fmt.Errorf("template: node: request must be a bool: %w", err)
				}

			case "children":
				if value.Kind != yaml.MappingNode {
					return fmt.Errorf("template: node: children must be a mapping")
				}
				for j := 0; j < len(value.Content); j += 2 {
					childName := value.Content[j].Value
					childValue := value.Content[j+1]
					var child Node
					if err := childValue.Decode(&child); err != nil {
						return fmt.Errorf("template: child %q: %w", childName, err)
					}
					n.Children = append(n.Children, ChildNode{Name: childName, Node: &child})
				}

			default:
				return fmt.Errorf("template: node: unknown key %q", key)
			}
		}

		if n.Request && (n.Script == nil || n.Script.Type != script.ValueProducing) {
			return fmt.Errorf("template: node: request: true requires a value-producing script")
		}
		return nil

	default:
		return fmt.Errorf("template: node descriptor must be a scalar string or a mapping, got %v", node.Kind)
	}
}

// Template is one loaded, compiled workflow file (spec §3's
// "Workflow" / §6's "Workflow file").
type Template struct {
	Name       string // filename, used for template_priority ordering
	Entrypoint string
	Env        map[string][]string
	Main       *Node
}

// UnmarshalYAML rejects unknown top-level keys, mirroring dsl.go's
// explicit key switch rather than relying on yaml's (lenient) default
// struct decoding.
func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("template: root must be a mapping")
	}

	var nodesSeen bool
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]

		switch key {
		case "entrypoint":
			if err := value.Decode(&t.Entrypoint); err != nil {
				return fmt.Errorf("template: entrypoint must be a string: %w", err)
			}
		case "env":
			if err := value.Decode(&t.Env); err != nil {
				return fmt.Errorf("template: env must be a mapping of name to string list: %w", err)
			}
		case "nodes":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("template: nodes must be a mapping")
			}
			var mainNode *yaml.Node
			for j := 0; j < len(value.Content); j += 2 {
				if value.Content[j].Value == "main" {
					mainNode = value.Content[j+1]
				} else {
					return fmt.Errorf("template: nodes: unknown key %q (only \"main\" is recognized)", value.Content[j].Value)
				}
			}
			if mainNode == nil {
				return fmt.Errorf("template: nodes.main is required")
			}
			var main Node
			if err := mainNode.Decode(&main); err != nil {
				return fmt.Errorf("template: nodes.main: %w", err)
			}
			t.Main = &main
			nodesSeen = true
		default:
			return fmt.Errorf("template: unknown top-level key %q", key)
		}
	}

	if t.Entrypoint == "" {
		return fmt.Errorf("template: entrypoint is required")
	}
	if !nodesSeen {
		return fmt.Errorf("template: nodes.main is required")
	}
	return nil
}

// Load reads and compiles a workflow file at path.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("template: parse %s: %w", path, err)
	}
	t.Name = filepath.Base(path)
	return &t, nil
}

// LoadPriorityOrdered loads every file in priority (in order), skipping
// none — a malformed template fails the whole startup (spec §7's
// "malformed template" is a Fatal error kind).
func LoadPriorityOrdered(dir string, priority []string) ([]*Template, error) {
	templates := make([]*Template, 0, len(priority))
	for _, name := range priority {
		t, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("template: loading priority-ordered template %q: %w", name, err)
		}
		templates = append(templates, t)
	}
	return templates, nil
}
