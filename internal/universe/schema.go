package universe

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is the top-level layout of a universe document:
//
//	types:
//	  - name: list::Node
//	    id: Node
//	    fields:
//	      - {name: value, type: usize}
//	      - {name: next, type: "&Node"}
//	  - name: std::option::Option
//	    id: OptionInt
//	    args: [isize]
//	    variants:
//	      - name: None
//	      - name: Some
//	        fields: [{name: "0", type: isize}]
//	roots: [Node, "(bool, OptionInt)"]
type File struct {
	Types []Decl `yaml:"types"`
	Roots []Expr `yaml:"roots"`
}

// Decl declares one nominal type, or one instantiation of a generic one.
type Decl struct {
	// Name is the identity path, e.g. `std::option::Option`.
	Name string `yaml:"name"`
	// ID is how type expressions refer to this declaration. Defaults to Name.
	ID string `yaml:"id,omitempty"`
	// Args are the instantiation arguments.
	Args []Expr `yaml:"args,omitempty"`
	// Fields is shorthand for a single variant named after the type.
	Fields []FieldDecl `yaml:"fields,omitempty"`
	// Variants lists the variants of a multi-variant type.
	Variants []VariantDecl `yaml:"variants,omitempty"`

	Line int `yaml:"-"`
}

func (d *Decl) UnmarshalYAML(n *yaml.Node) error {
	if err := knownKeys(n, "name", "id", "args", "fields", "variants"); err != nil {
		return err
	}
	type plain Decl
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*d = Decl(p)
	d.Line = n.Line
	return nil
}

// Key returns the identifier other type expressions use for d.
func (d *Decl) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.Name
}

type VariantDecl struct {
	Name string `yaml:"name"`
	// Discriminant defaults to the variant's position.
	Discriminant *int64      `yaml:"discriminant,omitempty"`
	Fields       []FieldDecl `yaml:"fields,omitempty"`

	Line int `yaml:"-"`
}

func (v *VariantDecl) UnmarshalYAML(n *yaml.Node) error {
	if err := knownKeys(n, "name", "discriminant", "fields"); err != nil {
		return err
	}
	type plain VariantDecl
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*v = VariantDecl(p)
	v.Line = n.Line
	return nil
}

type FieldDecl struct {
	Name string `yaml:"name"`
	Type Expr   `yaml:"type"`
}

func (f *FieldDecl) UnmarshalYAML(n *yaml.Node) error {
	if err := knownKeys(n, "name", "type"); err != nil {
		return err
	}
	type plain FieldDecl
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*f = FieldDecl(p)
	return nil
}

// Expr is a type expression together with where it was written.
type Expr struct {
	Text string
	Line int
	Col  int
}

func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	if err := n.Decode(&e.Text); err != nil {
		return err
	}
	e.Line, e.Col = n.Line, n.Column
	return nil
}

// knownKeys rejects mapping keys outside allowed. Decoding through a custom
// unmarshaler does not inherit the decoder's KnownFields setting.
func knownKeys(n *yaml.Node, allowed ...string) error {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		known := false
		for _, a := range allowed {
			if k.Value == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("line %d: unknown field %q", k.Line, k.Value)
		}
	}
	return nil
}
