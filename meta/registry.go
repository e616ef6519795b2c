package meta

import (
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"
)

// Provider supplies bean descriptors by name. Returned beans must stay
// unchanged for the provider's lifetime.
type Provider interface {
	Bean(name string) (*Bean, error)
}

// Descriptor is the on-disk layout of a descriptor file.
//
//	beans:
//	  - name: user
//	    tables: user u, dept d
//	    join_cond: u.dept_id = d.id
//	    fields:
//	      - {name: id, expr: u.id, type: long}
//	      - {name: deptName, expr: d.name}
type Descriptor struct {
	Beans []Bean `json:"beans"`
}

// Registry is an immutable, validated set of beans. It is safe for
// concurrent use.
type Registry struct {
	beans map[string]*Bean
	names []string
}

// NewRegistry validates beans and indexes them by name.
func NewRegistry(beans ...Bean) (*Registry, error) {
	r := &Registry{beans: make(map[string]*Bean, len(beans))}
	for i := range beans {
		b := beans[i]
		b.Fields = append([]Field(nil), b.Fields...)
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.beans[b.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate bean %q", ErrInvalidBean, b.Name)
		}
		r.beans[b.Name] = &b
		r.names = append(r.names, b.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Bean returns the registered bean with the given name.
func (r *Registry) Bean(name string) (*Bean, error) {
	b, ok := r.beans[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBean, name)
	}
	return b, nil
}

// Names returns the registered bean names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Load parses a YAML (or JSON) descriptor document.
func Load(data []byte) (*Registry, error) {
	var d Descriptor
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	return NewRegistry(d.Beans...)
}

// LoadFile reads and parses a descriptor file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	r, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
