package sqlgen

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pthm/quarry/internal/vparam"
	"github.com/pthm/quarry/meta"
)

// resolvedField is a field whose expression has had its virtual parameters
// rewritten.
type resolvedField struct {
	field *meta.Field
	expr  vparam.Resolution
	alias string
}

// resolvedBean is the immutable, rewritten form of a bean. It is published
// only after every snippet has been rewritten.
type resolvedBean struct {
	bean     *meta.Bean
	tables   vparam.Resolution
	joinCond vparam.Resolution
	fields   []resolvedField
	byName   map[string]int
}

func (rb *resolvedBean) field(name string) (*resolvedField, bool) {
	i, ok := rb.byName[name]
	if !ok {
		return nil, false
	}
	return &rb.fields[i], true
}

func resolveBean(r *vparam.Resolver, bean *meta.Bean) (*resolvedBean, error) {
	rb := &resolvedBean{
		bean:   bean,
		fields: make([]resolvedField, len(bean.Fields)),
		byName: make(map[string]int, len(bean.Fields)),
	}

	var err error
	if rb.tables, err = r.Resolve(bean.Tables); err != nil {
		return nil, fmt.Errorf("bean %q tables: %w", bean.Name, err)
	}
	if strings.TrimSpace(bean.JoinCond) != "" {
		if rb.joinCond, err = r.Resolve(bean.JoinCond); err != nil {
			return nil, fmt.Errorf("bean %q join condition: %w", bean.Name, err)
		}
	}
	for i := range bean.Fields {
		f := &bean.Fields[i]
		expr, err := r.Resolve(f.Expr)
		if err != nil {
			return nil, fmt.Errorf("bean %q field %q: %w", bean.Name, f.Name, err)
		}
		rb.fields[i] = resolvedField{field: f, expr: expr, alias: bean.SelectAlias(i)}
		rb.byName[f.Name] = i
	}
	return rb, nil
}

// DescriptorCache memoizes the virtual parameter rewrite of each bean.
// Concurrent first lookups of one bean share a single rewrite; readers only
// ever observe fully built entries. Failed rewrites are not cached.
//
// Entries are keyed by the *meta.Bean pointer, so a cache must only see
// beans that are never modified.
type DescriptorCache struct {
	resolver *vparam.Resolver
	entries  sync.Map // *meta.Bean -> *resolvedBean
	group    singleflight.Group
}

// NewDescriptorCache creates a cache that rewrites snippets with r.
func NewDescriptorCache(r *vparam.Resolver) *DescriptorCache {
	if r == nil {
		r = vparam.New("")
	}
	return &DescriptorCache{resolver: r}
}

func (c *DescriptorCache) get(bean *meta.Bean) (*resolvedBean, error) {
	if v, ok := c.entries.Load(bean); ok {
		return v.(*resolvedBean), nil
	}

	key := fmt.Sprintf("%s@%p", bean.Name, bean)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Load(bean); ok {
			return v, nil
		}
		rb, err := resolveBean(c.resolver, bean)
		if err != nil {
			return nil, err
		}
		c.entries.Store(bean, rb)
		return rb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*resolvedBean), nil
}

// Warm rewrites bean now so that syntax errors surface before the first search.
func (c *DescriptorCache) Warm(bean *meta.Bean) error {
	_, err := c.get(bean)
	return err
}

// Size returns the number of cached beans.
func (c *DescriptorCache) Size() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every cached bean.
func (c *DescriptorCache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
}
