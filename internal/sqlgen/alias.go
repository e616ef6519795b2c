package sqlgen

import (
	"strconv"
	"strings"
)

// Alias seeds.
const (
	tableAliasSeed  = "tbl_"
	columnAliasSeed = "col_"
	countAliasSeed  = columnAliasSeed + "count"
)

// GenerateAlias returns seed if text does not contain it, otherwise the first
// of seed0, seed1, ... that text does not contain. The result depends only
// on its arguments.
func GenerateAlias(seed, text string) string {
	return generateAlias(seed, text, nil)
}

func generateAlias(seed, text string, taken map[string]bool) string {
	alias := seed
	for i := 0; strings.Contains(text, alias) || taken[alias]; i++ {
		alias = seed + strconv.Itoa(i)
	}
	return alias
}

// aliasGenerator issues aliases that collide neither with the SQL text they
// will be embedded around nor with each other.
type aliasGenerator struct {
	text  string
	taken map[string]bool
}

func newAliasGenerator(text string) *aliasGenerator {
	return &aliasGenerator{text: text, taken: make(map[string]bool)}
}

func (g *aliasGenerator) next(seed string) string {
	alias := generateAlias(seed, g.text, g.taken)
	g.taken[alias] = true
	return alias
}

func (g *aliasGenerator) column(name string) string {
	return g.next(columnAliasSeed + name)
}
