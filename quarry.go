// Package quarry compiles declarative bean descriptors and request
// parameters into dialect-correct SQL, and runs it.
//
// # Core Concepts
//
// A bean describes something searchable: the tables it reads, an optional
// join condition and grouping, and an ordered list of logical fields mapped
// to column expressions. Descriptors are usually kept in YAML:
//
//	beans:
//	  - name: user
//	    tables: user u, dept d
//	    join_cond: u.dept_id = d.id
//	    fields:
//	      - {name: id, expr: u.id, type: long}
//	      - {name: name, expr: u.name}
//	      - {name: deptName, expr: d.name}
//
// A search request is a flat map. For a field f, "f" carries the value,
// "f-op" the operator and "f-ic" the ignore-case flag; "sort", "order",
// "max", "offset" and "page" control ordering and paging.
//
// # Basic Usage
//
//	reg, _ := meta.LoadFile("beans.yaml")
//	s := quarry.NewSearcher(db, reg, quarry.WithDialect(dialect.PostgresDialect{}))
//	res, err := s.Search(ctx, "user", map[string]any{"name": "Jack", "name-op": "sw"})
//
// Every search produces a list query and a cluster query (count and sums)
// sharing one predicate. Build returns both without touching the database.
//
// # Virtual Parameters
//
// Descriptor snippets may embed named parameters, e.g.
// "u.age > :minAge". They are rewritten to bind markers once per bean and
// bound from the request entry of the same name on every search.
//
// # Transaction Support
//
// The Searcher works with *sql.DB, *sql.Tx, or *sql.Conn.
package quarry

import (
	"github.com/pthm/quarry/executor"
	"github.com/pthm/quarry/internal/sqlgen"
)

// SQLResult is the SQL of one search and its bound values.
type SQLResult = sqlgen.SQLResult

// Row is one list row keyed by logical field name.
type Row = executor.Row

// Querier is the database handle a Searcher runs queries on.
type Querier = executor.Querier
