// Package sqlgen compiles a bean descriptor and search parameters into the
// list and cluster SQL of one search.
//
// # Overview
//
// A search produces two statements that share one predicate:
//
//   - the list query: select list, from/where, optional order by, then the
//     dialect's pagination clause
//   - the cluster query: count(1) and optional sum(...) columns over the same
//     from/where
//
// Both are rendered with "?" markers. The bound values are collected in the
// order their markers appear in the text, so a list query always binds
// select-list virtual parameters first, then table and join virtual
// parameters, then filter values, then pagination values.
//
// # Pipeline
//
//  1. DescriptorCache rewrites the virtual parameters of the bean's tables,
//     join condition and field expressions once per bean.
//  2. Compiler turns each active FilterCondition into one predicate.
//  3. Assembler joins the fragments and decides how the cluster query reads
//     the base query (see below).
//  4. The dialect paginates the list query.
//
// # Cluster Query Shapes
//
// With neither distinct nor group by, aggregates read the from/where
// directly:
//
//	select count(1) col_count from user u where u.age = ?
//
// Otherwise a direct count would count duplicate or ungrouped rows, so the
// base query is wrapped in a derived table:
//
//	select count(1) col_count from (select distinct u.name d_0 from user u) tbl_
//	select count(1) col_count from (select count(1) from user u group by u.dept) tbl_
//
// Generated aliases (col_count, col_<field>, tbl_) get a numeric suffix when
// the text they wrap already contains them.
package sqlgen
