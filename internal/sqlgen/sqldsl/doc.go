// Package sqldsl provides small typed building blocks for the SQL fragments
// quarry emits.
//
// # Overview
//
// The search engine co-generates SQL text and an ordered list of bound
// values. Rather than appending to a shared string builder from many places,
// each fragment is a value implementing Expr whose SQL() method renders
// lower-case, single-line SQL. Bound values never appear in the rendered
// text: every value slot renders as a positional marker (Placeholder) and
// the caller keeps the matching value list in the same order.
//
// # Expression Types
//
//	Raw("u.age")                       // raw column expression: u.age
//	Placeholder{}                      // positional marker: ?
//	Func{Name: "upper", Args: ...}     // function call: upper(u.name)
//	Alias{Expr: e, Name: "d_0"}        // select item: u.name d_0
//	Paren{Expr: e}                     // (e)
//
// Predicates:
//
//	Cmp{Left: col, Op: OpEq, Right: Placeholder{}}   // u.age = ?
//	IsNull{Expr: col}                                 // u.age is null
//	IsNotNull{Expr: col}                              // u.age is not null
//	Between{Expr: col}                                // u.age between ? and ?
//	Or(e1, e2)                                        // e1 or e2
//	And(e1, e2)                                       // e1 and e2
//
// # Statement Fragments
//
// The assembler needs the select list and the from/where tail as separate
// strings because pagination dialects wrap them differently:
//
//	SelectList{Distinct: true, Items: items}.SQL()   // select distinct u.id d_0, ...
//	FromWhere{Tables: "user u", Where: pred}.SQL()    // " from user u where ..."
//	Derived{Query: q, Alias: "tbl_"}.SQL()           // (q) tbl_
package sqldsl
