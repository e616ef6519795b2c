// Package main provides the quarry CLI.
//
// The CLI supports:
//   - sql: Print the SQL a search would run, without a database
//   - search: Run a search and print the rows
//   - beans: List the beans of a descriptor file
//   - doctor: Check a descriptor file and the database behind it
//
// Usage:
//
//	quarry [flags] <command>
//
// Search parameters are given as key=value arguments, e.g.
//
//	quarry search user name=Jack name-op=sw sort=age order=desc
//
// Repeat a key to pass several values.
package main

func main() {
	Execute()
}
