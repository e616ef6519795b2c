// Package doctor provides health checks for quarry bean descriptors.
//
// The doctor command validates that a descriptor file parses, that every
// bean's SQL snippets are well formed, and, when a database is available,
// that each bean's list and cluster queries actually run.
//
// Example usage:
//
//	d := doctor.New(db, "beans.yaml", dialect.PostgresDialect{}, ":")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pthm/quarry"
	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/vparam"
	"github.com/pthm/quarry/meta"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Descriptor", "Beans").
	Category string

	// Name is a short identifier for the check.
	Name string

	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a descriptor file and, optionally, the
// database it describes.
type Doctor struct {
	db             *sql.DB
	descriptorPath string
	dialect        dialect.Dialect
	prefix         string

	// Populated during Run.
	registry *meta.Registry
	healthy  []string
}

// New creates a new Doctor. db may be nil to skip the database checks.
func New(db *sql.DB, descriptorPath string, d dialect.Dialect, prefix string) *Doctor {
	return &Doctor{
		db:             db,
		descriptorPath: descriptorPath,
		dialect:        d,
		prefix:         prefix,
	}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkDescriptorFile(report)
	if d.registry == nil {
		return report, nil
	}
	d.checkBeans(report)
	if d.db != nil {
		if err := d.checkDatabase(ctx, report); err != nil {
			return nil, fmt.Errorf("checking database: %w", err)
		}
	}
	return report, nil
}

func (d *Doctor) checkDescriptorFile(report *Report) {
	if _, err := os.Stat(d.descriptorPath); err != nil {
		report.AddCheck(CheckResult{
			Category: "Descriptor",
			Name:     "exists",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Descriptor not found at %s", d.descriptorPath),
			FixHint:  "Set descriptor in quarry.yaml or pass --descriptor",
		})
		return
	}

	report.AddCheck(CheckResult{
		Category: "Descriptor",
		Name:     "exists",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Descriptor exists at %s", d.descriptorPath),
	})

	reg, err := meta.LoadFile(d.descriptorPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Descriptor",
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Descriptor is invalid",
			Details:  err.Error(),
			FixHint:  "Bean and field names must be unique identifiers; every field needs an expr",
		})
		return
	}
	d.registry = reg

	fields := 0
	for _, name := range reg.Names() {
		b, _ := reg.Bean(name)
		fields += len(b.Fields)
	}
	status := StatusPass
	if len(reg.Names()) == 0 {
		status = StatusWarn
	}
	report.AddCheck(CheckResult{
		Category: "Descriptor",
		Name:     "valid",
		Status:   status,
		Message:  fmt.Sprintf("Descriptor is valid (%d beans, %d fields)", len(reg.Names()), fields),
	})
}

// checkBeans rewrites every bean's snippets. Beans that pass are probed
// against the database afterwards.
func (d *Doctor) checkBeans(report *Report) {
	s := quarry.NewSearcher(nil, d.registry,
		quarry.WithDialect(d.dialect),
		quarry.WithVirtualParamPrefix(d.prefix),
	)
	for _, name := range d.registry.Names() {
		if err := s.Prepare(name); err != nil {
			report.AddCheck(CheckResult{
				Category: "Beans",
				Name:     name,
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s: invalid", name),
				Details:  err.Error(),
				FixHint:  fmt.Sprintf("Virtual parameters are written %sname; only_on lists operator names or codes", vparam.New(d.prefix).Prefix()),
			})
			continue
		}
		d.healthy = append(d.healthy, name)

		b, _ := d.registry.Bean(name)
		names := d.virtualParams(b)
		check := CheckResult{
			Category: "Beans",
			Name:     name,
			Status:   StatusPass,
			Message:  fmt.Sprintf("%s: %d fields", name, len(b.Fields)),
		}
		if len(names) > 0 {
			check.Details = "virtual parameters: " + strings.Join(names, ", ")
		}
		report.AddCheck(check)
	}
}

// virtualParams lists the distinct virtual parameters of b in first-use order.
func (d *Doctor) virtualParams(b *meta.Bean) []string {
	r := vparam.New(d.prefix)
	snippets := []string{b.Tables, b.JoinCond}
	for _, f := range b.Fields {
		snippets = append(snippets, f.Expr)
	}

	seen := map[string]bool{}
	var out []string
	for _, s := range snippets {
		res, err := r.Resolve(s)
		if err != nil {
			continue
		}
		for _, n := range res.Names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// checkDatabase runs each healthy bean's list and count queries with no
// filters. Virtual parameters bind NULL.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) error {
	if err := d.db.PingContext(ctx); err != nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "connect",
			Status:   StatusFail,
			Message:  "Cannot connect to database",
			Details:  err.Error(),
			FixHint:  "Check database settings in quarry.yaml",
		})
		return nil
	}
	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "connect",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Connected (%s dialect)", d.dialect.Name()),
	})

	s := quarry.NewSearcher(d.db, d.registry,
		quarry.WithDialect(d.dialect),
		quarry.WithVirtualParamPrefix(d.prefix),
	)
	for _, name := range d.healthy {
		if _, err := s.SearchFirst(ctx, name, nil); err != nil {
			report.AddCheck(CheckResult{
				Category: "Database",
				Name:     name,
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s: list query failed", name),
				Details:  err.Error(),
				FixHint:  "Check the bean's tables, join_cond and field expressions against the database",
			})
			continue
		}
		n, err := s.SearchCount(ctx, name, nil)
		if err != nil {
			report.AddCheck(CheckResult{
				Category: "Database",
				Name:     name,
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s: count query failed", name),
				Details:  err.Error(),
				FixHint:  "Check the bean's group_by against its field expressions",
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     name,
			Status:   StatusPass,
			Message:  fmt.Sprintf("%s: queries run (%d rows)", name, n),
		})
	}
	return nil
}
