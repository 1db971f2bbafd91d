package toc

import (
	"fmt"
	"regexp"
	"strings"
)

// tableRef identifies a table by schema-qualified name.
type tableRef struct {
	schema string
	table  string
}

// Filter decides, per catalog entry, whether the entry survives the rewrite
// or is neutralized. It is immutable once built; one Filter serves one run.
type Filter struct {
	schemas       map[string]struct{}
	schemasNoData map[string]struct{}

	// allowed is the effective allowed schema set: schemas, the nodata
	// schemas, and pg_catalog. It is nil when neither schema list was
	// configured, in which case no schema-based filtering occurs.
	allowed map[string]struct{}

	excludeTables  map[tableRef]struct{}
	excludeRegexes []*regexp.Regexp

	deps *DependencyMap
}

// NewFilter compiles a filter from the run configuration and the trigger
// dependency map. A nil dependency map disables trigger cascade checks.
func NewFilter(cfg Config, deps *DependencyMap) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps == nil {
		deps = NewDependencyMap()
	}

	f := &Filter{
		schemas:       toSet(cfg.Schemas),
		schemasNoData: toSet(cfg.SchemasNoData),
		excludeTables: make(map[tableRef]struct{}),
		deps:          deps,
	}

	if len(cfg.Schemas) > 0 || len(cfg.SchemasNoData) > 0 {
		f.allowed = toSet(cfg.Schemas)
		for _, schema := range cfg.SchemasNoData {
			f.allowed[schema] = struct{}{}
		}
		// System objects must survive any schema restriction.
		f.allowed["pg_catalog"] = struct{}{}
	}

	for _, pair := range cfg.ExcludeTables {
		schema, table, _ := strings.Cut(pair, ".")
		f.excludeTables[tableRef{schema: schema, table: table}] = struct{}{}
	}

	for _, pattern := range cfg.ExcludeTableRegexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude table pattern %q: %w", pattern, err)
		}
		f.excludeRegexes = append(f.excludeRegexes, re)
	}

	return f, nil
}

// Decide evaluates the filtering rules for one entry in fixed precedence
// order, short-circuiting on the first rule that drops it. Unrecognized and
// unclassified entries bypass every rule and are kept.
func (f *Filter) Decide(entry Entry) Verdict {
	if !entry.Recognized {
		return Verdict{Keep: true}
	}

	class := Classify(entry)
	if !class.OK {
		return Verdict{Keep: true}
	}

	a, b, c := entry.Tokens[0], entry.Tokens[1], entry.Tokens[2]

	// The schema-membership rules only apply when schema filtering was
	// requested; with neither schema list configured every entry passes
	// them untouched.
	if f.allowed != nil {
		// ACL entries for schemas outside the restore set carry a
		// placeholder dash where the object schema would be.
		if a == "ACL" && b == "-" {
			if _, ok := f.schemas[c]; !ok {
				return Verdict{Reason: DropReasonACL}
			}
		}

		if _, ok := f.allowed[class.Schema]; !ok {
			return Verdict{Reason: DropReasonSchema}
		}

		if a == "TRIGGER" {
			if procs, ok := f.deps.Procedures(b, c); ok {
				for _, proc := range procs {
					schema, _, _ := strings.Cut(proc, ".")
					if _, ok := f.schemas[schema]; !ok {
						return Verdict{Reason: DropReasonTriggerDependency}
					}
				}
			}
		}
	}

	tableData := a == "TABLE" && b == "DATA"

	if tableData {
		if _, ok := f.schemasNoData[class.Schema]; ok {
			return Verdict{Reason: DropReasonNoDataSchema}
		}
	}

	if tableData {
		if _, ok := f.excludeTables[tableRef{schema: class.Schema, table: class.Table}]; ok {
			return Verdict{Reason: DropReasonExcludedTable}
		}
	}

	if tableData {
		qualified := class.Schema + "." + class.Table
		for _, re := range f.excludeRegexes {
			if re.MatchString(qualified) {
				return Verdict{Reason: DropReasonExcludedPattern}
			}
		}
	}

	return Verdict{Keep: true}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
