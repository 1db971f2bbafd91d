package toc

import (
	"fmt"
	"strings"
)

// Entry represents one parsed line of a pg_restore -l catalog listing.
//
// The numeric identifiers are informational only; filtering decisions are
// made from the kind tokens. Raw always holds the original line byte for
// byte so that kept entries can be reproduced without alteration.
type Entry struct {
	ID     int
	DumpID int

	// Tokens holds the whitespace-split tokens following the numeric
	// header fields. Their layout depends on the entry kind.
	Tokens []string

	// Raw is the original line text, unmodified.
	Raw string

	// Recognized reports whether the line carried one of the known kind
	// markers. Unrecognized lines are never classified and never filtered.
	Recognized bool
}

// Classification holds the semantic schema (and table, when applicable)
// derived from an entry's kind-specific token layout.
type Classification struct {
	Schema string
	Table  string

	// OK reports whether classification succeeded. Entries that cannot be
	// classified are unconditionally kept.
	OK bool
}

// ProcedureSet is an insertion-ordered set of schema-qualified procedure
// names. Duplicates are suppressed, first-seen order is preserved.
type ProcedureSet struct {
	names []string
	seen  map[string]struct{}
}

// NewProcedureSet creates an empty procedure set.
func NewProcedureSet() *ProcedureSet {
	return &ProcedureSet{seen: make(map[string]struct{})}
}

// Add inserts a procedure name, returning false if it was already present.
func (ps *ProcedureSet) Add(name string) bool {
	if _, ok := ps.seen[name]; ok {
		return false
	}
	ps.seen[name] = struct{}{}
	ps.names = append(ps.names, name)
	return true
}

// Contains reports whether the set holds the given name.
func (ps *ProcedureSet) Contains(name string) bool {
	_, ok := ps.seen[name]
	return ok
}

// Names returns the procedure names in insertion order.
func (ps *ProcedureSet) Names() []string {
	return ps.names
}

// Len returns the number of procedures in the set.
func (ps *ProcedureSet) Len() int {
	return len(ps.names)
}

// DependencyMap records which procedures each trigger invokes, keyed by the
// schema the trigger was created under and the trigger's own name.
type DependencyMap struct {
	triggers map[string]map[string]*ProcedureSet

	// funcSchemas caches the declaring schema of functions returning
	// "trigger". It is populated during extraction but intentionally never
	// consulted when qualifying unqualified procedure names: an unqualified
	// name is always qualified with the trigger's schema. Vestigial, kept
	// for parity with the historical behavior.
	funcSchemas map[string]string
}

// NewDependencyMap creates an empty dependency map.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{
		triggers:    make(map[string]map[string]*ProcedureSet),
		funcSchemas: make(map[string]string),
	}
}

// ensureSchema registers a schema bucket if it does not exist yet.
func (dm *DependencyMap) ensureSchema(schema string) map[string]*ProcedureSet {
	bucket, ok := dm.triggers[schema]
	if !ok {
		bucket = make(map[string]*ProcedureSet)
		dm.triggers[schema] = bucket
	}
	return bucket
}

// ensureTrigger registers an empty procedure list for a trigger if needed.
func (dm *DependencyMap) ensureTrigger(schema, trigger string) *ProcedureSet {
	bucket := dm.ensureSchema(schema)
	set, ok := bucket[trigger]
	if !ok {
		set = NewProcedureSet()
		bucket[trigger] = set
	}
	return set
}

// Procedures returns the ordered procedure list for a trigger, or false if
// the trigger is unknown. An unknown trigger imposes no dependency
// constraint on filtering.
func (dm *DependencyMap) Procedures(schema, trigger string) ([]string, bool) {
	bucket, ok := dm.triggers[schema]
	if !ok {
		return nil, false
	}
	set, ok := bucket[trigger]
	if !ok {
		return nil, false
	}
	return set.Names(), true
}

// Schemas returns the number of schemas holding at least one trigger.
func (dm *DependencyMap) Schemas() int {
	return len(dm.triggers)
}

// TriggerCount returns the total number of registered triggers.
func (dm *DependencyMap) TriggerCount() int {
	total := 0
	for _, bucket := range dm.triggers {
		total += len(bucket)
	}
	return total
}

// FunctionSchema exposes the vestigial function declaring-schema cache for
// inspection. Filtering never reads it.
func (dm *DependencyMap) FunctionSchema(function string) (string, bool) {
	schema, ok := dm.funcSchemas[function]
	return schema, ok
}

// Config holds the immutable filtering inputs for one catalog run.
type Config struct {
	// Schemas lists schemas whose definitions and data are restored. Empty
	// means no schema restriction was requested.
	Schemas []string `mapstructure:"schemas" yaml:"schemas"`

	// SchemasNoData lists schemas whose definitions are restored but whose
	// TABLE DATA sections are dropped.
	SchemasNoData []string `mapstructure:"schemas_nodata" yaml:"schemas_nodata"`

	// ExcludeTables lists "schema.table" pairs whose data is dropped
	// regardless of schema membership.
	ExcludeTables []string `mapstructure:"exclude_tables" yaml:"exclude_tables"`

	// ExcludeTableRegexes holds patterns matched against "schema.table";
	// the first match drops the table's data.
	ExcludeTableRegexes []string `mapstructure:"exclude_table_regexes" yaml:"exclude_table_regexes"`
}

// Validate checks that the filter configuration is well formed.
func (c *Config) Validate() error {
	var errs []error

	for _, pair := range c.ExcludeTables {
		if !strings.Contains(pair, ".") {
			errs = append(errs, fmt.Errorf("exclude table %q must be schema-qualified as schema.table", pair))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("filter configuration validation failed: %v", errs)
	}

	return nil
}

// Empty reports whether no filtering of any kind was requested.
func (c *Config) Empty() bool {
	return len(c.Schemas) == 0 && len(c.SchemasNoData) == 0 &&
		len(c.ExcludeTables) == 0 && len(c.ExcludeTableRegexes) == 0
}

// DropReason identifies which rule neutralized a catalog entry.
type DropReason string

const (
	// DropReasonACL marks an ACL entry for a schema outside the restore set.
	DropReasonACL DropReason = "acl_schema_excluded"
	// DropReasonSchema marks an entry whose schema is outside the restore set.
	DropReasonSchema DropReason = "schema_excluded"
	// DropReasonTriggerDependency marks a trigger invoking a procedure from
	// an excluded schema.
	DropReasonTriggerDependency DropReason = "trigger_dependency_excluded"
	// DropReasonNoDataSchema marks a TABLE DATA section of a definitions-only
	// schema.
	DropReasonNoDataSchema DropReason = "schema_nodata"
	// DropReasonExcludedTable marks a TABLE DATA section excluded by an
	// explicit schema.table pair.
	DropReasonExcludedTable DropReason = "table_excluded"
	// DropReasonExcludedPattern marks a TABLE DATA section excluded by a
	// configured pattern.
	DropReasonExcludedPattern DropReason = "table_pattern_excluded"
)

// Verdict is the filtering outcome for a single catalog entry.
type Verdict struct {
	Keep   bool
	Reason DropReason
}

// RewriteStats summarizes one catalog rewrite.
type RewriteStats struct {
	Lines   int                `json:"lines"`
	Entries int                `json:"entries"`
	Kept    int                `json:"kept"`
	Dropped int                `json:"dropped"`
	Reasons map[DropReason]int `json:"reasons,omitempty"`
}
