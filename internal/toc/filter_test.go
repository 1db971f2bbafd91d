package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFilter(t *testing.T, cfg Config, deps *DependencyMap) *Filter {
	t.Helper()
	f, err := NewFilter(cfg, deps)
	require.NoError(t, err)
	return f
}

func decide(t *testing.T, f *Filter, line string) Verdict {
	t.Helper()
	entry := ParseLine(line)
	require.True(t, entry.Recognized, "line should parse: %s", line)
	return f.Decide(entry)
}

func TestFilter_EmptyConfigKeepsEverything(t *testing.T) {
	f := mustFilter(t, Config{}, nil)

	lines := []string{
		"3; 2615 122814 SCHEMA - pgq postgres",
		"6893; 0 0 ACL - pgq postgres",
		"6662; 0 788811 TABLE DATA payment abocb_code payment",
		"6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin",
	}

	for _, line := range lines {
		assert.True(t, decide(t, f, line).Keep, "expected keep: %s", line)
	}
}

func TestFilter_TableOnlyConfigLeavesSchemaRulesInactive(t *testing.T) {
	// Table excludes alone must not activate the schema-membership rules:
	// ACL placeholders and triggers with foreign-schema procedures survive.
	deps := NewDependencyMap()
	deps.ensureTrigger("jdb", "www_to_reporting_logger").Add("pgq.logutriga")

	f := mustFilter(t, Config{ExcludeTables: []string{"payment.abocb_code"}}, deps)

	assert.True(t, decide(t, f, "6893; 0 0 ACL - pgq postgres").Keep)
	assert.True(t, decide(t, f, "6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin").Keep)
	assert.False(t, decide(t, f, "6662; 0 788811 TABLE DATA payment abocb_code payment").Keep)
}

func TestFilter_SchemaMembership(t *testing.T) {
	f := mustFilter(t, Config{Schemas: []string{"public"}}, nil)

	tests := []struct {
		line string
		keep bool
	}{
		{"3385; 1259 123008 TABLE public accounts owner", true},
		{"3385; 1259 123008 TABLE finance ledger owner", false},
		{"3961; 2605 1487223 CAST pg_catalog CAST (cidr AS public.ip4r)", true},
		{"142; 1255 122813 FUNCTION finance amortize(bigint, bigint) owner", false},
	}

	for _, tt := range tests {
		verdict := decide(t, f, tt.line)
		assert.Equal(t, tt.keep, verdict.Keep, "line: %s", tt.line)
		if !tt.keep {
			assert.Equal(t, DropReasonSchema, verdict.Reason)
		}
	}
}

func TestFilter_ACLPlaceholder(t *testing.T) {
	f := mustFilter(t, Config{Schemas: []string{"public"}}, nil)

	verdict := decide(t, f, "6893; 0 0 ACL - pgq postgres")
	require.False(t, verdict.Keep)
	assert.Equal(t, DropReasonACL, verdict.Reason)

	assert.True(t, decide(t, f, "6893; 0 0 ACL - public postgres").Keep)
}

func TestFilter_NoDataSchemaKeepsDefinitionsDropsData(t *testing.T) {
	f := mustFilter(t, Config{
		Schemas:       []string{"public"},
		SchemasNoData: []string{"archives"},
	}, nil)

	// Definitions of a nodata schema survive via the effective allowed set.
	assert.True(t, decide(t, f, "3385; 1259 123008 TABLE archives ap_rev_2004 webadmin").Keep)
	assert.True(t, decide(t, f, "4656; 1259 56340 INDEX archives ap_rev_2004 webadmin").Keep)

	verdict := decide(t, f, "6662; 0 788811 TABLE DATA archives ap_rev_2004 webadmin")
	require.False(t, verdict.Keep)
	assert.Equal(t, DropReasonNoDataSchema, verdict.Reason)
}

func TestFilter_NoDataWithoutSchemasRestrictsMembership(t *testing.T) {
	// schemas empty but schemas_nodata set: the effective allowed set is
	// the nodata schemas plus pg_catalog, so unrelated schemas are dropped.
	f := mustFilter(t, Config{SchemasNoData: []string{"archives"}}, nil)

	assert.True(t, decide(t, f, "3385; 1259 123008 TABLE archives ap_rev_2004 webadmin").Keep)
	assert.False(t, decide(t, f, "3385; 1259 123008 TABLE finance ledger owner").Keep)
	assert.False(t, decide(t, f, "6662; 0 788811 TABLE DATA archives ap_rev_2004 webadmin").Keep)
}

func TestFilter_ExcludedTablePair(t *testing.T) {
	f := mustFilter(t, Config{
		Schemas:       []string{"payment"},
		ExcludeTables: []string{"payment.abocb_code"},
	}, nil)

	verdict := decide(t, f, "6662; 0 788811 TABLE DATA payment abocb_code payment")
	require.False(t, verdict.Keep)
	assert.Equal(t, DropReasonExcludedTable, verdict.Reason)

	// Only the data section is affected, not the table definition.
	assert.True(t, decide(t, f, "3385; 1259 123008 TABLE payment abocb_code payment").Keep)
	assert.True(t, decide(t, f, "6663; 0 788819 TABLE DATA payment abocb_renew payment").Keep)
}

func TestFilter_ExcludedPatternOverridesSchemaInclusion(t *testing.T) {
	f := mustFilter(t, Config{
		Schemas:             []string{"sales"},
		ExcludeTableRegexes: []string{`^sales\.`},
	}, nil)

	verdict := decide(t, f, "6662; 0 788811 TABLE DATA sales orders owner")
	require.False(t, verdict.Keep)
	assert.Equal(t, DropReasonExcludedPattern, verdict.Reason)

	// Patterns only apply to data sections.
	assert.True(t, decide(t, f, "3385; 1259 123008 TABLE sales orders owner").Keep)
}

func TestFilter_PatternOrderFirstMatchWins(t *testing.T) {
	f := mustFilter(t, Config{
		Schemas:             []string{"sales"},
		ExcludeTableRegexes: []string{`orders$`, `^sales\.`},
	}, nil)

	assert.False(t, decide(t, f, "6662; 0 788811 TABLE DATA sales orders owner").Keep)
	assert.False(t, decide(t, f, "6663; 0 788819 TABLE DATA sales invoices owner").Keep)
}

func TestFilter_InvalidPattern(t *testing.T) {
	_, err := NewFilter(Config{ExcludeTableRegexes: []string{"("}}, nil)
	assert.Error(t, err)
}

func TestFilter_InvalidExcludeTable(t *testing.T) {
	_, err := NewFilter(Config{ExcludeTables: []string{"unqualified"}}, nil)
	assert.Error(t, err)
}

func TestFilter_TriggerDependencyCascade(t *testing.T) {
	// A trigger in a kept schema whose procedure lives in an excluded
	// schema is dropped with it.
	deps := NewDependencyMap()
	deps.ensureTrigger("jdb", "www_to_reporting_logger").Add("pgq.logtriga")

	f := mustFilter(t, Config{Schemas: []string{"jdb"}}, deps)

	verdict := decide(t, f, "6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin")
	require.False(t, verdict.Keep)
	assert.Equal(t, DropReasonTriggerDependency, verdict.Reason)
}

func TestFilter_TriggerDependencySatisfied(t *testing.T) {
	deps := NewDependencyMap()
	deps.ensureTrigger("jdb", "local_logger").Add("jdb.log_change")

	f := mustFilter(t, Config{Schemas: []string{"jdb"}}, deps)

	assert.True(t, decide(t, f, "6237; 2620 15995621 TRIGGER jdb local_logger webadmin").Keep)
}

func TestFilter_TriggerWithoutDependencyContextIsKept(t *testing.T) {
	// Missing dependency context imposes no constraint.
	f := mustFilter(t, Config{Schemas: []string{"jdb"}}, NewDependencyMap())

	assert.True(t, decide(t, f, "6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin").Keep)
}

func TestFilter_UnclassifiedEntryBypassesRules(t *testing.T) {
	f := mustFilter(t, Config{Schemas: []string{"public"}}, nil)

	// Recognized kind, token shortfall: kept no matter the configuration.
	entry := ParseLine("6905; 0 0 SEQUENCE SET londiste")
	require.True(t, entry.Recognized)
	assert.True(t, f.Decide(entry).Keep)

	// Non-schema comments are unclassified as well.
	assert.True(t, decide(t, f, "7002; 0 0 COMMENT finance FUNCTION amortize(bigint) owner").Keep)
}
