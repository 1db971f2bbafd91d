package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Trigger(t *testing.T) {
	entry := ParseLine("6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin")

	require.True(t, entry.Recognized)
	assert.Equal(t, 6236, entry.ID)
	assert.Equal(t, 2620, entry.DumpID)
	assert.Equal(t, []string{"TRIGGER", "jdb", "www_to_reporting_logger", "webadmin"}, entry.Tokens)
	assert.Equal(t, "6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin", entry.Raw)
}

func TestParseLine_Blank(t *testing.T) {
	for _, line := range []string{"", "   ", "\t"} {
		entry := ParseLine(line)
		assert.False(t, entry.Recognized)
		assert.Equal(t, line, entry.Raw)
	}
}

func TestParseLine_NoKindMarker(t *testing.T) {
	entry := ParseLine("; Archive created at 2009-03-30 17:46:35")
	assert.False(t, entry.Recognized)
}

func TestParseLine_MalformedHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing semicolon", "6236 2620 15995620 TRIGGER jdb logger webadmin"},
		{"non numeric id", "abc; 2620 15995620 TRIGGER jdb logger webadmin"},
		{"non numeric dump id", "6236; abc 15995620 TRIGGER jdb logger webadmin"},
		{"too few fields", "6236; TRIGGER jdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ParseLine(tt.line)
			assert.False(t, entry.Recognized)
			assert.Equal(t, tt.line, entry.Raw)
		})
	}
}

func TestClassify_KindTable(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		schema string
		table  string
	}{
		{"schema placeholder", "3; 2615 122814 SCHEMA - pgq postgres", "pgq", ""},
		{"acl placeholder", "6893; 0 0 ACL - pgq postgres", "pgq", ""},
		{"acl direct", "6894; 0 0 ACL payment abocb_code payment", "payment", ""},
		{"schema comment", "7001; 0 0 COMMENT - SCHEMA payment postgres", "payment", ""},
		{"operator class", "2647; 2616 1487309 OPERATOR CLASS public btree_ip4_ops postgres", "public", ""},
		{"table data", "6662; 0 788811 TABLE DATA payment abocb_code payment", "payment", "abocb_code"},
		{"sequence", "3380; 1259 122980 SEQUENCE londiste provider_seq_nr_seq payment", "londiste", ""},
		{"sequence owned by", "6904; 0 0 SEQUENCE OWNED BY londiste provider_seq_nr_seq payment", "londiste", ""},
		{"sequence set", "6905; 0 0 SEQUENCE SET londiste provider_seq_nr_seq payment", "londiste", ""},
		{"fk constraint", "6014; 2606 56535 FK CONSTRAINT archives rev_2001_id_compte_fkey webadmin", "archives", ""},
		{"table", "3385; 1259 123008 TABLE londiste subscriber_table payment", "londiste", ""},
		{"function", "142; 1255 122813 FUNCTION public txid_visible_in_snapshot(bigint, txid_snapshot) postgres", "public", ""},
		{"operator", "2526; 2617 1487283 OPERATOR public # postgres", "public", ""},
		{"cast", "3961; 2605 1487223 CAST pg_catalog CAST (cidr AS public.ip4r)", "pg_catalog", ""},
		{"type", "1118; 1247 122925 TYPE pgq ret_batch_event postgres", "pgq", ""},
		{"trigger", "6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin", "jdb", ""},
		{"index", "4656; 1259 56340 INDEX archives ap_rev_2004 webadmin", "archives", ""},
		{"default", "4301; 2604 122984 DEFAULT londiste nr payment", "londiste", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ParseLine(tt.line)
			require.True(t, entry.Recognized, "line should parse: %s", tt.line)

			class := Classify(entry)
			require.True(t, class.OK)
			assert.Equal(t, tt.schema, class.Schema)
			assert.Equal(t, tt.table, class.Table)
		})
	}
}

func TestClassify_NonSchemaComment(t *testing.T) {
	entry := ParseLine("7002; 0 0 COMMENT public FUNCTION upper(ip4r) postgres")
	require.True(t, entry.Recognized)

	class := Classify(entry)
	assert.False(t, class.OK)
}

func TestClassify_TokenShortfall(t *testing.T) {
	// Recognized kind but too few tokens for any extraction rule.
	entry := ParseLine("6905; 0 0 SEQUENCE SET londiste")
	require.True(t, entry.Recognized)

	class := Classify(entry)
	assert.False(t, class.OK)
}

func TestClassify_Unrecognized(t *testing.T) {
	class := Classify(Entry{Raw: "not an entry"})
	assert.False(t, class.OK)
}
