package toc

import (
	"strconv"
	"strings"
)

// kindMarkers are the keywords identifying catalog entries eligible for
// filtering. A line carrying none of them is passed through verbatim.
// TABLE DATA, OPERATOR CLASS, SEQUENCE OWNED BY, SEQUENCE SET and
// FK CONSTRAINT are covered by their leading keyword here; the classifier
// disambiguates them from the token layout.
var kindMarkers = []string{
	"SCHEMA",
	"ACL",
	"TABLE",
	"TYPE",
	"FUNCTION",
	"OPERATOR",
	"CAST",
	"SEQUENCE",
	"VIEW",
	"COMMENT",
	"DEFAULT",
	"INDEX",
	"TRIGGER",
	"DOMAIN",
	"CONSTRAINT",
}

// hasKindMarker reports whether a listing line names a recognized entry kind.
func hasKindMarker(line string) bool {
	for _, marker := range kindMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// ParseLine tokenizes one catalog listing line into an Entry.
//
// The expected shape is "<id>; <dumpId> <oid> KIND ...". Lines that do not
// match it, including blank lines and pg_restore's own comment lines, come
// back with Recognized unset so the rewriter passes them through untouched.
// Field counts beyond the numeric header are not validated here; each
// kind's extraction rule tolerates short lines on its own.
func ParseLine(line string) Entry {
	entry := Entry{Raw: line}

	if strings.TrimSpace(line) == "" {
		return entry
	}
	if !hasKindMarker(line) {
		return entry
	}

	fields := strings.Fields(line)
	if len(fields) < 4 {
		return entry
	}

	idToken, ok := strings.CutSuffix(fields[0], ";")
	if !ok {
		return entry
	}

	id, err := strconv.Atoi(idToken)
	if err != nil {
		return entry
	}
	dumpID, err := strconv.Atoi(fields[1])
	if err != nil {
		return entry
	}

	entry.ID = id
	entry.DumpID = dumpID
	entry.Tokens = fields[3:]
	entry.Recognized = true
	return entry
}

// Classify derives the semantic schema, and table where applicable, from an
// entry's kind-specific token layout.
//
// The rules mirror the catalog format emitted by pg_restore -l:
//
//	3; 2615 122814 SCHEMA - pgq postgres
//	6893; 0 0 ACL - pgq postgres
//	3385; 1259 123008 TABLE londiste subscriber_table payment
//	2647; 2616 1487309 OPERATOR CLASS public btree_ip4_ops postgres
//	6662; 0 788811 TABLE DATA payment abocb_code payment
//	6904; 0 0 SEQUENCE OWNED BY londiste provider_seq_nr_seq payment
//	6014; 2606 56535 FK CONSTRAINT archives rev_2001_id_compte_fkey webadmin
//
// A token shortfall is not an error: the entry is reported unclassified and
// the filter keeps it unconditionally.
func Classify(entry Entry) Classification {
	if !entry.Recognized || len(entry.Tokens) < 4 {
		return Classification{}
	}

	a, b, c, d := entry.Tokens[0], entry.Tokens[1], entry.Tokens[2], entry.Tokens[3]

	switch {
	case a == "ACL" || a == "SCHEMA":
		if b == "-" {
			return Classification{Schema: c, OK: true}
		}
		return Classification{Schema: b, OK: true}

	case a == "COMMENT":
		// Only schema comments carry a usable schema token; comments on
		// other object kinds are left unfiltered.
		if b == "-" && c == "SCHEMA" {
			return Classification{Schema: d, OK: true}
		}
		return Classification{}

	case b == "CLASS":
		return Classification{Schema: c, OK: true}

	case b == "DATA":
		return Classification{Schema: c, Table: d, OK: true}

	case a == "SEQUENCE":
		if b == "OWNED" && c == "BY" {
			return Classification{Schema: d, OK: true}
		}
		if b == "SET" {
			return Classification{Schema: c, OK: true}
		}
		return Classification{Schema: b, OK: true}

	case a == "FK" && b == "CONSTRAINT":
		return Classification{Schema: c, OK: true}

	default:
		return Classification{Schema: b, OK: true}
	}
}
