package toc

import (
	"strings"
)

// commentPrefix neutralizes a catalog line without removing it. pg_restore
// treats ";"-prefixed lines as comments, and keeping the line in place
// preserves the ordinal positions downstream tooling may rely on.
const commentPrefix = ";"

// Rewrite reassembles a catalog listing, commenting out every entry the
// filter drops and reproducing all other lines byte for byte in their
// original order. With an empty filter configuration the output equals the
// input exactly.
func Rewrite(listing string, filter *Filter) (string, *RewriteStats) {
	lines := strings.Split(listing, "\n")
	out := make([]string, 0, len(lines))

	stats := &RewriteStats{
		Lines:   len(lines),
		Reasons: make(map[DropReason]int),
	}

	for _, line := range lines {
		entry := ParseLine(line)
		if !entry.Recognized {
			out = append(out, line)
			continue
		}

		stats.Entries++
		verdict := filter.Decide(entry)
		if verdict.Keep {
			stats.Kept++
			out = append(out, line)
			continue
		}

		stats.Dropped++
		stats.Reasons[verdict.Reason]++
		out = append(out, commentPrefix+line)
	}

	// Joining restores the source's own line terminators, including the
	// trailing one, without appending an extra blank line.
	return strings.Join(out, "\n"), stats
}
