package toc

import (
	"strings"
)

// Markers recognized while scanning a schema-only dump.
const (
	searchPathPrefix     = "SET search_path = "
	createTriggerKeyword = "CREATE TRIGGER"
	executeProcKeyword   = "EXECUTE PROCEDURE"
	returnsTriggerMarker = `RETURNS "trigger"`
)

// scanState carries the line scanner's context between lines: the schema
// established by the most recent search_path directive and the trigger whose
// definition is currently open, if any. The trigger keeps the schema it was
// created under even if a search_path directive moves the context before
// its definition closes.
type scanState struct {
	schema        string
	trigger       string
	triggerSchema string
}

// ExtractDependencies scans the text of a schema-only dump and builds the
// trigger dependency map used to cascade schema exclusion onto triggers.
//
// A trigger can invoke a procedure hosted in a schema that is being filtered
// out of the restore; in that case the trigger entry itself must be dropped
// from the catalog. The dump contains definitions such as:
//
//	CREATE TRIGGER www_to_reporting_logger
//	AFTER INSERT OR DELETE OR UPDATE ON daily_journal
//	FOR EACH ROW
//	EXECUTE PROCEDURE pgq.logtriga('www_to_reporting', 'kkvvvvvvvvv', 'jdb.daily_journal');
//
// The scanner tracks the active search_path to know which schema each
// CREATE TRIGGER belongs to, collects the procedures invoked while a trigger
// definition is open, and closes the definition at the statement terminator.
// The terminator check runs after procedure extraction so that a one-line
// trigger body is handled.
//
// Unqualified procedure names are qualified with the trigger's schema, not
// the invoked function's declaring schema, even though the declaring schema
// is cached from RETURNS "trigger" signatures. See DependencyMap.funcSchemas.
func ExtractDependencies(schemaDump string) *DependencyMap {
	deps := NewDependencyMap()
	state := scanState{schema: "public"}

	for _, line := range strings.Split(schemaDump, "\n") {
		if strings.Contains(line, searchPathPrefix) {
			state = scanSearchPath(line, state, deps)
			// A search_path line never opens a trigger definition.
			continue
		}

		if strings.Contains(line, createTriggerKeyword) {
			state = scanCreateTrigger(line, state, deps)
		}

		if strings.Contains(line, returnsTriggerMarker) {
			scanTriggerFunction(line, state, deps)
		}

		if state.trigger != "" {
			scanProcedureCall(line, state, deps)

			if strings.Contains(line, ";") {
				state.trigger = ""
			}
		}
	}

	return deps
}

// scanSearchPath updates the current schema from a search_path directive.
// Only the first component of the path is meaningful for trigger ownership.
func scanSearchPath(line string, state scanState, deps *DependencyMap) scanState {
	rest := line[strings.Index(line, searchPathPrefix)+len(searchPathPrefix):]
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")

	if first, _, found := strings.Cut(rest, ", "); found {
		state.schema = first
	} else {
		state.schema = rest
	}

	deps.ensureSchema(state.schema)
	return state
}

// scanCreateTrigger opens a trigger definition context and registers an
// empty procedure list under the current schema.
func scanCreateTrigger(line string, state scanState, deps *DependencyMap) scanState {
	rest := strings.TrimSpace(line[strings.Index(line, createTriggerKeyword)+len(createTriggerKeyword):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return state
	}

	state.trigger = fields[0]
	state.triggerSchema = state.schema
	deps.ensureTrigger(state.triggerSchema, state.trigger)
	return state
}

// scanTriggerFunction caches the declaring schema of a function returning
// "trigger", e.g.:
//
//	CREATE FUNCTION partition_board_log() RETURNS "trigger"
//
// The cache is vestigial; qualification always uses the trigger's schema.
func scanTriggerFunction(line string, state scanState, deps *DependencyMap) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return
	}
	name := strings.Trim(fields[2], "()")
	deps.funcSchemas[name] = state.schema
}

// scanProcedureCall records the procedure invoked by the open trigger
// definition, qualifying unqualified names with the trigger's schema.
func scanProcedureCall(line string, state scanState, deps *DependencyMap) {
	start := strings.Index(line, executeProcKeyword)
	if start < 0 {
		return
	}
	start += len(executeProcKeyword)

	open := strings.Index(line[start:], "(")
	if open < 0 {
		return
	}

	name := strings.TrimSpace(line[start : start+open])
	if name == "" {
		return
	}

	if !strings.Contains(name, ".") {
		name = state.triggerSchema + "." + name
	}

	deps.ensureTrigger(state.triggerSchema, state.trigger).Add(name)
}
