package netserver

import (
	"fmt"
	"strings"

	"coredb/internal/coltype"
	"coredb/internal/dispatch"
	"coredb/internal/predicate"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
)

// parseCommand decodes one line of the server's minimal line protocol
// into a dispatch.Command. This is deliberately not a SQL parser: full
// SQL parsing is an external collaborator's concern (SPEC_FULL.md §1),
// and this protocol exists only to give the TCP front end something
// concrete to drive internal/dispatch with.
//
// Grammar:
//
//	PING
//	CREATE <table> <col>:<TYPE>[,<col>:<TYPE>...]
//	INSERT <table> <col>=<value>[,<col>=<value>...]
//	SELECT <table> [WHERE <col> <op> <value>]
//	DROP <table>
func parseCommand(line string) (dispatch.Command, error) {
	fields := strings.SplitN(line, " ", 2)
	verb := strings.ToUpper(fields[0])
	var rest string
	if len(fields) > 1 {
		rest = fields[1]
	}

	switch verb {
	case "PING":
		return dispatch.PingCommand{}, nil

	case "CREATE":
		parts := strings.SplitN(rest, " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: CREATE <table> <col:TYPE,...>")
		}
		sc, err := parseSchema(parts[1])
		if err != nil {
			return nil, err
		}
		return dispatch.CreateCommand{Name: parts[0], Schema: sc}, nil

	case "INSERT":
		parts := strings.SplitN(rest, " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: INSERT <table> <col=value,...>")
		}
		row, err := parseRow(parts[1])
		if err != nil {
			return nil, err
		}
		return dispatch.InsertCommand{Name: parts[0], Row: row}, nil

	case "SELECT":
		parts := strings.SplitN(rest, " WHERE ", 2)
		cmd := dispatch.SelectCommand{Name: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			pred, err := parseWhere(parts[1])
			if err != nil {
				return nil, err
			}
			cmd.Predicate = pred
		}
		return cmd, nil

	case "DROP":
		if rest == "" {
			return nil, fmt.Errorf("usage: DROP <table>")
		}
		return dispatch.DropCommand{Name: rest}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", verb)
	}
}

func parseSchema(spec string) (schema.Schema, error) {
	entries := strings.Split(spec, ",")
	sc := make(schema.Schema, 0, len(entries))
	for _, e := range entries {
		kv := strings.SplitN(e, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid column spec %q, want name:TYPE", e)
		}
		typ, err := parseTypeName(kv[1])
		if err != nil {
			return nil, err
		}
		sc = append(sc, schema.Column{Name: strings.TrimSpace(kv[0]), Type: typ})
	}
	return sc, nil
}

func parseTypeName(name string) (coltype.Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INT":
		return coltype.Int, nil
	case "VARCHAR":
		return coltype.Varchar, nil
	case "BOOLEAN":
		return coltype.Boolean, nil
	case "TIMESTAMP":
		return coltype.Timestamp, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", name)
	}
}

func parseRow(spec string) (rowcodec.Row, error) {
	entries := strings.Split(spec, ",")
	row := make(rowcodec.Row, len(entries))
	for _, e := range entries {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid field %q, want name=value", e)
		}
		row[strings.TrimSpace(kv[0])] = kv[1]
	}
	return row, nil
}

func parseWhere(clause string) (predicate.Predicate, error) {
	parts := strings.Fields(clause)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid WHERE clause %q, want <col> <op> <value>", clause)
	}
	op := predicate.Op(parts[1])
	switch op {
	case predicate.Eq, predicate.Neq, predicate.Gt, predicate.Lt, predicate.Gte, predicate.Lte, predicate.Like:
	default:
		return nil, fmt.Errorf("unknown operator %q", parts[1])
	}
	return predicate.Single{Column: parts[0], Op: op, Literal: parts[2]}, nil
}

// formatResponse renders a dispatch.Response as text for the client: a
// single line for an error or a row-less result, otherwise a header line
// of column names followed by one line per row.
func formatResponse(resp dispatch.Response) string {
	if !resp.OK {
		return fmt.Sprintf("ERR %d %s", resp.Code, resp.Message)
	}
	if resp.Columns == nil {
		return "OK"
	}
	lines := make([]string, 0, len(resp.Rows)+1)
	lines = append(lines, "OK "+strings.Join(resp.Columns, ","))
	for _, row := range resp.Rows {
		values := make([]string, len(resp.Columns))
		for i, col := range resp.Columns {
			values[i] = row[col]
		}
		lines = append(lines, strings.Join(values, ","))
	}
	return strings.Join(lines, "\n")
}
