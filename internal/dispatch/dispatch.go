// Package dispatch defines the command/response contract external
// collaborators (a TCP front end, a SQL parser, an HTTP gateway) use to
// drive the table service, and the Dispatcher that routes commands to
// it (SPEC_FULL.md §6).
package dispatch

import (
	"coredb/internal/dberr"
	"coredb/internal/predicate"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
	"coredb/internal/tableservice"
)

// Command is the closed set of operations external collaborators may
// submit to the core.
type Command interface{ isCommand() }

// CreateCommand creates a new table.
type CreateCommand struct {
	Name   string
	Schema schema.Schema
}

// InsertCommand appends one row to an existing table.
type InsertCommand struct {
	Name string
	Row  rowcodec.Row
}

// SelectCommand reads rows from a table, optionally filtered.
type SelectCommand struct {
	Name      string
	Predicate predicate.Predicate
}

// DropCommand removes a table entirely.
type DropCommand struct {
	Name string
}

// ExplainCommand is accepted by the contract but delegated to an
// external annex; the core always answers it with NotImplemented.
type ExplainCommand struct {
	InnerSQL string
}

// PingCommand is a liveness check that never touches the registry.
type PingCommand struct{}

func (CreateCommand) isCommand()  {}
func (InsertCommand) isCommand()  {}
func (SelectCommand) isCommand()  {}
func (DropCommand) isCommand()    {}
func (ExplainCommand) isCommand() {}
func (PingCommand) isCommand()    {}

// Response is the uniform result of dispatching a Command.
type Response struct {
	OK      bool
	Code    int
	Message string
	Columns []string
	Rows    []rowcodec.Row
}

func errResponse(err error) Response {
	kind := dberr.KindOf(err)
	return Response{OK: false, Code: kind.HTTPCode(), Message: err.Error()}
}

func okResponse() Response {
	return Response{OK: true, Code: 200}
}

// Dispatcher routes Commands to a tableservice.Service.
type Dispatcher struct {
	svc *tableservice.Service
}

// New builds a Dispatcher over svc.
func New(svc *tableservice.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch executes cmd and returns its Response. It never panics on a
// well-typed Command; an unrecognized Command type is itself reported
// through Response rather than a runtime panic.
func (d *Dispatcher) Dispatch(cmd Command) Response {
	switch c := cmd.(type) {
	case CreateCommand:
		if err := d.svc.CreateTable(c.Name, c.Schema); err != nil {
			return errResponse(err)
		}
		return okResponse()

	case InsertCommand:
		if err := d.svc.Insert(c.Name, c.Row); err != nil {
			return errResponse(err)
		}
		return okResponse()

	case SelectCommand:
		sc, rows, err := d.svc.Select(c.Name, c.Predicate)
		if err != nil {
			return errResponse(err)
		}
		resp := okResponse()
		resp.Columns = sc.Names()
		resp.Rows = rows
		return resp

	case DropCommand:
		if err := d.svc.DropTable(c.Name); err != nil {
			return errResponse(err)
		}
		return okResponse()

	case ExplainCommand:
		return errResponse(dberr.New(dberr.KindNotImplemented, "EXPLAIN is handled by an external annex, not the storage core"))

	case PingCommand:
		return okResponse()

	default:
		return errResponse(dberr.Newf(dberr.KindNotImplemented, "unrecognized command %T", cmd))
	}
}
