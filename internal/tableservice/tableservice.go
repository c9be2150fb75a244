// Package tableservice implements the table service (SPEC_FULL.md §4.E):
// the concurrent in-memory table registry and the create/insert/select/
// drop operations, orchestrating durability through internal/tablefile
// and cache warmth through internal/page.
package tableservice

import (
	"sync"

	"go.uber.org/zap"

	"coredb/internal/dberr"
	"coredb/internal/page"
	"coredb/internal/predicate"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
	"coredb/internal/tablefile"
)

// entry is one table's live state. mu serializes every mutation against
// this table; dropped lets a goroutine holding a stale *entry pointer
// detect that the table has since been removed.
type entry struct {
	mu      sync.Mutex
	table   tablefile.Table
	dropped bool
}

// Service is the process-wide table registry.
type Service struct {
	files  *tablefile.Manager
	pool   *page.Pool
	logger *zap.Logger

	mu       sync.Mutex
	tables   map[string]*entry
	creating map[string]bool
}

// New constructs a Service and performs the startup scan: every table
// file under files' root is loaded once into the registry. A table
// file that fails to decode is logged and skipped rather than failing
// startup.
func New(files *tablefile.Manager, pool *page.Pool, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		files:    files,
		pool:     pool,
		logger:   logger,
		tables:   make(map[string]*entry),
		creating: make(map[string]bool),
	}

	names, err := files.ListTables()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		t, err := files.ReadTable(name)
		if err != nil {
			logger.Warn("skipping corrupt table file on startup", zap.String("table", name), zap.Error(err))
			continue
		}
		if t == nil {
			continue
		}
		s.tables[name] = &entry{table: *t}
	}
	return s, nil
}

// CreateTable creates a new, empty table with the given schema. Exactly
// one of any concurrent CreateTable calls for the same name succeeds;
// the rest fail with dberr.KindAlreadyExists.
func (s *Service) CreateTable(name string, sc schema.Schema) error {
	if err := schema.ValidateName(name); err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.tables[name]; exists || s.creating[name] {
		s.mu.Unlock()
		return dberr.Newf(dberr.KindAlreadyExists, "table %q already exists", name)
	}
	s.creating[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.creating, name)
		s.mu.Unlock()
	}()

	t := tablefile.Table{Name: name, Schema: sc.Clone(), Rows: nil}
	if err := s.files.WriteTable(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.tables[name] = &entry{table: t}
	s.mu.Unlock()
	return nil
}

// lookup returns the live entry for name, or nil if no such table is
// currently registered.
func (s *Service) lookup(name string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[name]
}

// Insert appends row to the named table. The in-memory state is only
// updated after the durable write succeeds; on failure the table is
// left exactly as it was (SPEC_FULL.md §9 Open Question 1).
func (s *Service) Insert(name string, row rowcodec.Row) error {
	e := s.lookup(name)
	if e == nil {
		return dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dropped {
		return dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}

	for _, col := range e.table.Schema {
		if _, ok := row[col.Name]; !ok {
			return dberr.Newf(dberr.KindMissingColumn, "row is missing column %q", col.Name)
		}
	}

	// Keep the row in the same canonical, schema-only form the table file
	// decodes to, so the in-memory copy matches what is on disk.
	encoded, err := rowcodec.EncodeRow(row, e.table.Schema)
	if err != nil {
		return err
	}
	stored, _, err := rowcodec.DecodeRow(encoded, e.table.Schema)
	if err != nil {
		return err
	}

	newRows := make([]rowcodec.Row, len(e.table.Rows), len(e.table.Rows)+1)
	copy(newRows, e.table.Rows)
	newRows = append(newRows, stored)

	newTable := tablefile.Table{Name: e.table.Name, Schema: e.table.Schema, Rows: newRows}
	if err := s.files.WriteTable(newTable); err != nil {
		return err
	}

	e.table = newTable
	s.pool.InvalidateTable(name)
	return nil
}

// Select returns a defensive, filtered snapshot of the named table's
// rows, along with its column order. It opportunistically warms the
// table's first page in the buffer pool; correctness never depends on
// that warm-up succeeding.
func (s *Service) Select(name string, pred predicate.Predicate) (schema.Schema, []rowcodec.Row, error) {
	e := s.lookup(name)
	if e == nil {
		return nil, nil, dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}

	e.mu.Lock()
	if e.dropped {
		e.mu.Unlock()
		return nil, nil, dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}
	sc := e.table.Schema.Clone()
	rows := make([]rowcodec.Row, len(e.table.Rows))
	copy(rows, e.table.Rows)
	e.mu.Unlock()

	s.warmFirstPage(name, sc, rows)

	out := make([]rowcodec.Row, 0, len(rows))
	for _, row := range rows {
		clone := row.Clone()
		ok, err := predicate.Eval(pred, clone, sc)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out = append(out, clone)
		}
	}
	return sc, out, nil
}

// warmFirstPage loads page 0 for name into the buffer pool so that the
// cache-first read path is genuinely exercised, matching SPEC_FULL.md
// §2's description of the data flow. Any failure here is swallowed:
// the registry snapshot above is always the source of truth.
func (s *Service) warmFirstPage(name string, sc schema.Schema, rows []rowcodec.Row) {
	id := page.ID{Table: name, Number: 0}
	_, _ = s.pool.GetOrLoad(id, func() (*page.Page, error) {
		p := page.New(id)
		for _, row := range rows {
			encoded, err := rowcodec.EncodeRow(row, sc)
			if err != nil {
				return nil, err
			}
			candidate := append(append([][]byte{}, p.Records...), encoded)
			p.Records = candidate
			if _, err := p.Encode(); err != nil {
				p.Records = candidate[:len(candidate)-1]
				break
			}
		}
		return p, nil
	})
}

// DropTable removes the named table from the registry and deletes its
// file, within the same critical section so no caller ever observes a
// half-dropped table.
func (s *Service) DropTable(name string) error {
	e := s.lookup(name)
	if e == nil {
		return dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dropped {
		return dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}

	if _, err := s.files.DeleteTable(name); err != nil {
		return err
	}
	e.dropped = true
	s.pool.InvalidateTable(name)

	s.mu.Lock()
	delete(s.tables, name)
	s.mu.Unlock()
	return nil
}

// TableExists reports whether name currently names a live table.
func (s *Service) TableExists(name string) bool {
	e := s.lookup(name)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.dropped
}

// Schema returns a copy of the named table's current schema.
func (s *Service) Schema(name string) (schema.Schema, error) {
	e := s.lookup(name)
	if e == nil {
		return nil, dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dropped {
		return nil, dberr.Newf(dberr.KindNotFound, "table %q does not exist", name)
	}
	return e.table.Schema.Clone(), nil
}

// ListTables returns the names of every currently live table.
func (s *Service) ListTables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}
