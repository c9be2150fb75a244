package tablefile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"coredb/internal/dberr"
	"coredb/internal/page"
)

const pageCacheDir = ".pagecache"

// PageWriter persists evicted or explicitly flushed dirty pages to a
// side directory under the manager's root, giving internal/page.Pool a
// genuinely functional Writer rather than a stub (SPEC_FULL.md §9 Open
// Question 3).
type PageWriter struct {
	root string
}

// NewPageWriter returns a PageWriter rooted under manager's storage
// directory.
func (m *Manager) NewPageWriter() (*PageWriter, error) {
	dir := filepath.Join(m.root, pageCacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindIoError, "create page cache directory", err)
	}
	return &PageWriter{root: dir}, nil
}

func (w *PageWriter) pagePath(id page.ID) string {
	tableDir := filepath.Join(w.root, id.Table)
	return filepath.Join(tableDir, fmt.Sprintf("%d.page", id.Number))
}

// WritePage implements page.Writer by atomically persisting p's encoded
// bytes to this writer's page cache directory.
func (w *PageWriter) WritePage(p *page.Page) error {
	tableDir := filepath.Join(w.root, p.ID.Table)
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return dberr.Wrap(dberr.KindIoError, "create page cache table directory", err)
	}
	buf, err := p.Encode()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(w.pagePath(p.ID), bytes.NewReader(buf)); err != nil {
		return dberr.Wrap(dberr.KindIoError, fmt.Sprintf("flush page %v", p.ID), err)
	}
	return nil
}
