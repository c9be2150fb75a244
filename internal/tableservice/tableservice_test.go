package tableservice

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/internal/coltype"
	"coredb/internal/page"
	"coredb/internal/predicate"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
	"coredb/internal/tablefile"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	files, err := tablefile.New(dir)
	require.NoError(t, err)
	writer, err := files.NewPageWriter()
	require.NoError(t, err)
	pool := page.NewPool(64, writer)
	svc, err := New(files, pool, nil)
	require.NoError(t, err)
	return svc
}

func usersSchema() schema.Schema {
	return schema.Schema{
		{Name: "id", Type: coltype.Int},
		{Name: "name", Type: coltype.Varchar},
	}
}

func TestCreateInsertSelect(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.CreateTable("users", usersSchema()))
	require.NoError(t, svc.Insert("users", rowcodec.Row{"id": "1", "name": "Ada"}))
	require.NoError(t, svc.Insert("users", rowcodec.Row{"id": "2", "name": "Grace"}))

	_, rows, err := svc.Select("users", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Ada", rows[0]["name"])
	require.Equal(t, "Grace", rows[1]["name"])
}

func TestCreateTableTwiceFails(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("users", usersSchema()))
	err := svc.CreateTable("users", usersSchema())
	require.Error(t, err)
}

func TestInsertIntoMissingTableFails(t *testing.T) {
	svc := newTestService(t)
	err := svc.Insert("ghost", rowcodec.Row{"id": "1"})
	require.Error(t, err)
}

func TestDropTableThenOperationsFail(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("users", usersSchema()))
	require.NoError(t, svc.DropTable("users"))

	require.False(t, svc.TableExists("users"))
	err := svc.Insert("users", rowcodec.Row{"id": "1", "name": "x"})
	require.Error(t, err)

	_, _, err = svc.Select("users", nil)
	require.Error(t, err)
}

func TestSelectWithPredicate(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("users", usersSchema()))
	require.NoError(t, svc.Insert("users", rowcodec.Row{"id": "1", "name": "Ada"}))
	require.NoError(t, svc.Insert("users", rowcodec.Row{"id": "2", "name": "Grace"}))

	_, rows, err := svc.Select("users", predicate.Single{Column: "name", Op: predicate.Eq, Literal: "Grace"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Grace", rows[0]["name"])
}

func TestConcurrentCreateTableOnlyOneSucceeds(t *testing.T) {
	svc := newTestService(t)

	const n = 16
	var wg sync.WaitGroup
	successes := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := svc.CreateTable("race", usersSchema())
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestConcurrentInsertsPreserveOrder(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("seq", schema.Schema{{Name: "n", Type: coltype.Int}}))

	const k = 20
	var mu sync.Mutex
	var completionOrder []int
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := svc.Insert("seq", rowcodec.Row{"n": strconv.Itoa(i)})
			require.NoError(t, err)
			mu.Lock()
			completionOrder = append(completionOrder, i)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	_, rows, err := svc.Select("seq", nil)
	require.NoError(t, err)
	require.Len(t, rows, k)

	require.Len(t, completionOrder, k)
	var selectedOrder []int
	for _, row := range rows {
		n, err := strconv.Atoi(row["n"])
		require.NoError(t, err)
		selectedOrder = append(selectedOrder, n)
	}
	require.Equal(t, completionOrder, selectedOrder)
}

// TestConcurrentDropIsolation verifies testable property #7: a
// DropTable racing with concurrent Inserts on the same table must
// leave the table either absent (all in-flight inserts lost) or
// present with an insertion-ordered prefix of the accepted inserts —
// never a half-dropped or reordered state.
func TestConcurrentDropIsolation(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("seq", schema.Schema{{Name: "n", Type: coltype.Int}}))

	const k = 20
	var mu sync.Mutex
	var completionOrder []int
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := svc.Insert("seq", rowcodec.Row{"n": strconv.Itoa(i)}); err != nil {
				return
			}
			mu.Lock()
			completionOrder = append(completionOrder, i)
			mu.Unlock()
		}(i)
	}

	var dropErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		dropErr = svc.DropTable("seq")
	}()

	wg.Wait()
	require.NoError(t, dropErr)

	exists := svc.TableExists("seq")
	_, rows, err := svc.Select("seq", nil)

	if exists {
		require.NoError(t, err)
		require.LessOrEqual(t, len(rows), len(completionOrder))
		var selectedOrder []int
		for _, row := range rows {
			n, err := strconv.Atoi(row["n"])
			require.NoError(t, err)
			selectedOrder = append(selectedOrder, n)
		}
		require.Equal(t, completionOrder[:len(selectedOrder)], selectedOrder)
	} else {
		require.Error(t, err)
	}
}

func TestSelectReturnsDefensiveCopies(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CreateTable("users", usersSchema()))
	require.NoError(t, svc.Insert("users", rowcodec.Row{"id": "1", "name": "Ada"}))

	_, rows, err := svc.Select("users", nil)
	require.NoError(t, err)
	rows[0]["name"] = "mutated"

	_, rows2, err := svc.Select("users", nil)
	require.NoError(t, err)
	require.Equal(t, "Ada", rows2[0]["name"])
}

func TestStartupScanReloadsExistingTables(t *testing.T) {
	dir := t.TempDir()
	files, err := tablefile.New(dir)
	require.NoError(t, err)
	writer, err := files.NewPageWriter()
	require.NoError(t, err)

	svc1, err := New(files, page.NewPool(64, writer), nil)
	require.NoError(t, err)
	require.NoError(t, svc1.CreateTable("users", usersSchema()))
	require.NoError(t, svc1.Insert("users", rowcodec.Row{"id": "1", "name": "Ada"}))

	svc2, err := New(files, page.NewPool(64, writer), nil)
	require.NoError(t, err)
	require.True(t, svc2.TableExists("users"))

	_, rows, err := svc2.Select("users", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
