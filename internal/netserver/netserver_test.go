package netserver

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coredb/internal/dispatch"
	"coredb/internal/page"
	"coredb/internal/tablefile"
	"coredb/internal/tableservice"
)

func TestServerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	files, err := tablefile.New(dir)
	require.NoError(t, err)
	writer, err := files.NewPageWriter()
	require.NoError(t, err)
	svc, err := tableservice.New(files, page.NewPool(64, writer), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(addr, dispatch.New(svc), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)

	send := func(line string) string {
		_, werr := conn.Write([]byte(line + "\n"))
		require.NoError(t, werr)
		resp, rerr := reader.ReadString('\n')
		require.NoError(t, rerr)
		return resp
	}

	require.Contains(t, send("PING"), "OK")
	require.Contains(t, send("CREATE users id:INT,name:VARCHAR"), "OK")
	require.Contains(t, send("INSERT users id=1,name=Ada"), "OK")

	_, werr := conn.Write([]byte("SELECT users\n"))
	require.NoError(t, werr)
	header, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, header, "OK id,name")
	row, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, row, "1,Ada")

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
