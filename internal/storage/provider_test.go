package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"mlbstats/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn behaves according to the DSN it was opened with.
type fakeConn struct {
	pingErr error
	closed  *int32
}

func (c *fakeConn) Query(ctx context.Context, sql string, params map[string]any) (Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Ping(ctx context.Context) error { return c.pingErr }

func (c *fakeConn) Close(ctx context.Context) error {
	atomic.AddInt32(c.closed, 1)
	return nil
}

var fakeClosed = map[string]*int32{
	"ok":        new(int32),
	"bad-ping":  new(int32),
	"fn-errors": new(int32),
}

func init() {
	Register("fake", func(ctx context.Context, dsn string) (Conn, error) {
		switch dsn {
		case "unreachable":
			return nil, errors.New("dial tcp 127.0.0.1:1: connection refused")
		case "bad-ping":
			return &fakeConn{pingErr: errors.New("server closed the connection"), closed: fakeClosed[dsn]}, nil
		default:
			return &fakeConn{closed: fakeClosed[dsn]}, nil
		}
	})
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(config.Config{})
	var missing *config.MissingSettingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, config.EnvDatabaseURL, missing.Setting)

	_, err = NewProvider(config.Config{DatabaseURL: "x", StorageKind: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "oracle"`)

	p, err := NewProvider(config.Config{DatabaseURL: "ok", StorageKind: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "fake", p.Kind())
}

func TestOpenConnectFailure(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(config.Config{DatabaseURL: "unreachable", StorageKind: "fake"})
	require.NoError(t, err)

	conn, err := p.Open(context.Background())
	assert.Nil(t, conn)
	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "fake", cerr.Kind)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOpenLivenessFailureClosesConnection(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(config.Config{DatabaseURL: "bad-ping", StorageKind: "fake"})
	require.NoError(t, err)

	conn, err := p.Open(context.Background())
	assert.Nil(t, conn)
	var cerr *ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "liveness check")
	assert.Equal(t, int32(1), atomic.LoadInt32(fakeClosed["bad-ping"]))
}

func TestWithClosesOnError(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(config.Config{DatabaseURL: "fn-errors", StorageKind: "fake"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = p.With(context.Background(), func(c Conn) error {
		require.NotNil(t, c)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(fakeClosed["fn-errors"]))
}

func TestRegisterPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { Register("fake", func(context.Context, string) (Conn, error) { return nil, nil }) })
	assert.Panics(t, func() { Register("nil-factory", nil) })
	assert.Contains(t, Kinds(), "fake")
}
