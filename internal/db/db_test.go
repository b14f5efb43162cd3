package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inverrors "github.com/anstrom/netinventory/internal/errors"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewDB(sqlx.NewDb(conn, "postgres"), nil), mock
}

func TestSanitizeDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code inverrors.ErrorCode
	}{
		{"no rows", sql.ErrNoRows, inverrors.CodeNotFound},
		{"wrapped no rows", fmt.Errorf("get: %w", sql.ErrNoRows), inverrors.CodeNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, inverrors.CodeConflict},
		{"foreign key", &pq.Error{Code: "23503"}, inverrors.CodeValidation},
		{"not null", &pq.Error{Code: "23502"}, inverrors.CodeValidation},
		{"check", &pq.Error{Code: "23514"}, inverrors.CodeValidation},
		{"query canceled", &pq.Error{Code: "57014"}, inverrors.CodeCanceled},
		{"admin shutdown", &pq.Error{Code: "57P01"}, inverrors.CodeDatabaseConnection},
		{"connection failure", &pq.Error{Code: "08006"}, inverrors.CodeDatabaseConnection},
		{"other pq error", &pq.Error{Code: "42P01"}, inverrors.CodeDatabaseQuery},
		{"deadline", context.DeadlineExceeded, inverrors.CodeDatabaseTimeout},
		{"plain error", errors.New("boom"), inverrors.CodeDatabaseQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sanitizeDBError("test op", tt.err)
			require.Error(t, err)
			assert.True(t, inverrors.IsCode(err, tt.code), "got %s", inverrors.GetCode(err))

			var dbErr *inverrors.DatabaseError
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, "test op", dbErr.Operation)
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, sanitizeDBError("noop", nil))
	})

	t.Run("message hides driver detail", func(t *testing.T) {
		err := sanitizeDBError("insert", &pq.Error{Code: "23505", Message: "duplicate key value violates secret_idx"})
		assert.NotContains(t, err.Error(), "secret_idx")
	})
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database = "inventory"
	cfg.Username = "scanner"
	cfg.Password = "hunter2"

	assert.Equal(t,
		"host=localhost port=5432 dbname=inventory user=scanner password=hunter2 sslmode=disable",
		cfg.DSN())

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
}

func TestIPAddr_Scan(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{"plain string", "192.168.1.10", "192.168.1.10", false},
		{"bytes", []byte("10.0.0.1"), "10.0.0.1", false},
		{"inet with mask", "10.0.0.1/32", "10.0.0.1", false},
		{"ipv6", "fe80::1", "fe80::1", false},
		{"nil", nil, "", false},
		{"garbage", "not-an-ip", "", true},
		{"wrong type", 42, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ip IPAddr
			err := ip.Scan(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip.String())
		})
	}
}

func TestMACAddr(t *testing.T) {
	var mac MACAddr
	require.NoError(t, mac.Scan("AA:BB:CC:00:11:22"))
	assert.Equal(t, "aa:bb:cc:00:11:22", mac.String())

	v, err := mac.Value()
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:00:11:22", v)

	var empty MACAddr
	out, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(out))

	assert.Error(t, new(MACAddr).Scan("zz:zz"))
}

func TestJSONB(t *testing.T) {
	t.Run("scan and value", func(t *testing.T) {
		var j JSONB
		require.NoError(t, j.Scan([]byte(`{"job_id":"abc","progress":40}`)))
		assert.Equal(t, "abc", j["job_id"])
		assert.InDelta(t, 40, j["progress"], 0)

		v, err := j.Value()
		require.NoError(t, err)
		assert.JSONEq(t, `{"job_id":"abc","progress":40}`, string(v.([]byte)))
	})

	t.Run("nil encodes as empty object", func(t *testing.T) {
		var j JSONB
		v, err := j.Value()
		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), v)
	})

	t.Run("merge overlays keys", func(t *testing.T) {
		base := JSONB{"os": "Linux", "owner": "ops"}
		merged := base.Merge(map[string]any{"os": "FreeBSD"})
		assert.Equal(t, JSONB{"os": "FreeBSD", "owner": "ops"}, merged)
		assert.Equal(t, "Linux", base["os"])
	})

	t.Run("bad json", func(t *testing.T) {
		var j JSONB
		assert.Error(t, j.Scan("{"))
	})
}
