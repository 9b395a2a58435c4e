package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/suparena/docproxy/query"
)

func memoryBackend(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("DOCPROXY_BACKEND", "memory")
	t.Setenv("DOCPROXY_CONTAINER_ID", "orders")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"open", "open"},
		{`"42"`, "42"},
		{"42", float64(42)},
		{"true", true},
		{"null", nil},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, parseValue(tt.raw))
		})
	}
}

func TestWhereFlags(t *testing.T) {
	o, err := parseFlags([]string{"-op", "query", "-where", "status=open", "-where", "total=300", "-order", "-total", "-top", "2"})
	require.NoError(t, err)
	require.Equal(t, whereFlags{
		{Field: "status", Op: query.Eq, Value: "open"},
		{Field: "total", Op: query.Eq, Value: float64(300)},
	}, o.where)

	q := query.Apply(o.condition(), query.New())
	require.Len(t, q.Filters(), 2)
	require.Equal(t, []query.Order{{Field: "total", Descending: true}}, q.Orders())
	require.Equal(t, 2, q.Limit())

	_, err = parseFlags([]string{"-where", "novalue"})
	require.Error(t, err)
}

func TestConditionWithoutFlags(t *testing.T) {
	o, err := parseFlags([]string{"-op", "query"})
	require.NoError(t, err)
	require.Nil(t, o.condition())
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, nil, &out))
	require.True(t, strings.HasPrefix(out.String(), "docproxy version "))
}

func TestRunAgainstMemoryBackend(t *testing.T) {
	memoryBackend(t)
	ctx := context.Background()

	t.Run("create from stdin", func(t *testing.T) {
		var out bytes.Buffer
		stdin := strings.NewReader(`{"id":"o-1","customerId":"c1","total":100}`)
		require.NoError(t, run(ctx, []string{"-op", "create", "-pk", "c1"}, stdin, &out))

		var resp struct {
			Resource   map[string]any
			StatusCode int
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		require.Equal(t, 201, resp.StatusCode)
		require.Equal(t, "o-1", resp.Resource["id"])
	})

	t.Run("upsert from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "order.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"id":"o-2","customerId":"c1"}`), 0o600))

		var out bytes.Buffer
		require.NoError(t, run(ctx, []string{"-op", "upsert", "-pk", "c1", "-file", path}, nil, &out))
		require.Contains(t, out.String(), `"StatusCode": 201`)
	})

	t.Run("query on a fresh container", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run(ctx, []string{"-op", "query", "-where", "status=open"}, nil, &out))
		require.Equal(t, "[]\n", out.String())
	})

	t.Run("get of a missing document", func(t *testing.T) {
		var out bytes.Buffer
		err := run(ctx, []string{"-op", "get", "-id", "missing", "-pk", "c1"}, nil, &out)
		require.Error(t, err)
		require.Empty(t, out.String())
	})

	t.Run("argument errors", func(t *testing.T) {
		require.Error(t, run(ctx, []string{}, nil, &bytes.Buffer{}))
		require.Error(t, run(ctx, []string{"-op", "delete"}, nil, &bytes.Buffer{}))
		require.Error(t, run(ctx, []string{"-op", "get", "-pk", "c1"}, nil, &bytes.Buffer{}))
		require.Error(t, run(ctx, []string{"-op", "create"}, strings.NewReader(`{}`), &bytes.Buffer{}))
		require.Error(t, run(ctx, []string{"-op", "create", "-pk", "c1"}, strings.NewReader(`not json`), &bytes.Buffer{}))
	})
}
