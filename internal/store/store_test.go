package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/weaver/internal/store"
	"github.com/funvibe/weaver/internal/weaver"
)

func open(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func output(results ...*weaver.WeavingResult) *weaver.Output {
	return &weaver.Output{Results: results}
}

func woven(name, body string) *weaver.WeavingResult {
	return &weaver.WeavingResult{
		Qualified:   name,
		Status:      weaver.StatusWoven,
		Fingerprint: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+body)),
	}
}

func TestKey(t *testing.T) {
	a := store.Key([]byte("types: []\n"), []byte("inlining: true"))
	require.Equal(t, a, store.Key([]byte("types: []   \n\n"), []byte("inlining: true\t")))
	require.NotEqual(t, a, store.Key([]byte("types: []\n"), []byte("inlining: false")))
	require.NotEqual(t, a, store.Key([]byte("types: [ ]\n"), []byte("inlining: true")))
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "cache", "weave.db"))
	key := store.Key([]byte("model"), nil)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	out := output(woven("Calc.Add", "a"), &weaver.WeavingResult{Qualified: "Calc.Reset", Status: weaver.StatusSkipped})
	changed, err := s.Put(ctx, "model.yaml", key, "printed", out)
	require.NoError(t, err)
	require.Equal(t, []string{"Calc.Add"}, changed)

	e, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "printed", e.Printed)
	require.Equal(t, []store.Result{
		{Declaration: "Calc.Add", Status: "woven", Fingerprint: out.Results[0].Fingerprint},
		{Declaration: "Calc.Reset", Status: "skipped", Fingerprint: uuid.Nil},
	}, e.Results)
	require.False(t, e.CreatedAt.IsZero())
}

func TestPutReportsChangedDeclarations(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "weave.db"))

	_, err := s.Put(ctx, "model.yaml", store.Key([]byte("v1"), nil), "", output(woven("Calc.Add", "a"), woven("Calc.Sub", "a")))
	require.NoError(t, err)

	changed, err := s.Put(ctx, "model.yaml", store.Key([]byte("v2"), nil), "",
		output(woven("Calc.Add", "a"), woven("Calc.Sub", "b"), woven("Calc.Mul", "a")))
	require.NoError(t, err)
	require.Equal(t, []string{"Calc.Sub", "Calc.Mul"}, changed)

	// Falling back to the unwoven member is a change too.
	changed, err = s.Put(ctx, "model.yaml", store.Key([]byte("v3"), nil), "",
		output(&weaver.WeavingResult{Qualified: "Calc.Add", Status: weaver.StatusSkipped}))
	require.NoError(t, err)
	require.Equal(t, []string{"Calc.Add"}, changed)
}

func TestFingerprintsArePerModel(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "weave.db"))

	changed, err := s.Put(ctx, "shop.yaml", store.Key([]byte("shop"), nil), "", output(woven("Calc.Add", "a")))
	require.NoError(t, err)
	require.Equal(t, []string{"Calc.Add"}, changed)

	changed, err = s.Put(ctx, "bank.yaml", store.Key([]byte("bank"), nil), "", output(woven("Calc.Add", "b")))
	require.NoError(t, err)
	require.Equal(t, []string{"Calc.Add"}, changed)

	// The other model's pass does not count as a change of this one.
	changed, err = s.Put(ctx, "shop.yaml", store.Key([]byte("shop 2"), nil), "", output(woven("Calc.Add", "a")))
	require.NoError(t, err)
	require.Empty(t, changed)
}

func TestEntriesPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "weave.db")
	key := store.Key([]byte("model"), []byte("config"))

	s, err := store.Open(path)
	require.NoError(t, err)
	_, err = s.Put(ctx, "model.yaml", key, "printed", output(woven("Calc.Add", "a")))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = open(t, path)
	e, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "printed", e.Printed)

	require.NoError(t, s.Clean(ctx))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
