package kvmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndSelect(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Insert("t", []byte("k"), []byte("v")))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	v, found, err := ro.Select("t", []byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), v)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Insert("t", []byte("k"), []byte("v")))
	rw.Rollback()

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	_, found, err := ro.Select("t", []byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestBeginRoSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Insert("t", []byte("k"), []byte("v1")))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()

	rw2, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw2.Insert("t", []byte("k"), []byte("v2")))
	require.NoError(t, rw2.Commit())

	v, found, err := ro.Select("t", []byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), v, "a read transaction must not observe writes committed after it began")
}

func TestBeginRwSerializesWriters(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw1, err := db.BeginRw(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		rw2, err := db.BeginRw(ctx)
		require.NoError(t, err)
		require.NoError(t, rw2.Commit())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second BeginRw must block while the first write transaction is open")
	default:
	}
	require.NoError(t, rw1.Commit())
	<-done
}

func TestForEachAscendingOrderAndEarlyStop(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, rw.Insert("t", []byte(k), []byte(k)))
	}
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()

	var seen []string
	require.NoError(t, ro.ForEach("t", func(k, v []byte) (bool, error) {
		seen = append(seen, string(k))
		return true, nil
	}))
	require.Equal(t, []string{"a", "b", "c"}, seen)

	seen = nil
	require.NoError(t, ro.ForEach("t", func(k, v []byte) (bool, error) {
		seen = append(seen, string(k))
		return false, nil
	}))
	require.Equal(t, []string{"a"}, seen)
}

func TestLazyValuesOmitsValueButNotFoundFlag(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Insert("t", []byte("k"), []byte("v")))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	ro.LazyValues(true)

	v, found, err := ro.Select("t", []byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Nil(t, v)
}

func TestRemoveAllEmptiesTable(t *testing.T) {
	ctx := context.Background()
	db := New(t.TempDir())

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Insert("t", []byte("k"), []byte("v")))
	require.NoError(t, rw.RemoveAll("t", true))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	n, err := ro.Count("t")
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
}
