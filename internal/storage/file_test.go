package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ammCore/internal/model"
)

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "state"))

	if _, found, err := store.Load(ctx, "main"); err != nil || found {
		t.Fatalf("expected missing snapshot, found=%v err=%v", found, err)
	}

	snap := model.Snapshot{
		PoolID:   "main",
		Sequence: 1,
		Pool:     model.PoolState{FeeNumerator: 3, FeeDenominator: 1000},
		Balances: map[string]map[model.Asset]uint64{"alice": {model.Asset0: 10}},
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, found, err := store.Load(ctx, "main")
	if err != nil || !found {
		t.Fatalf("load failed: found=%v err=%v", found, err)
	}
	if loaded.Sequence != 1 || loaded.Pool != snap.Pool || loaded.Balances["alice"][model.Asset0] != 10 {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
	leftovers, err := filepath.Glob(filepath.Join(store.Dir, "*.tmp"))
	if err != nil || len(leftovers) != 0 {
		t.Fatalf("tmp files left behind: %v err=%v", leftovers, err)
	}
}

func TestFileStoreRejectsStaleSequence(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	if err := store.Save(ctx, model.Snapshot{PoolID: "main", Sequence: 2}); !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected stale snapshot for new pool, got %v", err)
	}
	if err := store.Save(ctx, model.Snapshot{PoolID: "main", Sequence: 1}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, model.Snapshot{PoolID: "main", Sequence: 1}); !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected stale snapshot on replay, got %v", err)
	}
	if err := store.Save(ctx, model.Snapshot{PoolID: "main", Sequence: 2}); err != nil {
		t.Fatalf("save next failed: %v", err)
	}
}

func TestFileStoreConcurrentSavesAcrossStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stores := []*FileStore{NewFileStore(dir), NewFileStore(dir)}

	const writers = 8
	for seq := uint64(1); seq <= 5; seq++ {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			wins    []string
			failure error
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				owner := fmt.Sprintf("writer-%d", i)
				snap := model.Snapshot{
					PoolID:   "main",
					Sequence: seq,
					Balances: map[string]map[model.Asset]uint64{owner: {model.Asset0: seq}},
				}
				err := stores[i%len(stores)].Save(ctx, snap)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins = append(wins, owner)
				case !errors.Is(err, ErrStaleSnapshot):
					failure = err
				}
			}(i)
		}
		wg.Wait()

		if failure != nil {
			t.Fatalf("sequence %d: unexpected save error: %v", seq, failure)
		}
		if len(wins) != 1 {
			t.Fatalf("sequence %d: expected exactly one winner, got %v", seq, wins)
		}
		loaded, found, err := stores[1].Load(ctx, "main")
		if err != nil || !found {
			t.Fatalf("load failed: found=%v err=%v", found, err)
		}
		if loaded.Sequence != seq || loaded.Balances[wins[0]][model.Asset0] != seq {
			t.Fatalf("sequence %d: stored snapshot does not belong to winner %s: %+v", seq, wins[0], loaded)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil || len(leftovers) != 0 {
		t.Fatalf("tmp files left behind: %v err=%v", leftovers, err)
	}
}

func TestFileStoreRejectsBadPoolID(t *testing.T) {
	store := NewFileStore(t.TempDir())
	for _, id := range []string{"", "../etc", "a b", ".hidden"} {
		if _, _, err := store.Load(context.Background(), id); !errors.Is(err, ErrInvalidPoolID) {
			t.Fatalf("expected invalid pool id error for %q, got %v", id, err)
		}
	}
}

func TestFileStoreReportsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "main.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, _, err := store.Load(context.Background(), "main"); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected corrupt snapshot error, got %v", err)
	}
}
