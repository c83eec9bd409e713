package storage

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// runDBSuite exercises the behavior every DB backend must share.
func runDBSuite(t *testing.T, db DB) {
	t.Run("PutGet", func(t *testing.T) {
		key := []byte("w/alice")
		val := []byte(`{"index":1,"balance":5000000000}`)
		if err := db.Put(key, val); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := db.Get(key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, val) {
			t.Errorf("Get = %q, want %q", got, val)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		if _, err := db.Get([]byte("w/nobody")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get missing key: err = %v, want ErrNotFound", err)
		}
		ok, err := db.Has([]byte("w/nobody"))
		if err != nil {
			t.Fatalf("Has: %v", err)
		}
		if ok {
			t.Error("Has reported a key that was never written")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := []byte("w/bob")
		if err := db.Put(key, []byte("v1")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := db.Put(key, []byte("v2")); err != nil {
			t.Fatalf("Put overwrite: %v", err)
		}
		got, err := db.Get(key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "v2" {
			t.Errorf("Get after overwrite = %q, want %q", got, "v2")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		key := []byte("tx/deadbeef")
		if err := db.Put(key, []byte("pending")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := db.Delete(key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
		}
		// Deleting a key that is already gone is not an error.
		if err := db.Delete(key); err != nil {
			t.Errorf("Delete of absent key: %v", err)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		key := []byte("marker/initialized")
		if err := db.Put(key, nil); err != nil {
			t.Fatalf("Put empty: %v", err)
		}
		ok, err := db.Has(key)
		if err != nil {
			t.Fatalf("Has: %v", err)
		}
		if !ok {
			t.Error("Has = false for key with empty value")
		}
		got, err := db.Get(key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Get empty value = %q, want empty", got)
		}
	})

	t.Run("BinaryData", func(t *testing.T) {
		key := []byte{0x00, 0xff, 0x1e, 0x00}
		val := make([]byte, 256)
		for i := range val {
			val[i] = byte(i)
		}
		if err := db.Put(key, val); err != nil {
			t.Fatalf("Put binary: %v", err)
		}
		got, err := db.Get(key)
		if err != nil {
			t.Fatalf("Get binary: %v", err)
		}
		if !bytes.Equal(got, val) {
			t.Error("binary value roundtrip mismatch")
		}
	})

	t.Run("ForEachPrefix", func(t *testing.T) {
		entries := map[string]string{
			"case/1": "open",
			"case/2": "resolved",
			"case/3": "disputed",
			"w/eve":  "ignored",
		}
		for k, v := range entries {
			if err := db.Put([]byte(k), []byte(v)); err != nil {
				t.Fatalf("Put %q: %v", k, err)
			}
		}
		seen := map[string]string{}
		err := db.ForEach([]byte("case/"), func(k, v []byte) error {
			seen[string(k)] = string(v)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
		if len(seen) != 3 {
			t.Fatalf("ForEach visited %d keys, want 3: %v", len(seen), seen)
		}
		for _, k := range []string{"case/1", "case/2", "case/3"} {
			if seen[k] != entries[k] {
				t.Errorf("ForEach %q = %q, want %q", k, seen[k], entries[k])
			}
		}
	})

	t.Run("ForEachStop", func(t *testing.T) {
		stop := errors.New("stop")
		count := 0
		err := db.ForEach([]byte("case/"), func(k, v []byte) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("ForEach err = %v, want the callback sentinel", err)
		}
		if count != 1 {
			t.Errorf("callback ran %d times after returning an error, want 1", count)
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		// Write out of order; iteration must come back sorted. The
		// ledger's history scan depends on this to page newest-first.
		for _, k := range []string{"seq/0005", "seq/0001", "seq/0003", "seq/0002", "seq/0004"} {
			if err := db.Put([]byte(k), []byte("x")); err != nil {
				t.Fatalf("Put %q: %v", k, err)
			}
		}
		var got []string
		err := db.ForEach([]byte("seq/"), func(k, v []byte) error {
			got = append(got, string(k))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
		want := []string{"seq/0001", "seq/0002", "seq/0003", "seq/0004", "seq/0005"}
		if len(got) != len(want) {
			t.Fatalf("ForEach visited %d keys, want %d: %v", len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ForEach order = %v, want %v", got, want)
			}
		}
	})

	t.Run("ForEachNoMatch", func(t *testing.T) {
		err := db.ForEach([]byte("nosuchprefix/"), func(k, v []byte) error {
			t.Errorf("unexpected visit of %q", k)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	runDBSuite(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer db.Close()
	runDBSuite(t, db)
}

func TestBadgerDB_Persistence(t *testing.T) {
	dir := t.TempDir()

	db, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := db.Put([]byte("w/treasury"), []byte("0")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := db.Get([]byte("w/treasury"))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "0" {
		t.Errorf("Get after reopen = %q, want %q", got, "0")
	}
}

func TestBatch_AtomicCommit(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) DB
	}{
		{"memory", func(t *testing.T) DB { return NewMemory() }},
		{"badger", func(t *testing.T) DB {
			db, err := NewBadger(t.TempDir())
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			return db
		}},
	}

	for _, be := range backends {
		t.Run(be.name, func(t *testing.T) {
			db := be.open(t)
			defer db.Close()

			batcher, ok := db.(Batcher)
			if !ok {
				t.Fatalf("%T does not implement Batcher", db)
			}
			if err := db.Put([]byte("w/old"), []byte("gone")); err != nil {
				t.Fatalf("Put: %v", err)
			}

			batch := batcher.NewBatch()
			for i := 0; i < 3; i++ {
				key := fmt.Sprintf("entry/%d", i)
				if err := batch.Put([]byte(key), []byte("credit")); err != nil {
					t.Fatalf("batch Put: %v", err)
				}
			}
			if err := batch.Delete([]byte("w/old")); err != nil {
				t.Fatalf("batch Delete: %v", err)
			}
			// An empty value is a write, not a delete.
			if err := batch.Put([]byte("marker/swept"), nil); err != nil {
				t.Fatalf("batch Put empty: %v", err)
			}

			// Nothing lands until Commit.
			if _, err := db.Get([]byte("entry/0")); !errors.Is(err, ErrNotFound) {
				t.Errorf("batched write visible before Commit: err = %v", err)
			}
			if ok, _ := db.Has([]byte("w/old")); !ok {
				t.Error("batched delete applied before Commit")
			}

			if err := batch.Commit(); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			for i := 0; i < 3; i++ {
				key := fmt.Sprintf("entry/%d", i)
				if _, err := db.Get([]byte(key)); err != nil {
					t.Errorf("Get %q after Commit: %v", key, err)
				}
			}
			if ok, _ := db.Has([]byte("w/old")); ok {
				t.Error("deleted key survived Commit")
			}
			got, err := db.Get([]byte("marker/swept"))
			if err != nil {
				t.Errorf("Get empty-value key after Commit: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("empty-value key = %q, want empty", got)
			}
		})
	}
}
