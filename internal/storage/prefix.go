package storage

// PrefixDB namespaces a DB by prepending a fixed byte prefix to every
// key. The ledger and case stores share one database this way without
// key collisions.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB wraps inner under the given namespace prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: append([]byte(nil), prefix...)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.key(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.key(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.key(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.key(key))
}

// ForEach iterates over keys under the given logical prefix. Callbacks
// see keys with the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in this namespace.
func (p *PrefixDB) DeleteAll() error {
	// Snapshot keys before deleting; mutating mid-iteration is
	// undefined for some backends.
	var keys [][]byte
	err := p.inner.ForEach(p.prefix, func(key, _ []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := p.inner.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the inner DB owns its lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch whose writes land inside this namespace.
// When the inner DB supports atomic batches the namespace inherits
// that atomicity; otherwise writes are buffered and applied one by
// one on Commit.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{db: p, inner: batcher.NewBatch()}
	}
	return &bufferedBatch{db: p}
}

type prefixBatch struct {
	db    *PrefixDB
	inner Batch
}

func (b *prefixBatch) Put(key, value []byte) error {
	return b.inner.Put(b.db.key(key), value)
}

func (b *prefixBatch) Delete(key []byte) error {
	return b.inner.Delete(b.db.key(key))
}

func (b *prefixBatch) Commit() error {
	return b.inner.Commit()
}

// bufferedBatch is the non-atomic fallback for plain DBs.
type bufferedBatch struct {
	db  *PrefixDB
	ops []bufferedOp
}

type bufferedOp struct {
	key    []byte
	value  []byte
	delete bool
}

func (b *bufferedBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, bufferedOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (b *bufferedBatch) Delete(key []byte) error {
	b.ops = append(b.ops, bufferedOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
	return nil
}

func (b *bufferedBatch) Commit() error {
	for _, op := range b.ops {
		if op.delete {
			if err := b.db.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}
