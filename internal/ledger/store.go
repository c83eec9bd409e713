package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/internal/wallet"
)

var (
	prefixWallet  = []byte("w/")   // w/<userID> -> Wallet JSON
	prefixTx      = []byte("l/")   // l/<userID>/<seq(8,BE)> -> Transaction JSON
	prefixRef     = []byte("ref/") // ref/<reference> -> l/... key of the recorded tx
	prefixPending = []byte("p/")   // p/<userID>/<reference> -> l/... key while unsettled
	keyNextIndex  = []byte("idx")  // next derivation index (4 bytes, BE)
	keyTxSeq      = []byte("seq/") // seq/<userID> -> per-user log counter (8 bytes, BE)
)

// Store persists wallets and their transaction logs. All multi-key
// updates go through a storage.Batch so a wallet record and its audit
// entry commit together or not at all.
type Store struct {
	db storage.DB
}

// NewStore creates a ledger store.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) batch() storage.Batch {
	return s.db.(storage.Batcher).NewBatch()
}

// GetWallet retrieves a wallet by user ID.
func (s *Store) GetWallet(userID string) (*Wallet, error) {
	data, err := s.db.Get(walletKey(userID))
	if err != nil {
		return nil, fmt.Errorf("wallet get: %w", err)
	}
	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wallet unmarshal: %w", err)
	}
	return &w, nil
}

// HasWallet checks if a wallet exists for the user.
func (s *Store) HasWallet(userID string) (bool, error) {
	return s.db.Has(walletKey(userID))
}

// ForEachWallet iterates over all wallets.
// Return a non-nil error from fn to stop iteration early.
func (s *Store) ForEachWallet(fn func(*Wallet) error) error {
	return s.db.ForEach(prefixWallet, func(key, value []byte) error {
		var w Wallet
		if err := json.Unmarshal(value, &w); err != nil {
			return nil // Skip corrupt entries.
		}
		return fn(&w)
	})
}

// NextIndex returns the next unassigned derivation index without
// consuming it. Allocation happens in the CreateWallet batch.
func (s *Store) NextIndex() (uint32, error) {
	ok, err := s.db.Has(keyNextIndex)
	if err != nil {
		return 0, err
	}
	if !ok {
		return wallet.FirstUserIndex, nil
	}
	data, err := s.db.Get(keyNextIndex)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("index counter corrupt: %d bytes", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

// TxByReference looks up the transaction previously recorded under the
// reference. Returns (nil, nil) when the reference is unused.
func (s *Store) TxByReference(reference string) (*Transaction, error) {
	ok, err := s.db.Has(refKey(reference))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	txKey, err := s.db.Get(refKey(reference))
	if err != nil {
		return nil, err
	}
	data, err := s.db.Get(txKey)
	if err != nil {
		return nil, fmt.Errorf("referenced tx get: %w", err)
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("referenced tx unmarshal: %w", err)
	}
	return &tx, nil
}

// HasPending reports whether the user has any unsettled ledger entries.
func (s *Store) HasPending(userID string) (bool, error) {
	found := false
	stop := fmt.Errorf("stop")
	err := s.db.ForEach(pendingPrefix(userID), func(key, value []byte) error {
		found = true
		return stop
	})
	if err != nil && err != stop {
		return false, err
	}
	return found, nil
}

// History returns the user's transactions, newest first, up to limit.
// A limit of zero means no cap.
func (s *Store) History(userID string, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := s.db.ForEach(txPrefix(userID), func(key, value []byte) error {
		var tx Transaction
		if err := json.Unmarshal(value, &tx); err != nil {
			return nil // Skip corrupt entries.
		}
		txs = append(txs, tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys iterate in sequence order; flip to newest first.
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// writeState appends the wallet, its new transaction, the per-user
// sequence counter, and the reference/pending indexes in one batch.
// Callers pass nextIndex > 0 only when allocating a derivation index.
func (s *Store) writeState(w *Wallet, tx *Transaction, nextIndex uint32) error {
	seq, err := s.txSeq(w.UserID)
	if err != nil {
		return err
	}

	b := s.batch()
	wData, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("wallet marshal: %w", err)
	}
	if err := b.Put(walletKey(w.UserID), wData); err != nil {
		return err
	}

	if tx != nil {
		tKey := txKey(w.UserID, seq)
		tData, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("tx marshal: %w", err)
		}
		if err := b.Put(tKey, tData); err != nil {
			return err
		}
		var seqBuf [8]byte
		binary.BigEndian.PutUint64(seqBuf[:], seq+1)
		if err := b.Put(seqKey(w.UserID), seqBuf[:]); err != nil {
			return err
		}
		if tx.Reference != "" {
			if err := b.Put(refKey(tx.Reference), tKey); err != nil {
				return err
			}
		}
		if tx.Status == StatusPending {
			if err := b.Put(pendingKey(w.UserID, tx.Reference), tKey); err != nil {
				return err
			}
		}
	}

	if nextIndex > 0 {
		var idxBuf [4]byte
		binary.BigEndian.PutUint32(idxBuf[:], nextIndex)
		if err := b.Put(keyNextIndex, idxBuf[:]); err != nil {
			return err
		}
	}
	return b.Commit()
}

// settle rewrites a pending transaction with its final status and chain
// hash, and clears the pending marker, atomically.
func (s *Store) settle(userID, reference string, status TxStatus, txHash string) (*Transaction, error) {
	pKey := pendingKey(userID, reference)
	ok, err := s.db.Has(pKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no pending entry for reference %q", reference)
	}
	tKey, err := s.db.Get(pKey)
	if err != nil {
		return nil, err
	}
	data, err := s.db.Get(tKey)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("pending tx unmarshal: %w", err)
	}
	tx.Status = status
	if txHash != "" {
		tx.TxHash = txHash
	}

	b := s.batch()
	tData, err := json.Marshal(&tx)
	if err != nil {
		return nil, fmt.Errorf("tx marshal: %w", err)
	}
	if err := b.Put(tKey, tData); err != nil {
		return nil, err
	}
	if err := b.Delete(pKey); err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) txSeq(userID string) (uint64, error) {
	ok, err := s.db.Has(seqKey(userID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	data, err := s.db.Get(seqKey(userID))
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("tx counter corrupt: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func walletKey(userID string) []byte {
	return append(append([]byte{}, prefixWallet...), userID...)
}

func seqKey(userID string) []byte {
	return append(append([]byte{}, keyTxSeq...), userID...)
}

func refKey(reference string) []byte {
	return append(append([]byte{}, prefixRef...), reference...)
}

func txPrefix(userID string) []byte {
	return []byte(string(prefixTx) + userID + "/")
}

func txKey(userID string, seq uint64) []byte {
	key := txPrefix(userID)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

func pendingPrefix(userID string) []byte {
	return []byte(string(prefixPending) + userID + "/")
}

func pendingKey(userID, reference string) []byte {
	// References are caller-controlled; strip the separator so they
	// cannot escape the per-user keyspace.
	return append(pendingPrefix(userID), strings.ReplaceAll(reference, "/", "_")...)
}
