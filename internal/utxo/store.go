package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Store errors.
var (
	ErrCoinNotFound = errors.New("coin not found")
	ErrCoinSpent    = errors.New("coin already spent")
)

// prefixCoin keys coin records: u/<txid><index> -> Coin JSON.
var prefixCoin = []byte("u/")

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

var _ Set = (*Store)(nil)

// NewStore creates a new coin store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// coinKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func coinKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixCoin)+types.HashSize+4)
	copy(key, prefixCoin)
	copy(key[len(prefixCoin):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixCoin)+types.HashSize:], op.Index)
	return key
}

// Get retrieves a coin by its outpoint, spent or not.
func (s *Store) Get(outpoint types.Outpoint) (*Coin, error) {
	data, err := s.db.Get(coinKey(outpoint))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCoinNotFound, outpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("coin get: %w", err)
	}
	var c Coin
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("coin unmarshal: %w", err)
	}
	return &c, nil
}

// GetCoin looks up a coin for consensus checks. A missing coin is reported
// with found == false and a nil error; spent coins are returned as found.
func (s *Store) GetCoin(outpoint types.Outpoint) (*Coin, bool, error) {
	c, err := s.Get(outpoint)
	if errors.Is(err, ErrCoinNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Put stores a coin.
func (s *Store) Put(c *Coin) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("coin marshal: %w", err)
	}
	if err := s.db.Put(coinKey(c.Outpoint), data); err != nil {
		return fmt.Errorf("coin put: %w", err)
	}
	return nil
}

// Delete removes a coin record.
func (s *Store) Delete(outpoint types.Outpoint) error {
	if err := s.db.Delete(coinKey(outpoint)); err != nil {
		return fmt.Errorf("coin delete: %w", err)
	}
	return nil
}

// Has checks if a coin record exists for the given outpoint.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(coinKey(outpoint))
}

// MarkSpent flags a coin as spent at the given height.
func (s *Store) MarkSpent(outpoint types.Outpoint, height uint64) error {
	c, err := s.Get(outpoint)
	if err != nil {
		return err
	}
	if c.Spent {
		return fmt.Errorf("%w: %s", ErrCoinSpent, outpoint)
	}
	c.Spent = true
	c.SpentHeight = height
	return s.Put(c)
}

// ForEach iterates over all coin records in the store.
func (s *Store) ForEach(fn func(*Coin) error) error {
	return s.db.ForEach(prefixCoin, func(key, value []byte) error {
		var c Coin
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("coin unmarshal: %w", err)
		}
		return fn(&c)
	})
}

// PruneSpent deletes records of coins spent at or below height and
// returns how many were removed.
func (s *Store) PruneSpent(height uint64) (int, error) {
	var stale []types.Outpoint
	err := s.ForEach(func(c *Coin) error {
		if c.Spent && c.SpentHeight <= height {
			stale = append(stale, c.Outpoint)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	batch := storage.NewBatch(s.db)
	for _, op := range stale {
		if err := batch.Delete(coinKey(op)); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("prune spent coins: %w", err)
	}
	return len(stale), nil
}

// GetUTXO returns the value and script of an unspent coin.
func (s *Store) GetUTXO(outpoint types.Outpoint) (uint64, types.Script, error) {
	c, err := s.Get(outpoint)
	if err != nil {
		return 0, types.Script{}, err
	}
	if c.Spent {
		return 0, types.Script{}, fmt.Errorf("%w: %s", ErrCoinSpent, outpoint)
	}
	return c.Value, c.Script, nil
}

// HasUTXO reports whether an unspent coin exists for the outpoint.
func (s *Store) HasUTXO(outpoint types.Outpoint) bool {
	c, err := s.Get(outpoint)
	return err == nil && !c.Spent
}

// ConnectTransactions applies the transactions of a block at height and
// block time: every non-coinbase input is marked spent and every non-empty
// output becomes a coin. Outputs created earlier in the same block may be
// spent by later transactions. All writes commit in one batch.
func (s *Store) ConnectTransactions(txs []*tx.Transaction, height uint64, blockTime uint32) error {
	batch := storage.NewBatch(s.db)
	if err := s.StageTransactions(batch, txs, height, blockTime); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("connect transactions: %w", err)
	}
	return nil
}

// StageTransactions writes the coin changes of ConnectTransactions into
// batch without committing it. batch must write to the store's database.
func (s *Store) StageTransactions(batch storage.Batch, txs []*tx.Transaction, height uint64, blockTime uint32) error {
	pending := make(map[types.Outpoint]*Coin)
	lookup := func(op types.Outpoint) (*Coin, error) {
		if c, ok := pending[op]; ok {
			return c, nil
		}
		return s.Get(op)
	}

	for ti, t := range txs {
		if !t.IsCoinbase() {
			for i, in := range t.Inputs {
				c, err := lookup(in.PrevOut)
				if err != nil {
					return fmt.Errorf("tx %d input %d: %w", ti, i, err)
				}
				if c.Spent {
					return fmt.Errorf("tx %d input %d: %w: %s", ti, i, ErrCoinSpent, in.PrevOut)
				}
				c.Spent = true
				c.SpentHeight = height
				pending[in.PrevOut] = c
			}
		}

		txHash := t.Hash()
		coinbase, coinstake := t.IsCoinbase(), t.IsCoinStake()
		for i, out := range t.Outputs {
			if out.IsEmpty() {
				continue
			}
			op := types.Outpoint{TxID: txHash, Index: uint32(i)}
			pending[op] = &Coin{
				Outpoint:  op,
				Value:     out.Value,
				Script:    out.Script,
				Height:    height,
				Time:      blockTime,
				Coinbase:  coinbase,
				CoinStake: coinstake,
			}
		}
	}

	for op, c := range pending {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("coin marshal: %w", err)
		}
		if err := batch.Put(coinKey(op), data); err != nil {
			return fmt.Errorf("coin batch put: %w", err)
		}
	}
	return nil
}
