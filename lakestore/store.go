// Package lakestore is a local stand-in for the AWS services the data lake
// is provisioned on. Store implements the awsiface S3, Glue, Athena and STS
// interfaces on top of BadgerDB, so provisioning can run offline and tests
// can inject it in place of the SDK clients.
//
// The emulation covers what provisioning and teardown rely on: bucket
// ownership, versioning with delete markers, paginated listings, Glue
// database and table existence, and workgroup output locations. Errors are
// the same typed errors the SDK returns for the real services.
package lakestore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/acksell/datalake/awsiface"
	"github.com/dgraph-io/badger/v4"
)

const (
	DefaultAccountID = "000000000000"
	DefaultRegion    = "us-east-1"
	DefaultWorkgroup = "primary"
)

// Key layout. Components are separated by keySeparator so a prefix scan over
// "<kind>/<parent>\x00" never matches a sibling whose name extends parent.
const (
	keySeparator   byte = 0x00
	bucketPrefix        = "s3/b/"
	objectPrefix        = "s3/o/"
	databasePrefix      = "glue/db/"
	tablePrefix         = "glue/t/"
	workgroupPrefix     = "athena/wg/"
	sequenceKey         = "meta/seq"
)

type Options struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
	// AccountID the store acts as. Defaults to DefaultAccountID.
	AccountID string
	// Region reported for buckets created without a location constraint.
	Region string
}

// Store is an S3/Glue/Athena/STS emulator backed by BadgerDB.
type Store struct {
	db      *badger.DB
	seq     *badger.Sequence
	account string
	region  string
}

var (
	_ awsiface.S3API     = (*Store)(nil)
	_ awsiface.GlueAPI   = (*Store)(nil)
	_ awsiface.AthenaAPI = (*Store)(nil)
	_ awsiface.STSAPI    = (*Store)(nil)
)

// New opens a store and seeds the default Athena workgroup.
func New(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}

	s := &Store{
		db:      db,
		seq:     seq,
		account: opts.AccountID,
		region:  opts.Region,
	}
	if s.account == "" {
		s.account = DefaultAccountID
	}
	if s.region == "" {
		s.region = DefaultRegion
	}
	if err := s.seedWorkgroup(DefaultWorkgroup); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// AsAccount returns a view of the same data acting as another account, for
// exercising cross-account ownership rules. Closing either closes both.
func (s *Store) AsAccount(accountID string) *Store {
	cp := *s
	cp.account = accountID
	return &cp
}

// AccountID is the account the store acts as.
func (s *Store) AccountID() string {
	return s.account
}

// Clients returns the store wired as every service client it emulates.
func (s *Store) Clients() awsiface.Clients {
	return awsiface.Clients{S3: s, Glue: s, Athena: s, STS: s}
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return fmt.Errorf("release sequence: %w", err)
	}
	return s.db.Close()
}

func (s *Store) nextSeq() (uint64, error) {
	return s.seq.Next()
}

func joinKey(prefix string, parts ...string) []byte {
	b := []byte(prefix)
	for i, p := range parts {
		if i > 0 {
			b = append(b, keySeparator)
		}
		b = append(b, p...)
	}
	return b
}

// childPrefix is the scan prefix for every record under parent.
func childPrefix(prefix, parent string) []byte {
	return append(joinKey(prefix, parent), keySeparator)
}

// encodeSeq encodes seq so that larger (newer) values sort first.
func encodeSeq(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], ^seq)
	return b[:]
}

func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return txn.Set(key, data)
}

// scanJSON calls fn for every record under prefix in key order, stopping
// early when fn returns false.
func scanJSON[T any](txn *badger.Txn, prefix []byte, fn func(key []byte, rec T) (bool, error)) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var rec T
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return fmt.Errorf("decode record %q: %w", item.Key(), err)
		}
		more, err := fn(item.KeyCopy(nil), rec)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
