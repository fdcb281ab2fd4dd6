package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultFirestoreCollection holds one document per key.
const DefaultFirestoreCollection = "portal_state"

type firestoreRecord struct {
	Key       string    `firestore:"key"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type firestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
	ownsClient bool

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewFirestore wraps an existing client. The caller keeps ownership of the client.
func NewFirestore(client *firestore.Client, collection string, logger *slog.Logger) Store {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &firestoreStore{client: client, collection: collection, logger: logger}
}

// OpenFirestore creates a client for projectID (and database, when not the default one) and
// returns a store that closes the client on Close.
func OpenFirestore(ctx context.Context, projectID, database, collection string, logger *slog.Logger) (Store, error) {
	var (
		client *firestore.Client
		err    error
	)
	if database == "" || database == firestore.DefaultDatabaseID {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	}
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	store := NewFirestore(client, collection, logger).(*firestoreStore)
	store.ownsClient = true
	return store, nil
}

// docID escapes keys so that '/' never creates a sub-path.
func docID(key string) string {
	return url.QueryEscape(key)
}

func (s *firestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.client.Collection(s.collection).Doc(docID(key)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var record firestoreRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return []byte(record.Value), nil
}

func (s *firestoreStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Collection(s.collection).Doc(docID(key)).Set(ctx, firestoreRecord{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *firestoreStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.Collection(s.collection).Doc(docID(key)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *firestoreStore) Close() error {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()

	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Watch listens to the collection's snapshot stream. The first snapshot only establishes
// the baseline and is not reported.
func (s *firestoreStore) Watch(ctx context.Context, fn func(Change)) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	it := s.client.Collection(s.collection).Snapshots(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer it.Stop()

		baseline := true
		for {
			snap, err := it.Next()
			if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return
			}
			if err != nil {
				s.logger.Warn("firestore snapshot listener stopped", slog.String("collection", s.collection), slog.Any("error", err))
				return
			}
			if baseline {
				baseline = false
				continue
			}
			for _, change := range snap.Changes {
				fn(firestoreChange(change))
			}
		}
	}()
	return nil
}

func firestoreChange(change firestore.DocumentChange) Change {
	key, err := url.QueryUnescape(change.Doc.Ref.ID)
	if err != nil {
		key = change.Doc.Ref.ID
	}
	if change.Kind == firestore.DocumentRemoved {
		return Change{Key: key, Op: OpDelete}
	}

	var record firestoreRecord
	if err := change.Doc.DataTo(&record); err != nil {
		return Change{Key: key, Op: OpSet}
	}
	if record.Key != "" {
		key = record.Key
	}
	return Change{Key: key, Op: OpSet, Value: []byte(record.Value)}
}
