package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Account is a registered user as the account service stores it.
type Account struct {
	Email string `bson:"email"`
	Name  string `bson:"name"`
	Age   *int   `bson:"age,omitempty"`
}

// Directory looks up registered accounts by email.
type Directory interface {
	Lookup(ctx context.Context, email string) (Account, bool, error)
}

// ===== In-memory directory =====

// MemoryDirectory is a Directory backed by a map.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{accounts: make(map[string]Account)}
}

// Put adds or replaces an account.
func (d *MemoryDirectory) Put(account Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[normalizeEmail(account.Email)] = account
}

func (d *MemoryDirectory) Lookup(_ context.Context, email string) (Account, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.accounts[normalizeEmail(email)]
	return account, ok, nil
}

// ===== MongoDB directory =====

// DefaultUsersCollection is the collection the account service writes users to.
const DefaultUsersCollection = "users"

// MongoDirectory reads accounts from a MongoDB users collection.
type MongoDirectory struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongoDirectory connects to uri and verifies the connection.
func OpenMongoDirectory(ctx context.Context, uri, database string) (*MongoDirectory, error) {
	if strings.TrimSpace(uri) == "" || strings.TrimSpace(database) == "" {
		return nil, errors.New("mongo directory requires a uri and database")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoDirectory{
		client:     client,
		collection: client.Database(database).Collection(DefaultUsersCollection),
	}, nil
}

func (d *MongoDirectory) Lookup(ctx context.Context, email string) (Account, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Account{}, false, nil
	}

	var account Account
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "password": 0})
	err := d.collection.FindOne(ctx, bson.M{"email": email}, opts).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("find account: %w", err)
	}
	return account, true, nil
}

// Close disconnects the client.
func (d *MongoDirectory) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
