package datasource

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// Mongo defaults used when the URI names no database.
const (
	DefaultMongoDatabase   = "grandgraph"
	DefaultMongoCollection = "tiles"
)

const indexDocID = "index:resolver"

// MongoTiles stores tiles as documents keyed "kind:id:ext", so several
// servers can share one cache.
type MongoTiles struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type tileDoc struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// OpenMongoTiles connects to uri and pings the primary. The database is
// taken from the URI path, falling back to DefaultMongoDatabase.
func OpenMongoTiles(ctx context.Context, uri string) (*MongoTiles, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "ping mongo")
	}
	return NewMongoTiles(client, databaseFromURI(uri), DefaultMongoCollection), nil
}

// NewMongoTiles wraps an existing client.
func NewMongoTiles(client *mongo.Client, database, collection string) *MongoTiles {
	return &MongoTiles{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultMongoDatabase
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return DefaultMongoDatabase
}

func tileDocID(key Key, f Format) string { return key.String() + ":" + f.Ext() }

// Tile loads one tile document.
func (t *MongoTiles) Tile(ctx context.Context, key Key, f Format) ([]byte, error) {
	return t.get(ctx, tileDocID(key, f))
}

// Index loads the resolver index document.
func (t *MongoTiles) Index(ctx context.Context) ([]byte, error) {
	return t.get(ctx, indexDocID)
}

func (t *MongoTiles) get(ctx context.Context, id string) ([]byte, error) {
	var doc tileDoc
	err := t.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gerrors.New(gerrors.ErrCodeNotFound, "no cached tile %s", id)
	}
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "find %s", id)
	}
	return doc.Data, nil
}

// PutTile upserts a tile document.
func (t *MongoTiles) PutTile(ctx context.Context, key Key, f Format, data []byte) error {
	return t.put(ctx, tileDocID(key, f), data)
}

// PutIndex upserts the resolver index document.
func (t *MongoTiles) PutIndex(ctx context.Context, data []byte) error {
	return t.put(ctx, indexDocID, data)
}

func (t *MongoTiles) put(ctx context.Context, id string, data []byte) error {
	doc := tileDoc{ID: id, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := t.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return gerrors.Wrap(gerrors.ErrCodeNetwork, err, "upsert %s", id)
	}
	return nil
}

// Close disconnects the client.
func (t *MongoTiles) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.client.Disconnect(ctx)
}

var _ TileWriter = (*MongoTiles)(nil)
