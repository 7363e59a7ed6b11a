package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection is the collection used when none is configured.
const DefaultMongoCollection = "social_connections"

// mongoDocument is the BSON layout of a connection.
type mongoDocument struct {
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
	ExpiresAt      *time.Time `bson:"expires_at,omitempty"`
	ID             string     `bson:"_id"`
	UserID         string     `bson:"user_id"`
	ProviderID     string     `bson:"provider_id"`
	ProviderUserID string     `bson:"provider_user_id"`
	AccessToken    string     `bson:"access_token"`
	Secret         string     `bson:"secret,omitempty"`
	RefreshToken   string     `bson:"refresh_token,omitempty"`
	DisplayName    string     `bson:"display_name,omitempty"`
	FullName       string     `bson:"full_name,omitempty"`
	ProfileURL     string     `bson:"profile_url,omitempty"`
	ImageURL       string     `bson:"image_url,omitempty"`
	Email          string     `bson:"email,omitempty"`
	Rank           int        `bson:"rank"`
}

func toMongoDocument(c *Connection) mongoDocument {
	return mongoDocument{
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		ExpiresAt:      nullTime(c.ExpiresAt),
		ID:             c.ID,
		UserID:         c.UserID,
		ProviderID:     c.ProviderID,
		ProviderUserID: c.ProviderUserID,
		AccessToken:    c.AccessToken,
		Secret:         c.Secret,
		RefreshToken:   c.RefreshToken,
		DisplayName:    c.DisplayName,
		FullName:       c.FullName,
		ProfileURL:     c.ProfileURL,
		ImageURL:       c.ImageURL,
		Email:          c.Email,
		Rank:           c.Rank,
	}
}

func (d mongoDocument) connection() *Connection {
	c := &Connection{
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		ID:             d.ID,
		UserID:         d.UserID,
		ProviderID:     d.ProviderID,
		ProviderUserID: d.ProviderUserID,
		AccessToken:    d.AccessToken,
		Secret:         d.Secret,
		RefreshToken:   d.RefreshToken,
		DisplayName:    d.DisplayName,
		FullName:       d.FullName,
		ProfileURL:     d.ProfileURL,
		ImageURL:       d.ImageURL,
		Email:          d.Email,
		Rank:           d.Rank,
	}
	if d.ExpiresAt != nil {
		c.ExpiresAt = d.ExpiresAt.UTC()
	}
	return c
}

// Mongo stores connections as documents. Writes are immediate.
type Mongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// MongoOption configures the MongoDB datastore.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

// WithMongoCollection sets the collection name.
// Default: "social_connections".
func WithMongoCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// NewMongoDatastore creates a datastore over db.
// Call EnsureIndexes once at startup to create the uniqueness index.
func NewMongoDatastore(db *mongo.Database, opts ...MongoOption) *Mongo {
	o := &mongoOptions{collection: DefaultMongoCollection}
	for _, opt := range opts {
		opt(o)
	}
	return &Mongo{db: db, coll: db.Collection(o.collection)}
}

// EnsureIndexes creates the unique provider identity index and the lookup index by user.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "provider_user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("provider_identity"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "provider_id", Value: 1}, {Key: "rank", Value: 1}},
			Options: options.Index().SetName("user_provider_rank"),
		},
	})
	if err != nil {
		return fmt.Errorf("connection: ensure mongo indexes: %w", err)
	}
	return nil
}

// CollectionName returns the name of the backing collection.
func (m *Mongo) CollectionName() string {
	return m.coll.Name()
}

// Begin returns the datastore itself; MongoDB writes are applied immediately.
func (m *Mongo) Begin(context.Context) (Store, error) {
	return m, nil
}

// Healthcheck pings the MongoDB deployment.
func (m *Mongo) Healthcheck(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

var mongoSort = bson.D{{Key: "rank", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (m *Mongo) FindConnection(ctx context.Context, f Filter) (*Connection, error) {
	var doc mongoDocument
	err := m.coll.FindOne(ctx, mongoFilter(f), options.FindOne().SetSort(mongoSort)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("connection: find: %w", err)
	}
	return doc.connection(), nil
}

func (m *Mongo) FindConnections(ctx context.Context, f Filter) ([]*Connection, error) {
	cur, err := m.coll.Find(ctx, mongoFilter(f), options.Find().SetSort(mongoSort))
	if err != nil {
		return nil, fmt.Errorf("connection: find all: %w", err)
	}

	var docs []mongoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("connection: decode: %w", err)
	}

	conns := make([]*Connection, 0, len(docs))
	for _, d := range docs {
		conns = append(conns, d.connection())
	}
	return conns, nil
}

func (m *Mongo) CreateConnection(ctx context.Context, c *Connection) (*Connection, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	stored := *c
	stored.prepareCreate()
	// BSON dates carry millisecond precision.
	stored.CreatedAt = stored.CreatedAt.Truncate(time.Millisecond)
	stored.UpdatedAt = stored.UpdatedAt.Truncate(time.Millisecond)

	if _, err := m.coll.InsertOne(ctx, toMongoDocument(&stored)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("connection: create: %w", err)
	}
	return &stored, nil
}

func (m *Mongo) UpdateConnection(ctx context.Context, c *Connection) error {
	set := bson.M{
		"access_token":  c.AccessToken,
		"secret":        c.Secret,
		"refresh_token": c.RefreshToken,
		"display_name":  c.DisplayName,
		"full_name":     c.FullName,
		"profile_url":   c.ProfileURL,
		"image_url":     c.ImageURL,
		"email":         c.Email,
		"rank":          c.Rank,
		"updated_at":    time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if c.ExpiresAt.IsZero() {
		update["$unset"] = bson.M{"expires_at": ""}
	} else {
		set["expires_at"] = c.ExpiresAt
	}

	res, err := m.coll.UpdateOne(ctx, bson.M{"_id": c.ID}, update)
	if err != nil {
		return fmt.Errorf("connection: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteConnection(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	err := m.coll.FindOneAndDelete(ctx, mongoFilter(f), options.FindOneAndDelete().SetSort(mongoSort)).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("connection: delete: %w", err)
	}
	return true, nil
}

func (m *Mongo) DeleteConnections(ctx context.Context, f Filter) (bool, error) {
	if f.IsEmpty() {
		return false, ErrEmptyFilter
	}

	res, err := m.coll.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return false, fmt.Errorf("connection: delete all: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) Commit(context.Context) error   { return nil }
func (m *Mongo) Rollback(context.Context) error { return nil }

func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.ProviderID != "" {
		q["provider_id"] = f.ProviderID
	}
	if f.ProviderUserID != "" {
		q["provider_user_id"] = f.ProviderUserID
	}
	return q
}
