package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopassist/shopchat/internal/core/ports"
)

const (
	credentialCollection = "credentials"
	defaultProfile       = "default"
)

// CredentialStore keeps all entries of one client profile in a single
// document, so a multi-key write is one atomic update.
type CredentialStore struct {
	coll    *mongo.Collection
	profile string
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

type credentialDoc struct {
	Profile   string            `bson:"_id"`
	Entries   map[string]string `bson:"entries"`
	UpdatedAt int64             `bson:"updated_at"`
}

// NewCredentialStore stores entries under profile ("default" when empty).
func NewCredentialStore(db *mongo.Database, profile string) *CredentialStore {
	if profile == "" {
		profile = defaultProfile
	}
	return &CredentialStore{coll: db.Collection(credentialCollection), profile: profile}
}

func (s *CredentialStore) Get(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	var doc credentialDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": s.profile}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find credential: %w", err)
	}
	return doc.Entries[key], nil
}

func (s *CredentialStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	for k := range values {
		if err := validKey(k); err != nil {
			return err
		}
	}
	set := setDocument(values, time.Now())
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": s.profile},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	unset := bson.M{}
	for _, k := range keys {
		if err := validKey(k); err != nil {
			return err
		}
		unset["entries."+k] = ""
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": s.profile}, bson.M{"$unset": unset})
	if err != nil {
		return fmt.Errorf("unset credential: %w", err)
	}
	return nil
}

func setDocument(values map[string]string, now time.Time) bson.M {
	set := bson.M{"updated_at": now.Unix()}
	for k, v := range values {
		set["entries."+k] = v
	}
	return set
}

func validKey(k string) error {
	if k == "" || strings.ContainsAny(k, ".$") {
		return fmt.Errorf("invalid credential key %q", k)
	}
	return nil
}
