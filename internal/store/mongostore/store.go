// Package mongostore implements auth.UserStore on a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	mongoclient "github.com/dmitrymomot/projectauth/pkg/mongo"
)

// DefaultCollection holds one document per user.
const DefaultCollection = "users"

// ErrEmailTaken is returned by CreateUser for a duplicate address.
var ErrEmailTaken = errors.New("mongostore: email already registered")

type userDocument struct {
	ID                       string     `bson:"_id"`
	Email                    string     `bson:"email"`
	Name                     string     `bson:"name"`
	PasswordHash             string     `bson:"password_hash"`
	EmailVerified            bool       `bson:"email_verified"`
	VerificationToken        *string    `bson:"verification_token,omitempty"`
	VerificationTokenExpires *time.Time `bson:"verification_token_expires,omitempty"`
	MFASecret                *string    `bson:"mfa_secret,omitempty"`
	MFAEnabled               bool       `bson:"is_mfa_enabled"`
	EmailTwoFactor           bool       `bson:"is_email_2fa_enabled"`
	UpdatedAt                time.Time  `bson:"updated_at"`
}

func (d userDocument) user() *auth.User {
	u := &auth.User{
		ID:                d.ID,
		Email:             d.Email,
		Name:              d.Name,
		PasswordHash:      d.PasswordHash,
		EmailVerified:     d.EmailVerified,
		VerificationToken: d.VerificationToken,
		TOTP:              auth.TOTPFromColumns(d.MFASecret, d.MFAEnabled),
		EmailTwoFactor:    d.EmailTwoFactor,
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
	if d.VerificationTokenExpires != nil {
		exp := d.VerificationTokenExpires.UTC()
		u.VerificationTokenExpires = &exp
	}
	return u
}

// Store keeps users in a single collection keyed by id.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// New returns a store over db.collection. An empty collection name uses
// DefaultCollection.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: db.Client(), coll: db.Collection(collection), now: time.Now}
}

// EnsureIndexes creates the unique email index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// CreateUser inserts u. An empty ID gets a random UUID.
func (s *Store) CreateUser(ctx context.Context, u auth.User) (*auth.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	secret, enabled := u.TOTP.Columns()
	doc := userDocument{
		ID:                       u.ID,
		Email:                    auth.NormalizeEmail(u.Email),
		Name:                     u.Name,
		PasswordHash:             u.PasswordHash,
		EmailVerified:            u.EmailVerified,
		VerificationToken:        u.VerificationToken,
		VerificationTokenExpires: u.VerificationTokenExpires,
		MFASecret:                secret,
		MFAEnabled:               enabled,
		EmailTwoFactor:           u.EmailTwoFactor,
		UpdatedAt:                s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return doc.user(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.find(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.find(ctx, bson.M{"email": auth.NormalizeEmail(email)})
}

func (s *Store) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{"verification_token": token, "verification_token_expires": expiresAt.UTC()},
	})
}

func (s *Store) MarkEmailVerified(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"email_verified": true},
		"$unset": bson.M{"verification_token": "", "verification_token_expires": ""},
	})
}

func (s *Store) EnableTOTP(ctx context.Context, id, encryptedSecret string) error {
	secret, enabled := auth.PersistedTOTP(encryptedSecret).Columns()
	return s.update(ctx, id, bson.M{
		"$set": bson.M{"mfa_secret": secret, "is_mfa_enabled": enabled},
	})
}

func (s *Store) DisableTOTP(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"is_mfa_enabled": false},
		"$unset": bson.M{"mfa_secret": ""},
	})
}

func (s *Store) SetEmailTwoFactor(ctx context.Context, id string, enabled bool) error {
	return s.update(ctx, id, bson.M{
		"$set": bson.M{"is_email_2fa_enabled": enabled},
	})
}

// Ping checks the server behind the collection.
func (s *Store) Ping(ctx context.Context) error {
	return mongoclient.Healthcheck(s.client)(ctx)
}

func (s *Store) find(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.user(), nil
}

// update applies change to one document and stamps updated_at.
func (s *Store) update(ctx context.Context, id string, change bson.M) error {
	set, _ := change["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		change["$set"] = set
	}
	set["updated_at"] = s.now().UTC()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, change)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}
