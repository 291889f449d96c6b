package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/normalize"
	"github.com/bughive/bughive-server/internal/store"
)

// Persisted shapes. References are ObjectIDs so that the data stays
// readable by tools that populate them with $lookup.

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Username     string               `bson:"username"`
	UsernameKey  string               `bson:"usernameKey"`
	Name         string               `bson:"name,omitempty"`
	Email        string               `bson:"email"`
	EmailKey     string               `bson:"emailKey"`
	PasswordHash string               `bson:"passwordHash"`
	DarkMode     bool                 `bson:"darkMode"`
	Bugs         []primitive.ObjectID `bson:"bugs"`
	Tags         []primitive.ObjectID `bson:"tags"`
}

type bugDoc struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Title        string               `bson:"title"`
	Description  string               `bson:"description,omitempty"`
	LastModified time.Time            `bson:"lastModified"`
	References   []string             `bson:"references"`
	Tags         []primitive.ObjectID `bson:"tags"`
	User         primitive.ObjectID   `bson:"user"`
}

type tagDoc struct {
	ID       primitive.ObjectID   `bson:"_id"`
	Title    string               `bson:"title"`
	TitleKey string               `bson:"titleKey"`
	Bugs     []primitive.ObjectID `bson:"bugs"`
	User     primitive.ObjectID   `bson:"user"`
}

func toOID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrInvalidInput.WithMessage("malformatted id").WithCause(err)
	}
	return oid, nil
}

func toOIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := toOID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func fromOIDs(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func toUserDoc(u *domain.User) (*userDoc, error) {
	oid, err := toOID(u.ID)
	if err != nil {
		return nil, err
	}
	bugs, err := toOIDs(u.Bugs)
	if err != nil {
		return nil, err
	}
	tags, err := toOIDs(u.Tags)
	if err != nil {
		return nil, err
	}
	return &userDoc{
		ID:           oid,
		Username:     u.Username,
		UsernameKey:  store.UsernameKey(u.Username),
		Name:         u.Name,
		Email:        u.Email,
		EmailKey:     store.EmailKey(u.Email),
		PasswordHash: u.PasswordHash,
		DarkMode:     u.DarkMode,
		Bugs:         bugs,
		Tags:         tags,
	}, nil
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		DarkMode:     d.DarkMode,
		Bugs:         fromOIDs(d.Bugs),
		Tags:         fromOIDs(d.Tags),
	}
}

func toBugDoc(b *domain.Bug) (*bugDoc, error) {
	oid, err := toOID(b.ID)
	if err != nil {
		return nil, err
	}
	owner, err := toOID(b.User)
	if err != nil {
		return nil, err
	}
	tags, err := toOIDs(b.Tags)
	if err != nil {
		return nil, err
	}
	refs := b.References
	if refs == nil {
		refs = []string{}
	}
	return &bugDoc{
		ID:           oid,
		Title:        b.Title,
		Description:  b.Description,
		LastModified: b.LastModified.UTC(),
		References:   refs,
		Tags:         tags,
		User:         owner,
	}, nil
}

func (d *bugDoc) toDomain() *domain.Bug {
	refs := d.References
	if refs == nil {
		refs = []string{}
	}
	return &domain.Bug{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		LastModified: d.LastModified.UTC(),
		References:   refs,
		Tags:         fromOIDs(d.Tags),
		User:         d.User.Hex(),
	}
}

func toTagDoc(t *domain.Tag) (*tagDoc, error) {
	oid, err := toOID(t.ID)
	if err != nil {
		return nil, err
	}
	owner, err := toOID(t.User)
	if err != nil {
		return nil, err
	}
	bugs, err := toOIDs(t.Bugs)
	if err != nil {
		return nil, err
	}
	return &tagDoc{
		ID:       oid,
		Title:    t.Title,
		TitleKey: normalize.Key(t.Title),
		Bugs:     bugs,
		User:     owner,
	}, nil
}

func (d *tagDoc) toDomain() *domain.Tag {
	return &domain.Tag{
		ID:    d.ID.Hex(),
		Title: d.Title,
		Bugs:  fromOIDs(d.Bugs),
		User:  d.User.Hex(),
	}
}
