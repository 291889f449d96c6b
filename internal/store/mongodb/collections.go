package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/normalize"
	"github.com/bughive/bughive-server/internal/store"
)

// Unique index names, used to report which field collided.
const (
	indexUsername = "username_unique"
	indexEmail    = "email_unique"
	indexTagTitle = "user_title_unique"
)

var uniqueFields = map[string]string{
	indexUsername: "username",
	indexEmail:    "email",
	indexTagTitle: "title",
}

// coll is a collection handle bound to an optional transaction session.
type coll struct {
	c       *mongo.Collection
	session mongo.Session
}

func (c coll) ctx(ctx context.Context) context.Context {
	if c.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, c.session)
}

func (c coll) findOne(ctx context.Context, filter bson.M, dst any) error {
	err := c.c.FindOne(c.ctx(ctx), filter).Decode(dst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func (c coll) getByID(ctx context.Context, id string, dst any) error {
	oid, err := toOID(id)
	if err != nil {
		// A malformed id cannot name a document.
		return store.ErrNotFound
	}
	return c.findOne(ctx, bson.M{"_id": oid}, dst)
}

func (c coll) insert(ctx context.Context, doc any) error {
	_, err := c.c.InsertOne(c.ctx(ctx), doc)
	return mapWriteError(err)
}

func (c coll) replace(ctx context.Context, id any, doc any) error {
	res, err := c.c.ReplaceOne(c.ctx(ctx), bson.M{"_id": id}, doc)
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c coll) delete(ctx context.Context, id string) error {
	oid, err := toOID(id)
	if err != nil {
		return nil
	}
	_, err = c.c.DeleteOne(c.ctx(ctx), bson.M{"_id": oid})
	return err
}

// find decodes every document matching filter, ordered by _id.
func find[D any, T any](ctx context.Context, c coll, filter bson.M, conv func(*D) *T) ([]*T, error) {
	cursor, err := c.c.Find(c.ctx(ctx), filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*T{}
	for cursor.Next(ctx) {
		var doc D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, conv(&doc))
	}
	return out, cursor.Err()
}

// buildFilter translates a store.Filter. ownerField is "_id" for users and
// "user" for owned documents; refFields are the arrays searched for Ref.
func buildFilter(f store.Filter, ownerField string, refFields ...string) (bson.M, error) {
	var conds []bson.M

	if f.Owner != "" {
		oid, err := toOID(f.Owner)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{ownerField: oid})
	}
	if f.Ref != "" {
		oid, err := toOID(f.Ref)
		if err != nil {
			return nil, err
		}
		var alts []bson.M
		for _, field := range refFields {
			alts = append(alts, bson.M{field: oid})
		}
		if len(alts) == 1 {
			conds = append(conds, alts[0])
		} else {
			conds = append(conds, bson.M{"$or": alts})
		}
	}
	if f.IDs != nil {
		oids, err := toOIDs(f.IDs)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"_id": bson.M{"$in": oids}})
	}

	switch len(conds) {
	case 0:
		return bson.M{}, nil
	case 1:
		return conds[0], nil
	default:
		return bson.M{"$and": conds}, nil
	}
}

func mapWriteError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for index, field := range uniqueFields {
		if strings.Contains(msg, index) {
			return store.UniqueViolation(field).WithCause(err)
		}
	}
	return store.UniqueViolation("id").WithCause(err)
}

type users struct{ coll }

func (r *users) Get(ctx context.Context, id string) (*domain.User, error) {
	var d userDoc
	if err := r.getByID(ctx, id, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var d userDoc
	if err := r.findOne(ctx, bson.M{"emailKey": store.EmailKey(email)}, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *users) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var d userDoc
	if err := r.findOne(ctx, bson.M{"usernameKey": store.UsernameKey(username)}, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *users) Find(ctx context.Context, f store.Filter) ([]*domain.User, error) {
	if f.Empty() {
		return []*domain.User{}, nil
	}
	filter, err := buildFilter(f, "_id", "bugs", "tags")
	if err != nil {
		return nil, err
	}
	return find(ctx, r.coll, filter, (*userDoc).toDomain)
}

func (r *users) Insert(ctx context.Context, u *domain.User) error {
	d, err := toUserDoc(u)
	if err != nil {
		return err
	}
	return r.insert(ctx, d)
}

func (r *users) Replace(ctx context.Context, u *domain.User) error {
	d, err := toUserDoc(u)
	if err != nil {
		return err
	}
	return r.replace(ctx, d.ID, d)
}

func (r *users) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

type bugs struct{ coll }

func (r *bugs) Get(ctx context.Context, id string) (*domain.Bug, error) {
	var d bugDoc
	if err := r.getByID(ctx, id, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *bugs) Find(ctx context.Context, f store.Filter) ([]*domain.Bug, error) {
	if f.Empty() {
		return []*domain.Bug{}, nil
	}
	filter, err := buildFilter(f, "user", "tags")
	if err != nil {
		return nil, err
	}
	return find(ctx, r.coll, filter, (*bugDoc).toDomain)
}

func (r *bugs) Insert(ctx context.Context, b *domain.Bug) error {
	d, err := toBugDoc(b)
	if err != nil {
		return err
	}
	return r.insert(ctx, d)
}

func (r *bugs) Replace(ctx context.Context, b *domain.Bug) error {
	d, err := toBugDoc(b)
	if err != nil {
		return err
	}
	return r.replace(ctx, d.ID, d)
}

func (r *bugs) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

type tags struct{ coll }

func (r *tags) Get(ctx context.Context, id string) (*domain.Tag, error) {
	var d tagDoc
	if err := r.getByID(ctx, id, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *tags) GetByTitle(ctx context.Context, owner, title string) (*domain.Tag, error) {
	oid, err := toOID(owner)
	if err != nil {
		return nil, store.ErrNotFound
	}
	var d tagDoc
	if err := r.findOne(ctx, bson.M{"user": oid, "titleKey": normalize.Key(title)}, &d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *tags) Find(ctx context.Context, f store.Filter) ([]*domain.Tag, error) {
	if f.Empty() {
		return []*domain.Tag{}, nil
	}
	filter, err := buildFilter(f, "user", "bugs")
	if err != nil {
		return nil, err
	}
	return find(ctx, r.coll, filter, (*tagDoc).toDomain)
}

func (r *tags) Insert(ctx context.Context, t *domain.Tag) error {
	d, err := toTagDoc(t)
	if err != nil {
		return err
	}
	return r.insert(ctx, d)
}

func (r *tags) Replace(ctx context.Context, t *domain.Tag) error {
	d, err := toTagDoc(t)
	if err != nil {
		return err
	}
	return r.replace(ctx, d.ID, d)
}

func (r *tags) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}
