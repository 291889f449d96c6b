// Package domain defines BugHive's persisted documents.
package domain

// Kind names a document collection.
type Kind string

const (
	KindUser Kind = "user"
	KindBug  Kind = "bug"
	KindTag  Kind = "tag"
)

// Plural returns the collection name used in messages: "bugs", "tags", "users".
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Owned is implemented by every document that belongs to a user. A user owns
// itself.
type Owned interface {
	DocID() string
	OwnerID() string
	Kind() Kind
}

// OwnedBy reports whether userID owns o.
func OwnedBy(o Owned, userID string) bool {
	return userID != "" && o.OwnerID() == userID
}
