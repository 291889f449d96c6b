// Package id generates and validates identifiers.
//
// Documents use 24-character hex object ids so that stored data stays
// interchangeable with MongoDB. Tokens use prefixed NanoIDs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// New returns a fresh document id. Ids sort by creation time.
func New() string {
	return primitive.NewObjectID().Hex()
}

// Valid reports whether s is a well-formed document id.
func Valid(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "token-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Parse returns the canonical lower-case form of a document id.
func Parse(s string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}
