// Package dto holds the JSON shapes the API renders. Reference lists are
// expanded into small projections of the referenced documents.
package dto

import (
	"time"

	"github.com/bughive/bughive-server/internal/domain"
)

// TagSummary is a tag as shown inside a bug.
type TagSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Bug is a bug with its tags expanded.
type Bug struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	LastModified time.Time    `json:"lastModified"`
	References   []string     `json:"references"`
	Tags         []TagSummary `json:"tags"`
	User         string       `json:"user"`
}

// BugSummary is a bug as shown inside a tag.
type BugSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	LastModified time.Time `json:"lastModified"`
	References   []string  `json:"references"`
}

// Tag is a tag with its bugs expanded.
type Tag struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Bugs  []BugSummary `json:"bugs"`
	User  string       `json:"user"`
}

// UserBug is a bug as shown inside a user. Tags stay ids.
type UserBug struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	LastModified time.Time `json:"lastModified"`
	References   []string  `json:"references"`
	Tags         []string  `json:"tags"`
}

// UserTag is a tag as shown inside a user. Bugs stay ids.
type UserTag struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Bugs  []string `json:"bugs"`
}

// User is a user with bugs and tags expanded. It never carries the
// password hash.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email"`
	DarkMode bool      `json:"darkMode"`
	Bugs     []UserBug `json:"bugs"`
	Tags     []UserTag `json:"tags"`
}

// Account is a user as returned by registration and profile updates, with
// reference lists left as ids.
type Account struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email"`
	DarkMode bool     `json:"darkMode"`
	Bugs     []string `json:"bugs"`
	Tags     []string `json:"tags"`
}

// NewAccount projects u without its password hash.
func NewAccount(u *domain.User) *Account {
	return &Account{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		DarkMode: u.DarkMode,
		Bugs:     nonNil(u.Bugs),
		Tags:     nonNil(u.Tags),
	}
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
