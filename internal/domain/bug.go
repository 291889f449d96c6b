package domain

import "time"

// Bug is a tracked defect. User is fixed at creation.
type Bug struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	LastModified time.Time `json:"lastModified"`
	References   []string  `json:"references"`
	Tags         []string  `json:"tags"`
	User         string    `json:"user"`
}

func (b Bug) DocID() string   { return b.ID }
func (b Bug) OwnerID() string { return b.User }
func (b Bug) Kind() Kind      { return KindBug }

// Touch sets LastModified. The server clock is authoritative.
func (b *Bug) Touch(now time.Time) {
	b.LastModified = now.UTC()
}
