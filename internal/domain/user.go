package domain

// User is an account. Bugs and Tags hold the ids of every document the user
// owns and are maintained by the services, never by clients.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"passwordHash,omitempty"` // never rendered by the API
	DarkMode     bool     `json:"darkMode"`
	Bugs         []string `json:"bugs"`
	Tags         []string `json:"tags"`
}

func (u User) DocID() string   { return u.ID }
func (u User) OwnerID() string { return u.ID }
func (u User) Kind() Kind      { return KindUser }
