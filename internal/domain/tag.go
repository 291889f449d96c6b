package domain

// Tag labels a set of bugs belonging to the same user. Titles are unique per
// user after normalization.
type Tag struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Bugs  []string `json:"bugs"`
	User  string   `json:"user"`
}

func (t Tag) DocID() string   { return t.ID }
func (t Tag) OwnerID() string { return t.User }
func (t Tag) Kind() Kind      { return KindTag }
