package category

// Category is a distinct book category and how many books carry it.
type Category struct {
	Name      string `json:"name"`
	BookCount int    `json:"bookCount"`
}
