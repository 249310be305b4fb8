package types

// Author is the (user id, username) pair copied onto a campground or comment
// when it is created. It is a snapshot: renaming the user later does not
// change it, and it is never reassigned.
type Author struct {
	ID       int    `json:"id" db:"author_id"`
	Username string `json:"username" db:"author_username"`
}
