package model

// User is the slice of the users collection this core reads: just enough to
// resolve a creator id into a display name.
type User struct {
	ID        string `firestore:"id"`
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
}

// DisplayName returns "First Last", tolerating either part being empty.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
