package domain

// Identity is the namespace under which per-user state is persisted:
// an authenticated user's id, or the guest sentinel for anonymous sessions.
type Identity string

const Guest Identity = "guest"

// ForUser maps an auth-store user id to an identity. An empty id means
// nobody is signed in, which is the guest session.
func ForUser(userID string) Identity {
	if userID == "" {
		return Guest
	}
	return Identity(userID)
}

func (i Identity) IsGuest() bool {
	return i == Guest
}

func (i Identity) String() string {
	return string(i)
}
