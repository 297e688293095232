package users

// User is a devserver account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	UserName     string
	Email        string
	Roles        []string
	PasswordHash []byte
}

// Info is the public part of User returned at login as "userInfo".
type Info struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (u *User) Info() Info {
	return Info{UserID: u.ID, UserName: u.UserName, Email: u.Email, Roles: u.Roles}
}
