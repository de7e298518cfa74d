package user

import "flyte-gateway/pkg/security"

// User is an account record as persisted in the user file.
// JSON names match the records the sign-up and edit forms have always written.
type User struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	GivenName      string `json:"given_name,omitempty"`
	FamilyName     string `json:"family_name,omitempty"`
	Title          string `json:"title"`
	Gender         string `json:"gender"`
	DOB            string `json:"dob"`
	Phone          string `json:"phone"`
	Password       string `json:"password"`
	Twitter        string `json:"twitter,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Profile is the password-free view of a User returned to clients.
type Profile struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Title          string `json:"title"`
	Gender         string `json:"gender"`
	DOB            string `json:"dob"`
	Phone          string `json:"phone"`
	Twitter        string `json:"twitter,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Profile strips the password.
func (u *User) Profile() Profile {
	return Profile{
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Title:          u.Title,
		Gender:         u.Gender,
		DOB:            u.DOB,
		Phone:          u.Phone,
		Twitter:        u.Twitter,
		ProfilePicture: u.ProfilePicture,
	}
}

// MatchesLogin reports whether identifier names this user: the username
// exactly, or the email after security.NormalizeEmail, as the SQL store does.
func (u *User) MatchesLogin(identifier string) bool {
	if u.Username == identifier {
		return true
	}
	email := security.NormalizeEmail(identifier)
	return email != "" && security.NormalizeEmail(u.Email) == email
}

// ConflictsWith reports whether u and other share a username or email.
// Email comparison is exact, as signup has always checked duplicates.
func (u *User) ConflictsWith(other *User) bool {
	return u.Username == other.Username || u.Email == other.Email
}

// SetNames keeps the legacy firstName/lastName pair and the form's
// given_name/family_name pair in step.
func (u *User) SetNames(given, family string) {
	u.FirstName = given
	u.LastName = family
	u.GivenName = given
	u.FamilyName = family
}
