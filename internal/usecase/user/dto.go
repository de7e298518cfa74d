package user

import domain "flyte-gateway/internal/domain/user"

// SignupRequest is the sign-up form as posted by the front end.
type SignupRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=30,username"`
	Email           string `json:"email" validate:"required,max=100,email"`
	GivenName       string `json:"given_name" validate:"required,min=2,max=50,person_name"`
	FamilyName      string `json:"family_name" validate:"required,min=2,max=50,person_name"`
	Title           string `json:"title" validate:"required,max=20,safe_text"`
	Gender          string `json:"gender" validate:"required,max=20,safe_text"`
	BornOn          string `json:"born_on" validate:"required,min_age=13"`
	PhoneNumber     string `json:"phone_number" validate:"required,min=10,phone"`
	Password        string `json:"password" validate:"required,password_bytes"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	TwitterHandle   string `json:"twitterHandle" validate:"omitempty,max=16,twitter_handle"`
	ProfilePicture  string `json:"profilePicture" validate:"omitempty,data_image"`
}

// SignupResponse confirms account creation.
type SignupResponse struct {
	Message string `json:"message"`
}

// LoginRequest carries a username or email plus password.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the profile and, when tokens are enabled, a bearer token.
type LoginResponse struct {
	User  domain.Profile `json:"user"`
	Token string         `json:"token,omitempty"`
}

// UpdateUserRequest is the edit-profile form. Empty fields leave the stored
// value alone, except TwitterHandle and ProfilePicture: nil keeps them and an
// empty string clears them.
type UpdateUserRequest struct {
	OriginalUsername string `json:"originalUsername" validate:"required"`
	Username         string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Email            string `json:"email" validate:"omitempty,max=100,email"`
	GivenName        string `json:"given_name" validate:"omitempty,min=2,max=50,person_name"`
	FamilyName       string `json:"family_name" validate:"omitempty,min=2,max=50,person_name"`
	Title            string `json:"title" validate:"omitempty,max=20,safe_text"`
	Gender           string `json:"gender" validate:"omitempty,max=20,safe_text"`
	BornOn           string `json:"born_on" validate:"omitempty,min_age=13"`
	PhoneNumber      string `json:"phone_number" validate:"omitempty,min=10,phone"`
	Password         string `json:"password" validate:"omitempty,password_bytes"`
	ConfirmPassword  string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	TwitterHandle    *string `json:"twitterHandle" validate:"omitempty,max=16,twitter_handle"`
	ProfilePicture   *string `json:"profilePicture" validate:"omitempty,data_image"`

	// Actor is the token subject, filled in by the transport when tokens are enabled.
	Actor string `json:"-"`
}

// UpdateUserResponse echoes the stored account after the edit.
type UpdateUserResponse struct {
	Message string      `json:"message"`
	User    UpdatedUser `json:"user"`
}

// UpdatedUser is the subset of the record the edit form reloads from.
type UpdatedUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Title     string `json:"title"`
	Gender    string `json:"gender"`
	DOB       string `json:"dob"`
	Phone     string `json:"phone"`
}

// GetProfileRequest looks up one account.
type GetProfileRequest struct {
	Username string `validate:"required,max=30"`

	// Actor is the token subject; with tokens enabled only the owner may read.
	Actor string `json:"-"`
}
