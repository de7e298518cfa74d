package security

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validation tags registered by RegisterUserRules
const (
	TagUsername   = "username"
	TagPersonName = "person_name"
	TagPhone      = "phone"
	TagTwitter    = "twitter_handle"
	TagMinAge     = "min_age"
	TagDataImage  = "data_image"
	TagSafeText   = "safe_text"
	TagPassword   = "password_bytes"
)

// DateLayout is the wire format of dates of birth
const DateLayout = "2006-01-02"

// MaxPasswordBytes is the longest input bcrypt accepts; longer passwords fail to hash.
const MaxPasswordBytes = 72

// MaxProfilePictureBytes bounds the inline data URL stored with the user record
const MaxProfilePictureBytes = 2 << 20

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	twitterPattern    = regexp.MustCompile(`^@?[A-Za-z0-9_]+$`)
	dataImagePattern  = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp);base64,[A-Za-z0-9+/=]+$`)
)

// markupPatterns catch script injection in free-text fields echoed back to the browser
var markupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(<script|</script|javascript:|vbscript:|onload=|onerror=)`),
	regexp.MustCompile(`[<>]`),
}

// Clock returns the current time; overridden in tests.
type Clock func() time.Time

// RegisterUserRules installs the account form rules on v.
// now is used by min_age; nil means time.Now.
func RegisterUserRules(v *validator.Validate, now Clock) error {
	if now == nil {
		now = time.Now
	}

	rules := map[string]validator.Func{
		TagUsername:   matches(usernamePattern),
		TagPersonName: matches(personNamePattern),
		TagPhone:      matches(phonePattern),
		TagTwitter:    matches(twitterPattern),
		TagDataImage: func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) <= MaxProfilePictureBytes && dataImagePattern.MatchString(s)
		},
		TagPassword: func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= MaxPasswordBytes
		},
		TagSafeText: func(fl validator.FieldLevel) bool {
			return IsSafeText(fl.Field().String())
		},
		TagMinAge: func(fl validator.FieldLevel) bool {
			years, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			born, err := time.Parse(DateLayout, fl.Field().String())
			if err != nil {
				return false
			}
			return AgeOn(born, now()) >= years
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// AgeOn returns the age in whole years of someone born on born, measured on day.
func AgeOn(born, day time.Time) int {
	age := day.Year() - born.Year()
	if day.Month() < born.Month() || (day.Month() == born.Month() && day.Day() < born.Day()) {
		age--
	}
	return age
}

// IsSafeText reports whether s is free of markup
func IsSafeText(s string) bool {
	for _, pattern := range markupPatterns {
		if pattern.MatchString(s) {
			return false
		}
	}
	return true
}

// NormalizeEmail lowercases and trims an email for comparisons
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

