package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRequestMessage checks the introduction message attached to a
// contact request: required, at most 200 characters.
func ValidateRequestMessage(message string) ValidationErrors {
	errs := make(ValidationErrors)

	message = strings.TrimSpace(message)
	if message == "" {
		errs.Add("message", "Request message is required")
	} else if utf8.RuneCountInString(message) > 200 {
		errs.Add("message", "Request message must be at most 200 characters")
	}

	return errs
}

// ValidateUsername checks the shape of a username used to address a
// contact request.
func ValidateUsername(username string) ValidationErrors {
	errs := make(ValidationErrors)

	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 50 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _ and -")
	}

	return errs
}

// ValidateProfile checks the mutable profile fields.
func ValidateProfile(displayName, about string) ValidationErrors {
	errs := make(ValidationErrors)

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if len(displayName) < 2 {
		errs.Add("display_name", "Display name must be at least 2 characters")
	} else if len(displayName) > 100 {
		errs.Add("display_name", "Display name is too long")
	}

	if utf8.RuneCountInString(about) > 500 {
		errs.Add("about", "About is too long")
	}

	return errs
}

// ValidateEmoji checks a reaction emoji key: non-empty and short. A full
// emoji grammar is out of scope; this rejects the obviously malformed.
func ValidateEmoji(emoji string) ValidationErrors {
	errs := make(ValidationErrors)

	if emoji == "" {
		errs.Add("emoji", "Emoji is required")
	} else if utf8.RuneCountInString(emoji) > 8 {
		errs.Add("emoji", "Emoji is too long")
	} else if strings.ContainsAny(emoji, " \t\n") {
		errs.Add("emoji", "Emoji cannot contain whitespace")
	}

	return errs
}
