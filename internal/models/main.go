// Package models defines the core data structures shared by the session gate,
// the chat exchange and the contact form.
package models

// User is the single account record kept in a client's local storage.
// The password is stored and compared as plain text; the record is a demo
// gate, not an identity.
type User struct {
	// Name is the display name entered at signup.
	Name string `json:"name"`
	// Mobile is up to 10 digits and identifies the record.
	Mobile string `json:"mobile"`
	// Password is compared verbatim on login.
	Password string `json:"password"`
}

// Role tells who authored a chat message.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleBot marks a reply from the external responder (or the fallback).
	RoleBot Role = "bot"
)

// Message is one turn of the conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ContactForm is the payload relayed to the forms service.
type ContactForm struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

// Local storage keys. The names match what the browser client used.
const (
	// UserKey holds the JSON-encoded User.
	UserKey = "user"
	// LoggedInKey holds the session flag.
	LoggedInKey = "isLoggedIn"
	// LoggedInValue is the value written when the session flag is set.
	LoggedInValue = "true"
)
