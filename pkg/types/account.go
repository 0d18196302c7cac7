package types

// Account holds the credentials used to establish an authenticated
// browser session. UID doubles as the session name: the persistent
// profile directory for the account is derived from it.
type Account struct {
	// UID is the account number. The persistent profile directory for
	// the account is named after it.
	UID string `json:"uid" yaml:"uid" validate:"required"`

	// Email is the login identifier typed into the login form.
	Email string `json:"email" yaml:"email" validate:"required"`

	// Password is the account password. It is never logged.
	Password string `json:"password" yaml:"password" validate:"required"`
}

// PostContent describes the material published by the posting workflow.
type PostContent struct {
	// ImagePath is the local path of the image to attach.
	ImagePath string `json:"image_path" validate:"required"`

	// Caption is the optional text placed on the post itself.
	Caption string `json:"caption,omitempty"`

	// Comment is the text submitted as the first comment after the
	// post is published.
	Comment string `json:"comment" validate:"required"`
}
