package model

// Recipient is a fan that should be notified about an event.
type Recipient struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Language string `json:"language,omitempty"`
}

// Address returns the contact address used for delivery, preferring email.
func (r Recipient) Address() string {
	if r.Email != "" {
		return r.Email
	}

	return r.Phone
}

// IsAddressable reports whether the recipient has at least one contact address.
func (r Recipient) IsAddressable() bool {
	return r.Address() != ""
}
