package contacts

// ContactPayload carries the mutable fields of a contact.
type ContactPayload struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	BirthDate   string `json:"birth_date"`
	Notes       string `json:"notes,omitempty"`
}

// ContactView is the contact representation returned by every service.
type ContactView struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	BirthDate   string `json:"birth_date"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateRequest is the request for the create-contact service.
type CreateRequest struct {
	UserID  string         `json:"user_id"`
	Contact ContactPayload `json:"contact"`
}

// CreateResponse is the response from the create-contact service.
type CreateResponse struct {
	Contact ContactView `json:"contact"`
}

// GetRequest is the request for the get-contact service.
type GetRequest struct {
	UserID    string `json:"user_id"`
	ContactID string `json:"contact_id"`
}

// GetResponse is the response from the get-contact service.
type GetResponse struct {
	Contact ContactView `json:"contact"`
}

// UpdateRequest is the request for the update-contact service.
type UpdateRequest struct {
	UserID    string         `json:"user_id"`
	ContactID string         `json:"contact_id"`
	Contact   ContactPayload `json:"contact"`
}

// UpdateResponse is the response from the update-contact service.
type UpdateResponse struct {
	Contact ContactView `json:"contact"`
}

// DeleteRequest is the request for the delete-contact service.
type DeleteRequest struct {
	UserID    string `json:"user_id"`
	ContactID string `json:"contact_id"`
}

// DeleteResponse is the response from the delete-contact service.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ListRequest is the request for the list-contacts service.
type ListRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ListResponse is the response from the list-contacts service.
type ListResponse struct {
	Contacts []ContactView `json:"contacts"`
	Total    int64         `json:"total"`
}

// SearchRequest is the request for the search-contacts service.
type SearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// SearchResponse is the response from the search-contacts service.
type SearchResponse struct {
	Contacts []ContactView `json:"contacts"`
}

// BirthdaysRequest is the request for the upcoming-birthdays service.
type BirthdaysRequest struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days"`
}

// BirthdaysResponse is the response from the upcoming-birthdays service.
type BirthdaysResponse struct {
	Contacts []ContactView `json:"contacts"`
}
