package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/contacts-api/domain/contact"
)

// ErrValidation is returned when contact fields fail validation.
var ErrValidation = errors.New("validation failed")

const (
	defaultPageSize = 20
	maxPageSize     = 100

	defaultBirthdayWindow = 7

	// BirthDateLayout is the wire format for birth dates.
	BirthDateLayout = "2006-01-02"
)

// ContactService implements contact management on top of ContactRepository.
// Every operation is scoped to the calling user.
type ContactService struct {
	repo *ContactRepository
	now  func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(repo *ContactRepository) *ContactService {
	return &ContactService{
		repo: repo,
		now:  time.Now,
	}
}

// Create adds a new contact for the user.
func (s *ContactService) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	birthDate, err := validatePayload(req.Contact)
	if err != nil {
		return nil, err
	}

	c := &contact.Contact{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		FirstName:   strings.TrimSpace(req.Contact.FirstName),
		LastName:    strings.TrimSpace(req.Contact.LastName),
		Email:       strings.TrimSpace(req.Contact.Email),
		PhoneNumber: strings.TrimSpace(req.Contact.PhoneNumber),
		BirthDate:   birthDate,
		Notes:       req.Contact.Notes,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	return &CreateResponse{Contact: toView(c)}, nil
}

// Get returns a single contact owned by the user.
func (s *ContactService) Get(ctx context.Context, req GetRequest) (*GetResponse, error) {
	c, err := s.repo.FindByID(ctx, req.UserID, req.ContactID)
	if err != nil {
		return nil, err
	}
	return &GetResponse{Contact: toView(c)}, nil
}

// Update replaces the mutable fields of a contact owned by the user.
func (s *ContactService) Update(ctx context.Context, req UpdateRequest) (*UpdateResponse, error) {
	birthDate, err := validatePayload(req.Contact)
	if err != nil {
		return nil, err
	}

	c := &contact.Contact{
		ID:          req.ContactID,
		UserID:      req.UserID,
		FirstName:   strings.TrimSpace(req.Contact.FirstName),
		LastName:    strings.TrimSpace(req.Contact.LastName),
		Email:       strings.TrimSpace(req.Contact.Email),
		PhoneNumber: strings.TrimSpace(req.Contact.PhoneNumber),
		BirthDate:   birthDate,
		Notes:       req.Contact.Notes,
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, req.UserID, req.ContactID)
	if err != nil {
		return nil, err
	}

	return &UpdateResponse{Contact: toView(updated)}, nil
}

// Delete removes a contact owned by the user.
func (s *ContactService) Delete(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	if err := s.repo.Delete(ctx, req.UserID, req.ContactID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Deleted: true}, nil
}

// List returns a page of the user's contacts together with the total count.
func (s *ContactService) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	limit, offset := clampPage(req.Limit, req.Offset)

	results, err := s.repo.FindAll(ctx, req.UserID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return &ListResponse{Contacts: toViews(results), Total: total}, nil
}

// Search finds the user's contacts matching the query by first name, last
// name or email.
func (s *ContactService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", ErrValidation)
	}

	limit, offset := clampPage(req.Limit, req.Offset)

	results, err := s.repo.Search(ctx, req.UserID, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{Contacts: toViews(results)}, nil
}

// UpcomingBirthdays returns contacts whose birthday falls within the next
// `days` days, defaulting to one week.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, req BirthdaysRequest) (*BirthdaysResponse, error) {
	days := req.Days
	if days <= 0 {
		days = defaultBirthdayWindow
	}
	if days > 366 {
		days = 366
	}

	results, err := s.repo.UpcomingBirthdays(ctx, req.UserID, days, s.now())
	if err != nil {
		return nil, err
	}

	return &BirthdaysResponse{Contacts: toViews(results)}, nil
}

func validatePayload(p ContactPayload) (time.Time, error) {
	if strings.TrimSpace(p.FirstName) == "" {
		return time.Time{}, fmt.Errorf("%w: first name is required", ErrValidation)
	}
	if len(p.FirstName) > 100 || len(p.LastName) > 100 {
		return time.Time{}, fmt.Errorf("%w: name must be at most 100 characters", ErrValidation)
	}
	if p.Email != "" && (!strings.Contains(p.Email, "@") || len(p.Email) > 250) {
		return time.Time{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(p.Notes) > 500 {
		return time.Time{}, fmt.Errorf("%w: notes must be at most 500 characters", ErrValidation)
	}

	var birthDate time.Time
	if p.BirthDate != "" {
		parsed, err := time.Parse(BirthDateLayout, p.BirthDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: birth date must be YYYY-MM-DD", ErrValidation)
		}
		birthDate = parsed
	}

	return birthDate, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toView(c *contact.Contact) ContactView {
	birthDate := ""
	if !c.BirthDate.IsZero() {
		birthDate = c.BirthDate.Format(BirthDateLayout)
	}

	return ContactView{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
		BirthDate:   birthDate,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toViews(list []contact.Contact) []ContactView {
	views := make([]ContactView, 0, len(list))
	for i := range list {
		views = append(views, toView(&list[i]))
	}
	return views
}
