package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/example/contacts-api/domain/contact"
)

// ErrNotFound is returned when a contact does not exist or belongs to
// another user.
var ErrNotFound = errors.New("contact not found")

// ContactRepository provides access to contact storage. Every query is
// scoped by user ID; a contact owned by another user behaves as missing.
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, c *contact.Contact) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// FindByID retrieves a contact owned by the given user.
func (r *ContactRepository) FindByID(ctx context.Context, userID, contactID string) (*contact.Contact, error) {
	var c contact.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return &c, nil
}

// FindAll returns a page of the user's contacts ordered by name.
func (r *ContactRepository) FindAll(ctx context.Context, userID string, limit, offset int) ([]contact.Contact, error) {
	var results []contact.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("first_name, last_name").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return results, nil
}

// Count returns the number of contacts owned by the user.
func (r *ContactRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&contact.Contact{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// Search finds contacts whose first name, last name or email contains the
// query, case-insensitively.
func (r *ContactRepository) Search(ctx context.Context, userID, query string, limit, offset int) ([]contact.Contact, error) {
	pattern := "%" + query + "%"
	var results []contact.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			r.db.Where("first_name LIKE ? COLLATE NOCASE", pattern).
				Or("last_name LIKE ? COLLATE NOCASE", pattern).
				Or("email LIKE ? COLLATE NOCASE", pattern),
		).
		Order("first_name, last_name").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	return results, nil
}

// Update saves the mutable fields of the contact. Returns ErrNotFound when
// the contact does not exist or belongs to another user.
func (r *ContactRepository) Update(ctx context.Context, c *contact.Contact) error {
	result := r.db.WithContext(ctx).
		Model(&contact.Contact{}).
		Where("id = ? AND user_id = ?", c.ID, c.UserID).
		Updates(map[string]any{
			"first_name":   c.FirstName,
			"last_name":    c.LastName,
			"email":        c.Email,
			"phone_number": c.PhoneNumber,
			"birth_date":   c.BirthDate,
			"notes":        c.Notes,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft-deletes the contact.
func (r *ContactRepository) Delete(ctx context.Context, userID, contactID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		Delete(&contact.Contact{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpcomingBirthdays returns the user's contacts whose birthday falls within
// the next `days` days. The window wraps over month and year boundaries, so
// a December 30th query finds January birthdays.
func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, userID string, days int, now time.Time) ([]contact.Contact, error) {
	var all []contact.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var results []contact.Contact
	for _, c := range all {
		if c.BirthDate.IsZero() {
			continue
		}
		if d := daysUntilBirthday(today, c.BirthDate); d >= 0 && d <= days {
			results = append(results, c)
		}
	}
	return results, nil
}

// daysUntilBirthday computes the number of days from today until the next
// occurrence of the birth date's month and day.
func daysUntilBirthday(today, birthDate time.Time) int {
	next := time.Date(today.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(today).Hours() / 24)
}
