package contacts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func setupTestContactService(t *testing.T) *ContactService {
	t.Helper()
	return NewContactService(NewContactRepository(setupTestDB(t)))
}

func validPayload() ContactPayload {
	return ContactPayload{
		FirstName:   "Alice",
		LastName:    "Smith",
		Email:       "alice@example.com",
		PhoneNumber: "+1234567890",
		BirthDate:   "1990-06-15",
	}
}

func TestContactService_CreateAndGet(t *testing.T) {
	svc := setupTestContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: validPayload()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Contact.ID == "" {
		t.Error("expected non-empty contact ID")
	}
	if created.Contact.BirthDate != "1990-06-15" {
		t.Errorf("expected birth date 1990-06-15, got %q", created.Contact.BirthDate)
	}

	got, err := svc.Get(ctx, GetRequest{UserID: "user-a", ContactID: created.Contact.ID})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Contact.FirstName != "Alice" {
		t.Errorf("expected first name Alice, got %q", got.Contact.FirstName)
	}

	t.Run("foreign user cannot get", func(t *testing.T) {
		_, err := svc.Get(ctx, GetRequest{UserID: "user-b", ContactID: created.Contact.ID})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestContactService_Validation(t *testing.T) {
	svc := setupTestContactService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ContactPayload)
	}{
		{"missing first name", func(p *ContactPayload) { p.FirstName = "  " }},
		{"first name too long", func(p *ContactPayload) { p.FirstName = strings.Repeat("x", 101) }},
		{"bad email", func(p *ContactPayload) { p.Email = "not-an-email" }},
		{"bad birth date", func(p *ContactPayload) { p.BirthDate = "15/06/1990" }},
		{"notes too long", func(p *ContactPayload) { p.Notes = strings.Repeat("x", 501) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(&payload)
			_, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: payload})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	t.Run("empty birth date is allowed", func(t *testing.T) {
		payload := validPayload()
		payload.BirthDate = ""
		created, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: payload})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.Contact.BirthDate != "" {
			t.Errorf("expected empty birth date, got %q", created.Contact.BirthDate)
		}
	})
}

func TestContactService_Update(t *testing.T) {
	svc := setupTestContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: validPayload()})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	payload := validPayload()
	payload.FirstName = "Alicia"
	payload.PhoneNumber = "+9876543210"

	updated, err := svc.Update(ctx, UpdateRequest{
		UserID:    "user-a",
		ContactID: created.Contact.ID,
		Contact:   payload,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Contact.FirstName != "Alicia" {
		t.Errorf("expected first name Alicia, got %q", updated.Contact.FirstName)
	}
	if updated.Contact.PhoneNumber != "+9876543210" {
		t.Errorf("expected updated phone, got %q", updated.Contact.PhoneNumber)
	}

	t.Run("unknown contact", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdateRequest{
			UserID:    "user-a",
			ContactID: "non-existent-id",
			Contact:   validPayload(),
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestContactService_List(t *testing.T) {
	svc := setupTestContactService(t)
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		payload := validPayload()
		payload.FirstName = name
		payload.Email = strings.ToLower(name) + "@example.com"
		if _, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: payload}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	resp, err := svc.List(ctx, ListRequest{UserID: "user-a"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(resp.Contacts) != 3 {
		t.Errorf("expected 3 contacts, got %d", len(resp.Contacts))
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}

	t.Run("limit is clamped", func(t *testing.T) {
		resp, err := svc.List(ctx, ListRequest{UserID: "user-a", Limit: 10000})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(resp.Contacts) != 3 {
			t.Errorf("expected 3 contacts, got %d", len(resp.Contacts))
		}
	})

	t.Run("empty for other user", func(t *testing.T) {
		resp, err := svc.List(ctx, ListRequest{UserID: "user-b"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(resp.Contacts) != 0 || resp.Total != 0 {
			t.Errorf("expected no contacts for user-b, got %d (total %d)", len(resp.Contacts), resp.Total)
		}
	})
}

func TestContactService_Search(t *testing.T) {
	svc := setupTestContactService(t)
	ctx := context.Background()

	payload := validPayload()
	if _, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: payload}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	resp, err := svc.Search(ctx, SearchRequest{UserID: "user-a", Query: "ali"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Contacts) != 1 {
		t.Errorf("expected 1 result, got %d", len(resp.Contacts))
	}

	t.Run("blank query rejected", func(t *testing.T) {
		_, err := svc.Search(ctx, SearchRequest{UserID: "user-a", Query: "   "})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestContactService_UpcomingBirthdays(t *testing.T) {
	svc := setupTestContactService(t)
	svc.now = func() time.Time {
		return time.Date(2025, time.December, 30, 12, 0, 0, 0, time.UTC)
	}
	ctx := context.Background()

	add := func(name, birthDate string) {
		payload := validPayload()
		payload.FirstName = name
		payload.BirthDate = birthDate
		if _, err := svc.Create(ctx, CreateRequest{UserID: "user-a", Contact: payload}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	add("InWindow", "1990-01-02")
	add("Outside", "1990-03-15")

	resp, err := svc.UpcomingBirthdays(ctx, BirthdaysRequest{UserID: "user-a"})
	if err != nil {
		t.Fatalf("UpcomingBirthdays() error = %v", err)
	}
	if len(resp.Contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(resp.Contacts))
	}
	if resp.Contacts[0].FirstName != "InWindow" {
		t.Errorf("expected InWindow, got %q", resp.Contacts[0].FirstName)
	}
}
