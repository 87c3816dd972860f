package api

import (
	"encoding/json"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/fiber/v2"

	domain "github.com/example/contacts-api/domain/user"
	"github.com/example/contacts-api/modules/contacts"
)

func (h *Handlers) currentUser(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}

// CreateContact creates a new contact for the authenticated user.
func (h *Handlers) CreateContact(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	svcReq := contacts.CreateRequest{
		UserID:  claims.UserID,
		Contact: toPayload(req),
	}
	var resp contacts.CreateResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"create-contact",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp.Contact)
}

// GetContact returns a single contact.
func (h *Handlers) GetContact(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	svcReq := contacts.GetRequest{
		UserID:    claims.UserID,
		ContactID: c.Params("id"),
	}
	var resp contacts.GetResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"get-contact",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp.Contact)
}

// UpdateContact replaces a contact's fields.
func (h *Handlers) UpdateContact(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	svcReq := contacts.UpdateRequest{
		UserID:    claims.UserID,
		ContactID: c.Params("id"),
		Contact:   toPayload(req),
	}
	var resp contacts.UpdateResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"update-contact",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp.Contact)
}

// DeleteContact removes a contact.
func (h *Handlers) DeleteContact(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	svcReq := contacts.DeleteRequest{
		UserID:    claims.UserID,
		ContactID: c.Params("id"),
	}
	var resp contacts.DeleteResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"delete-contact",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListContacts returns a page of the user's contacts.
func (h *Handlers) ListContacts(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	svcReq := contacts.ListRequest{
		UserID: claims.UserID,
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	var resp contacts.ListResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"list-contacts",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// SearchContacts finds contacts by first name, last name or email.
func (h *Handlers) SearchContacts(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	query := c.Query("q")
	if query == "" {
		return badRequest(c, "Query parameter 'q' is required")
	}

	svcReq := contacts.SearchRequest{
		UserID: claims.UserID,
		Query:  query,
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	var resp contacts.SearchResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"search-contacts",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// UpcomingBirthdays returns contacts with birthdays in the coming days.
func (h *Handlers) UpcomingBirthdays(c *fiber.Ctx) error {
	claims, ok := h.currentUser(c)
	if !ok {
		return unauthenticated(c)
	}

	svcReq := contacts.BirthdaysRequest{
		UserID: claims.UserID,
		Days:   c.QueryInt("days"),
	}
	var resp contacts.BirthdaysResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.contactsContainer,
		"upcoming-birthdays",
		json.Marshal,
		json.Unmarshal,
		&svcReq,
		&resp,
	); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func toPayload(req ContactRequest) contacts.ContactPayload {
	return contacts.ContactPayload{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		BirthDate:   req.BirthDate,
		Notes:       req.Notes,
	}
}
