package contacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/contacts-api/domain/contact"
)

// ContactsModule provides contact management services.
type ContactsModule struct {
	db      *gorm.DB
	service *ContactService
	dbPath  string
}

// Compile-time interface checks.
var _ mono.Module = (*ContactsModule)(nil)
var _ mono.ServiceProviderModule = (*ContactsModule)(nil)
var _ mono.HealthCheckableModule = (*ContactsModule)(nil)

// NewModule creates a new ContactsModule.
func NewModule() *ContactsModule {
	dbPath := os.Getenv("CONTACTS_DB_PATH")
	if dbPath == "" {
		dbPath = "contacts.db"
	}
	return &ContactsModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *ContactsModule) Name() string {
	return "contacts"
}

// sqliteDSN appends a busy timeout so writers from other modules sharing
// the database file wait instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	return path + "?_busy_timeout=5000"
}

// Start initializes the contacts module.
func (m *ContactsModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(sqliteDSN(m.dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Contact{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewContactService(NewContactRepository(db))

	log.Printf("[contacts] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *ContactsModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[contacts] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *ContactsModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ContactsModule) RegisterServices(container mono.ServiceContainer) error {
	services := []struct {
		name     string
		register func() error
	}{
		{"create-contact", func() error {
			return helper.RegisterTypedRequestReplyService(container, "create-contact",
				json.Unmarshal, json.Marshal, m.handleCreate)
		}},
		{"get-contact", func() error {
			return helper.RegisterTypedRequestReplyService(container, "get-contact",
				json.Unmarshal, json.Marshal, m.handleGet)
		}},
		{"update-contact", func() error {
			return helper.RegisterTypedRequestReplyService(container, "update-contact",
				json.Unmarshal, json.Marshal, m.handleUpdate)
		}},
		{"delete-contact", func() error {
			return helper.RegisterTypedRequestReplyService(container, "delete-contact",
				json.Unmarshal, json.Marshal, m.handleDelete)
		}},
		{"list-contacts", func() error {
			return helper.RegisterTypedRequestReplyService(container, "list-contacts",
				json.Unmarshal, json.Marshal, m.handleList)
		}},
		{"search-contacts", func() error {
			return helper.RegisterTypedRequestReplyService(container, "search-contacts",
				json.Unmarshal, json.Marshal, m.handleSearch)
		}},
		{"upcoming-birthdays", func() error {
			return helper.RegisterTypedRequestReplyService(container, "upcoming-birthdays",
				json.Unmarshal, json.Marshal, m.handleBirthdays)
		}},
	}

	for _, svc := range services {
		if err := svc.register(); err != nil {
			return fmt.Errorf("failed to register %s service: %w", svc.name, err)
		}
	}

	log.Printf("[contacts] Registered services: create-contact, get-contact, update-contact, delete-contact, list-contacts, search-contacts, upcoming-birthdays")
	return nil
}

func (m *ContactsModule) handleCreate(ctx context.Context, req CreateRequest, _ *mono.Msg) (CreateResponse, error) {
	resp, err := m.service.Create(ctx, req)
	if err != nil {
		return CreateResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleGet(ctx context.Context, req GetRequest, _ *mono.Msg) (GetResponse, error) {
	resp, err := m.service.Get(ctx, req)
	if err != nil {
		return GetResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleUpdate(ctx context.Context, req UpdateRequest, _ *mono.Msg) (UpdateResponse, error) {
	resp, err := m.service.Update(ctx, req)
	if err != nil {
		return UpdateResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleDelete(ctx context.Context, req DeleteRequest, _ *mono.Msg) (DeleteResponse, error) {
	resp, err := m.service.Delete(ctx, req)
	if err != nil {
		return DeleteResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleList(ctx context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	resp, err := m.service.List(ctx, req)
	if err != nil {
		return ListResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleSearch(ctx context.Context, req SearchRequest, _ *mono.Msg) (SearchResponse, error) {
	resp, err := m.service.Search(ctx, req)
	if err != nil {
		return SearchResponse{}, err
	}
	return *resp, nil
}

func (m *ContactsModule) handleBirthdays(ctx context.Context, req BirthdaysRequest, _ *mono.Msg) (BirthdaysResponse, error) {
	resp, err := m.service.UpcomingBirthdays(ctx, req)
	if err != nil {
		return BirthdaysResponse{}, err
	}
	return *resp, nil
}
