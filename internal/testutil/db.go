// Package testutil provides an isolated in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bettersystems/crm-api/internal/database"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a fresh in-memory sqlite database with the full schema.
// Each call gets its own database, so tests can run in parallel.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the shared-cache memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.Models()...))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateTestClient inserts a lead client with the given name and email
func CreateTestClient(t *testing.T, db *gorm.DB, name, email string) *domain.Client {
	t.Helper()
	client := &domain.Client{
		Name:   name,
		Email:  email,
		Status: domain.ClientStatusLead,
		Tags:   datatypes.JSONSlice[string]{},
	}
	require.NoError(t, db.Omit(clause.Associations).Create(client).Error)
	return client
}

// CreateTestDeal inserts an active deal owned by clientID
func CreateTestDeal(t *testing.T, db *gorm.DB, clientID uint, name string, hourlyRate *float64) *domain.Deal {
	t.Helper()
	deal := &domain.Deal{
		ClientID:   clientID,
		Name:       name,
		Stage:      domain.DealStageActive,
		Priority:   domain.PriorityMedium,
		HourlyRate: hourlyRate,
		Tags:       datatypes.JSONSlice[string]{},
	}
	require.NoError(t, db.Omit(clause.Associations).Create(deal).Error)
	return deal
}

// CreateTestTicket inserts a ticket; fn may adjust fields before insert
func CreateTestTicket(t *testing.T, db *gorm.DB, fn func(*domain.SupportTicket)) *domain.SupportTicket {
	t.Helper()
	ticket := &domain.SupportTicket{
		ApplicationSource: domain.ApplicationSourceDirect,
		Title:             "Test ticket",
		Description:       "Something is broken",
		Priority:          domain.PriorityMedium,
		Status:            domain.TicketStatusPending,
	}
	if fn != nil {
		fn(ticket)
	}
	require.NoError(t, db.Omit(clause.Associations).Create(ticket).Error)
	return ticket
}

// CreateTestInvoice inserts an open invoice for the client with totals applied
func CreateTestInvoice(t *testing.T, db *gorm.DB, clientID uint, dealID *uint, number string, subtotal, paid float64) *domain.Invoice {
	t.Helper()
	inv := &domain.Invoice{
		ClientID:      clientID,
		DealID:        dealID,
		InvoiceNumber: number,
		Subtotal:      subtotal,
		AmountPaid:    paid,
		Currency:      "USD",
		Status:        domain.InvoiceStatusOpen,
		LineItems:     datatypes.JSONSlice[domain.InvoiceLineItem]{},
	}
	inv.ApplyTotals()
	require.NoError(t, db.Omit(clause.Associations).Create(inv).Error)
	return inv
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}
