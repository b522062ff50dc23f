package protocol

import (
	"context"

	"github.com/credentio/credentio/pkg/models"
)

// PassportSource provides read-only passport snapshots from the external
// passport store.
type PassportSource interface {
	GetPassportSnapshot(ctx context.Context, clinicianID string) (*models.Passport, error)
}

// RequirementsSource provides destination requirement checklists from the
// external requirements-template service.
type RequirementsSource interface {
	GetRequirementsChecklist(ctx context.Context, destinationID string, destinationType models.DestinationType) (*models.RequirementsChecklist, error)
}
