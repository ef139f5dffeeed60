package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"walletgate/internal/directory/models"
	id "walletgate/pkg/domain"
)

// SeedOrganizations loads a fixed set of receiving organizations for local
// runs. Ids are derived from the names so reseeding is a no-op.
func SeedOrganizations(ctx context.Context, s interface {
	Save(ctx context.Context, e *models.Entry) error
}) error {
	now := time.Now()
	for _, name := range []string{"Heifer Relief Fund", "4-H Youth Livestock Program", "Rural Veterinary Alliance"} {
		e := &models.Entry{
			ID:        id.EntryID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("walletgate:directory:"+name))),
			Type:      models.EntryOrganization,
			Name:      name,
			CreatedAt: now,
		}
		if err := s.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
