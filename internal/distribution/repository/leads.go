package repository

import (
	"context"
	"errors"
	"fmt"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const getLeadQuery = `
	SELECT id, city, state, postal_code, home_size_sqft, areas_needed, insulation_types,
	       contact_name, contact_email, contact_phone, created_at
	FROM leads
	WHERE id = $1`

// GetLead loads a lead written by intake.
func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	var l domain.Lead
	err := r.conn(ctx).QueryRow(ctx, getLeadQuery, leadID).Scan(
		&l.ID, &l.Location.City, &l.Location.State, &l.Location.PostalCode,
		&l.Scope.HomeSizeSqft, &l.Scope.AreasNeeded, &l.Scope.InsulationTypes,
		&l.Contact.Name, &l.Contact.Email, &l.Contact.Phone, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}
