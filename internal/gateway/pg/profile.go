package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pmallory/tripsync/internal/gateway"
)

// Profile returns the profile row for a user id. Profiles are provisioned by
// the auth layer, so there is no insert path here.
func (g *Gateway) Profile(ctx context.Context, userID string) (gateway.ProfileRow, error) {
	const q = `
		SELECT id::text, email, display_name, avatar_url, locale, timezone,
		       created_at, updated_at, deleted_at
		FROM profiles
		WHERE id = @id AND deleted_at IS NULL`

	var (
		p       gateway.ProfileRow
		deleted pgtype.Timestamptz
	)

	row := g.db.QueryRow(ctx, q, pgx.NamedArgs{"id": userID})
	err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Locale,
		&p.Timezone, &p.CreatedAt, &p.UpdatedAt, &deleted)
	if err != nil {
		return gateway.ProfileRow{}, fmt.Errorf("pg.Gateway.Profile: %w", notFound(err))
	}

	p.DeletedAt = timePtr(deleted)
	return p, nil
}
