// package repositories provides persistence layer implementations for all model types.
//
// Each repository wraps a [sqlx.DB] and maps rows onto the models package's db-tagged structs.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// sourceColumn returns the per-provider ID column name for source.
//
// Column names are interpolated into SQL, so only known sources are accepted.
func sourceColumn(source models.Source) (string, error) {
	switch source {
	case models.SourceDeezer:
		return "deezer_id", nil
	case models.SourceSpotify:
		return "spotify_id", nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, source)
	}
}

// notFound converts [sql.ErrNoRows] into [shared.ErrNotFound] with context.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

// now returns the current time in UTC so TEXT timestamps compare lexically.
func now() time.Time {
	return time.Now().UTC()
}
