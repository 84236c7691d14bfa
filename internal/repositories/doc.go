// Package repositories implements SQLite persistence for the catalog and import tracking tables.
//
// Key Implementations:
//   - [ArtistRepository] : Artists unique by name, additive provider-ID backfill, stale sweeps
//   - [ReleaseRepository] : Releases unique per (artist_id, title), lookups by provider ID or title
//   - [DiscographyCacheRepository] : Album-ID snapshots replaced wholesale per (artist, source)
//   - [ImportJobRepository] : Import job rows with guarded status transitions
//   - [ImportLogRepository] : Scheduled-run logs written at start and completion
//
// UNIQUE constraint violations surface as [shared.ErrAlreadyExists]; callers treat them as an
// expected outcome under concurrent imports rather than a failure. Missing rows surface as
// [shared.ErrNotFound] (or [shared.ErrJobNotFound] for jobs).
package repositories
