// Package catalog reconciles provider search results against stored artists and releases.
//
// # Reconciliation
//
// Artists are keyed by exact name. Provider IDs are added to an existing row only when the
// slot for that provider is empty; a populated slot is never overwritten.
//
// Releases are unique per (artist_id, title). For each album returned by a provider the
// [Reconciler] either creates a release, augments an existing one with fields it lacks, or
// skips it. The UNIQUE constraint is the guard against concurrent imports of the same artist:
// an insert that loses the race is treated as "already exists" and routed to augmentation.
//
// # Discography Cache
//
// After a successful pass the full list of provider album IDs for (artist, source) replaces the
// cached list. On the next pass over a pre-existing artist, cached IDs are counted as skipped
// without touching the releases table, so repeat imports cost O(new albums).
package catalog
