// Package tasks runs the import orchestrator over playlist-derived artist lists and the stored catalog.
//
// # Core Operations
//
// [Importer] exposes five synchronous entry points:
//
//  1. [Importer.ImportFromPlaylist] : Parse one playlist and process each distinct artist
//     - A playlist that cannot be parsed fails the whole call
//
//  2. [Importer.ImportFromMultiplePlaylists] : Parse several playlists, then process the union of their artists
//     - Parse failures are itemized in [models.ImportStats.Errors]
//     - Artists appearing on several playlists are resolved once
//
//  3. [Importer.UpdateAllArtists] : Refresh every artist that carries a provider ID
//
//  4. [Importer.UpdateExistingArtists] : Refresh artists outside the stale window
//
//  5. [Importer.BackfillReleaseDates] : Fill missing release dates from the fallback provider
//
// Artists are processed one at a time with a fixed delay in between. A failed artist is
// recorded and the loop moves on.
//
// # Progress Reporting
//
// Each entry point takes an optional [ProgressFunc]. It is called once before the first artist and
// after every artist with a [ProgressUpdate] carrying a copy of the running stats. Returning an error
// from the callback stops the run; the same error is returned to the caller. The job runner uses this
// to implement cancellation.
package tasks
