// Package models defines domain entities for the catalog import pipeline.
//
// The package contains three categories of types:
//
// 1. Unified provider shapes: transient, provider-agnostic search results
//   - [UnifiedArtist] : Artist search hit with optional popularity, followers and genres
//   - [UnifiedAlbum] : Discography entry with optional detail fields (UPC, label, duration)
//   - [GenreValue] / [ContributorValue] : Tagged unions over the raw payload shapes providers return
//
// 2. Persistent catalog entities, mapped to SQLite columns with sqlx struct tags
//   - [Artist] : Unique by name, one nullable ID slot per provider
//   - [Release] : Unique per (artist_id, title), augmented but never replaced
//   - [DiscographyCache] : Album-ID snapshot per (artist, provider)
//
// 3. Import tracking
//   - [ImportJob] : One background import with status, progress and counters
//   - [ImportLog] : One scheduled run across several playlists
//   - [ImportStats] / [ArtistResult] : Orchestrator and reconciler summaries
//
// JSON columns ([StringSlice], [Genres], [Contributors], [StreamingLinks], [PlaylistRuns])
// implement driver.Valuer and sql.Scanner.
package models
