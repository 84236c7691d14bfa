// Package services defines the [Provider] interface for music metadata catalogs and implements it
// for Deezer and Spotify, plus the [Aggregator] that combines them.
//
// # Provider Interface
//
// A provider answers two questions with a common shape: who is this artist
// ([models.UnifiedArtist]) and what have they released ([models.UnifiedAlbum]). SearchArtist returns
// nil without an error when the catalog has no match so callers can tell "unknown" apart from
// "unreachable".
//
// # Deezer Implementation
//
// [DeezerClient] talks to the public API without credentials. Album summaries are enriched with
// /album/{id} detail (UPC, label, duration, genres, contributors, explicit flags) on a bounded
// [errgroup.Group]; details are memoized in a [cache.Cache]. Deezer reports some failures, including
// quota exhaustion, as {"error": {...}} bodies with status 200. These are surfaced as [DeezerError].
//
// # Spotify Implementation
//
// [SpotifyClient] authenticates with the client-credentials flow. Album summaries are enriched in
// batches of 20 through /albums?ids=.
//
// # Transport
//
// Both providers share [APIClient]: a token-bucket [rate.Limiter] per provider, a User-Agent header
// and bounded exponential backoff for 429 and 5xx responses that honours Retry-After.
//
// # Aggregation
//
// [Aggregator.FindArtist] prefers the primary provider and consults the fallback when the primary
// found nothing, failed, or returned an artist without albums. Every call is counted in [Stats].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrRateLimited] : 429 or provider quota exceeded after retries
//   - [shared.ErrMissingCredentials] : Spotify client credentials not configured
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
package services
