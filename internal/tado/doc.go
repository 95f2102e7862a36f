// Package tado implements the authenticated client for the Tado X cloud
// API: the OAuth2 device-authorization flow, token lifecycle management,
// a resilient request layer with refresh-on-401, and typed wrappers for
// the account ("my") and Tado X ("hops") REST surfaces.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                         tado.Client                          │
//	│                                                              │
//	│  ┌───────────────┐   ┌───────────────┐   ┌───────────────┐   │
//	│  │  Token flow   │   │ Request layer │   │  API surface  │   │
//	│  │   (auth.go)   │──▶│  (client.go)  │──▶│   (api.go)    │   │
//	│  │               │   │               │   │               │   │
//	│  │ • device auth │   │ • bearer auth │   │ • rooms       │   │
//	│  │ • token poll  │   │ • 401 refresh │   │ • presence    │   │
//	│  │ • refresh     │   │ • error class │   │ • offsets     │   │
//	│  └───────────────┘   └───────────────┘   └───────────────┘   │
//	└──────────────────────────────────────────────────────────────┘
//
// # Error Model
//
// All failures are one of two kinds:
//
//   - *AuthError: the credential set is unusable (no token, refresh
//     rejected, device authorization failed). Callers should trigger a
//     re-authentication flow.
//   - *APIError: any other non-success HTTP outcome, transport failure,
//     or missing request context (unset home id).
//
// Both support errors.As; APIError additionally carries the HTTP status
// and response body for diagnostics.
//
// # Thread Safety
//
// Client is safe for concurrent use. Token refresh is single-flight:
// concurrent requests that observe a near-expired token share one
// refresh exchange rather than issuing duplicates, which matters because
// the server rotates refresh tokens and duplicate concurrent refreshes
// can invalidate each other.
package tado
