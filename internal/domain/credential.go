package domain

// Credential is the derived view of a course/track completion NFT owned by
// a wallet. It is fetched read-only from the indexing service and never
// mutated by this application.
type Credential struct {
	Mint             string `json:"mint"`
	Owner            string `json:"owner"`
	Name             string `json:"name"`
	Image            string `json:"image,omitempty"`
	Track            string `json:"track,omitempty"`
	Level            *int   `json:"level,omitempty"`
	XP               *int64 `json:"xp,omitempty"`
	CoursesCompleted *int   `json:"courses_completed,omitempty"`
	MetadataURI      string `json:"metadata_uri,omitempty"`
	Verified         bool   `json:"verified"`
}

// VerificationResult is the outcome of looking up a single credential by
// mint. Valid=false carries a populated Error; the "DAS not configured"
// message is part of the public contract and must not change.
type VerificationResult struct {
	Valid            bool   `json:"valid"`
	Mint             string `json:"mint"`
	Owner            string `json:"owner,omitempty"`
	Name             string `json:"name,omitempty"`
	Image            string `json:"image,omitempty"`
	Track            string `json:"track,omitempty"`
	Level            *int   `json:"level,omitempty"`
	XP               *int64 `json:"xp,omitempty"`
	CoursesCompleted *int   `json:"courses_completed,omitempty"`
	MetadataURI      string `json:"metadata_uri,omitempty"`
	ExplorerURL      string `json:"explorer_url,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ErrDASNotConfigured is the exact error string surfaced by Verify when the
// indexing service has no API key. Downstream UIs branch on it.
const ErrDASNotConfigured = "DAS not configured"
