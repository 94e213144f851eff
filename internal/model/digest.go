package model

import "time"

// Cache operation names. Every expensive call a run makes is memoized under
// one of these, partitioned by date.
const (
	OpPosts   = "posts"
	OpNews    = "news"
	OpSummary = "summary"
)

// Digest is the finished daily artifact: every extracted entity mapped to its
// summary. A nil summary means enrichment failed for that entity and the rest
// of the digest went ahead without it.
type Digest struct {
	Date        string             `json:"date"`
	GeneratedAt time.Time          `json:"generated_at"`
	LatestNews  map[string]*string `json:"latest_news"`
}
