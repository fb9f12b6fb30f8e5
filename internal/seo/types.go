package seo

import (
	"fmt"
	"time"
)

// LinkDirection distinguishes inbound from outbound backlinks.
type LinkDirection string

// Accepted link directions.
const (
	LinkDirectionIn  LinkDirection = "in"
	LinkDirectionOut LinkDirection = "out"
)

// ParseLinkDirection validates a direction string from the API surface.
// An empty string defaults to "in", the common lookup.
func ParseLinkDirection(s string) (LinkDirection, error) {
	switch LinkDirection(s) {
	case "":
		return LinkDirectionIn, nil
	case LinkDirectionIn:
		return LinkDirectionIn, nil
	case LinkDirectionOut:
		return LinkDirectionOut, nil
	default:
		return "", fmt.Errorf("invalid link direction %q (want %q or %q)", s, LinkDirectionIn, LinkDirectionOut)
	}
}

// TargetMetrics is the Ahrefs view of a target domain.
type TargetMetrics struct {
	DomainRating    float64
	AhrefsRank      int64
	OrganicTraffic  int64
	OrganicKeywords int64
	Backlinks       int64
	RefDomains      int64
}

// TrafficMetrics is the SimilarWeb view of a target domain.
type TrafficMetrics struct {
	MonthlyVisits    float64
	BounceRate       float64
	PagesPerVisit    float64
	AvgVisitDuration float64 // seconds
	Category         string
}

// Backlink is a single link edge reported by Ahrefs.
type Backlink struct {
	SourceURL    string
	TargetURL    string
	SourceDomain string
	Direction    LinkDirection
	FirstSeen    time.Time
}

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
