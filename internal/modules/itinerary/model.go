// README: Itinerary aggregate, trip request shapes, and catalog definitions.
package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"itinera/internal/types"
)

var (
	ErrNotFound = errors.New("itinerary not found")
	ErrStorage  = errors.New("itinerary storage failure")
)

// Budget tiers offered by the trip form. Requests must use one of these labels.
var BudgetTiers = []string{
	"Budget (Under $1000)",
	"Mid-range ($1000-$3000)",
	"Luxury ($3000-$10000)",
	"Ultra-luxury ($10000+)",
}

// InterestCatalog lists the suggested interests. Requests are not restricted to it.
var InterestCatalog = []string{
	"Culture & History",
	"Food & Dining",
	"Adventure & Outdoor",
	"Shopping",
	"Nightlife",
	"Museums & Art",
	"Nature & Wildlife",
	"Photography",
	"Architecture",
	"Local Experiences",
	"Relaxation & Wellness",
	"Sports & Recreation",
}

func IsBudgetTier(v string) bool {
	for _, b := range BudgetTiers {
		if b == v {
			return true
		}
	}
	return false
}

// TripRequest is the caller-supplied trip form, decoded as-is.
type TripRequest struct {
	Destination    string        `json:"destination"`
	StartDate      string        `json:"startDate"`
	EndDate        string        `json:"endDate"`
	NumTravelers   TravelerCount `json:"numTravelers"`
	Budget         string        `json:"budget"`
	Interests      []string      `json:"interests"`
	AdditionalInfo string        `json:"additionalInfo,omitempty"`
}

// MaxTravelers is the largest party a single itinerary is planned for.
const MaxTravelers = 50

// TravelerCount decodes from a JSON number or a numeric string.
// An absent or empty value means one traveler.
type TravelerCount struct {
	raw string
}

// Travelers builds a TravelerCount from n.
func Travelers(n int) TravelerCount {
	return TravelerCount{raw: strconv.Itoa(n)}
}

func (c *TravelerCount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		c.raw = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		c.raw = strings.TrimSpace(str)
		return nil
	}
	c.raw = s
	return nil
}

func (c TravelerCount) MarshalJSON() ([]byte, error) {
	n, err := c.Int()
	if err != nil {
		return json.Marshal(c.raw)
	}
	return []byte(strconv.Itoa(n)), nil
}

// Int returns the traveler count. It fails for non-integers and values outside 1..MaxTravelers.
func (c TravelerCount) Int() (int, error) {
	if c.raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(c.raw)
	if err != nil {
		// JSON numbers such as 2.0 are still whole.
		f, ferr := strconv.ParseFloat(c.raw, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, errors.New("traveler count must be a whole number")
		}
		if f > MaxTravelers {
			return 0, fmt.Errorf("traveler count must be at most %d", MaxTravelers)
		}
		n = int(f)
	}
	if n < 1 {
		return 0, errors.New("traveler count must be at least 1")
	}
	if n > MaxTravelers {
		return 0, fmt.Errorf("traveler count must be at most %d", MaxTravelers)
	}
	return n, nil
}

// Trip is a validated, normalized TripRequest.
type Trip struct {
	Destination    string
	StartDate      types.Date
	EndDate        types.Date
	NumTravelers   int
	Budget         string
	Interests      []string
	AdditionalInfo string
}

// Owner is the snapshot of the authenticated caller stored with each record.
type Owner struct {
	UID   string
	Email string
	Name  string
}

// Content is the generated body plus provenance, stored as one JSON document.
type Content struct {
	GeneratedText string    `json:"generated_text"`
	GeneratedAt   time.Time `json:"generated_at"`
	PromptUsed    string    `json:"prompt_used"`
	Model         string    `json:"model,omitempty"`
	UserEmail     string    `json:"user_email"`
	UserName      string    `json:"user_name"`
}

// Place is the geocoded destination, when available.
type Place struct {
	FormattedAddress string  `json:"formatted_address"`
	PlaceID          string  `json:"place_id"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Record is a persisted itinerary. It is never updated after creation.
type Record struct {
	ID             uuid.UUID
	OwnerID        string
	Destination    string
	StartDate      types.Date
	EndDate        types.Date
	NumTravelers   int
	Budget         string
	Interests      []string
	AdditionalInfo string
	Content        Content
	Place          *Place
	CreatedAt      time.Time
}

// Page selects a window of a caller's itineraries. Page is 1-indexed.
type Page struct {
	Page  int
	Limit int
}

// NewPage applies defaults (page 1, limit 20) and caps limit at 100.
func NewPage(page, limit int) Page {
	p := Page{Page: 1, Limit: 20}
	if page >= 1 {
		p.Page = page
	}
	if limit >= 1 {
		p.Limit = limit
		if p.Limit > 100 {
			p.Limit = 100
		}
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}
