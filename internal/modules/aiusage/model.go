// README: Generation quota model. Each user gets a monthly allowance of itinerary generations.
package aiusage

import "errors"

// ErrQuotaExhausted is returned when a user has no generations remaining for the current month.
var ErrQuotaExhausted = errors.New("monthly generation quota exhausted")

// DefaultMonthlyGenerations is the allowance used when configuration does not set one.
const DefaultMonthlyGenerations = 30

const monthLayout = "2006-01"
