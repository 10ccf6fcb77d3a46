package itinerary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"itinera/internal/types"
)

// Rule identifies the first validation rule a request violated.
type Rule string

const (
	RuleDestinationRequired  Rule = "destination_required"
	RuleStartDateRequired    Rule = "start_date_required"
	RuleEndDateRequired      Rule = "end_date_required"
	RuleBudgetRequired       Rule = "budget_required"
	RuleInterestsRequired    Rule = "interests_required"
	RuleStartDateInvalid     Rule = "start_date_invalid"
	RuleStartDateInPast      Rule = "start_date_in_past"
	RuleEndDateInvalid       Rule = "end_date_invalid"
	RuleEndDateNotAfterStart Rule = "end_date_not_after_start"
	RuleNumTravelersInvalid  Rule = "num_travelers_invalid"
	RuleBudgetUnknown        Rule = "budget_unknown"
)

var ruleMessages = map[Rule]string{
	RuleDestinationRequired:  "destination is required",
	RuleStartDateRequired:    "start date is required",
	RuleEndDateRequired:      "end date is required",
	RuleBudgetRequired:       "budget is required",
	RuleInterestsRequired:    "select at least one interest",
	RuleStartDateInvalid:     "start date is not a valid date",
	RuleStartDateInPast:      "start date cannot be in the past",
	RuleEndDateInvalid:       "end date is not a valid date",
	RuleEndDateNotAfterStart: "end date must be after start date",
	RuleNumTravelersInvalid:  fmt.Sprintf("number of travelers must be a whole number from 1 to %d", MaxTravelers),
	RuleBudgetUnknown:        "budget must be one of the offered budget ranges",
}

// ValidationError reports the violated rule.
type ValidationError struct {
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func violation(r Rule) *ValidationError {
	return &ValidationError{Rule: r, Message: ruleMessages[r]}
}

// RuleOf extracts the violated rule from err, if it is a validation error.
func RuleOf(err error) (Rule, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Rule, true
	}
	return "", false
}

// requiredFields mirrors TripRequest's required members in check order.
type requiredFields struct {
	Destination string   `validate:"required"`
	StartDate   string   `validate:"required"`
	EndDate     string   `validate:"required"`
	Budget      string   `validate:"required"`
	Interests   []string `validate:"required,min=1"`
}

var requiredRules = map[string]Rule{
	"Destination": RuleDestinationRequired,
	"StartDate":   RuleStartDateRequired,
	"EndDate":     RuleEndDateRequired,
	"Budget":      RuleBudgetRequired,
	"Interests":   RuleInterestsRequired,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks req against today and returns the normalized trip.
// Checks short-circuit on the first failure.
func Validate(req TripRequest, today types.Date) (Trip, error) {
	fields := requiredFields{
		Destination: strings.TrimSpace(req.Destination),
		StartDate:   strings.TrimSpace(req.StartDate),
		EndDate:     strings.TrimSpace(req.EndDate),
		Budget:      strings.TrimSpace(req.Budget),
		Interests:   trimInterests(req.Interests),
	}
	if err := validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if rule, ok := requiredRules[verrs[0].StructField()]; ok {
				return Trip{}, violation(rule)
			}
		}
		return Trip{}, fmt.Errorf("validate trip request: %w", err)
	}

	start, err := types.ParseDate(fields.StartDate)
	if err != nil {
		return Trip{}, violation(RuleStartDateInvalid)
	}
	if start.Before(today) {
		return Trip{}, violation(RuleStartDateInPast)
	}

	end, err := types.ParseDate(fields.EndDate)
	if err != nil {
		return Trip{}, violation(RuleEndDateInvalid)
	}
	if !end.After(start) {
		return Trip{}, violation(RuleEndDateNotAfterStart)
	}

	travelers, err := req.NumTravelers.Int()
	if err != nil {
		return Trip{}, violation(RuleNumTravelersInvalid)
	}

	if !IsBudgetTier(fields.Budget) {
		return Trip{}, violation(RuleBudgetUnknown)
	}

	return Trip{
		Destination:    fields.Destination,
		StartDate:      start,
		EndDate:        end,
		NumTravelers:   travelers,
		Budget:         fields.Budget,
		Interests:      fields.Interests,
		AdditionalInfo: strings.TrimSpace(req.AdditionalInfo),
	}, nil
}

// trimInterests drops blank entries and surrounding whitespace, keeping order.
func trimInterests(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
