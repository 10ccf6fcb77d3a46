package itinerary

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinera/internal/types"
)

var today = types.Date{Year: 2025, Month: time.May, Day: 20}

func parisRequest() TripRequest {
	return TripRequest{
		Destination:  "Paris, France",
		StartDate:    "2025-06-01",
		EndDate:      "2025-06-05",
		NumTravelers: Travelers(2),
		Budget:       "Mid-range ($1000-$3000)",
		Interests:    []string{"Culture & History", "Food & Dining"},
	}
}

func TestValidateAcceptsParisTrip(t *testing.T) {
	trip, err := Validate(parisRequest(), today)
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", trip.Destination)
	assert.Equal(t, types.Date{Year: 2025, Month: time.June, Day: 1}, trip.StartDate)
	assert.Equal(t, types.Date{Year: 2025, Month: time.June, Day: 5}, trip.EndDate)
	assert.Equal(t, 2, trip.NumTravelers)
	assert.Equal(t, []string{"Culture & History", "Food & Dining"}, trip.Interests)
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TripRequest)
		want   Rule
	}{
		{"blank destination", func(r *TripRequest) { r.Destination = "  " }, RuleDestinationRequired},
		{"missing start", func(r *TripRequest) { r.StartDate = "" }, RuleStartDateRequired},
		{"missing end", func(r *TripRequest) { r.EndDate = "" }, RuleEndDateRequired},
		{"missing budget", func(r *TripRequest) { r.Budget = "" }, RuleBudgetRequired},
		{"no interests", func(r *TripRequest) { r.Interests = nil }, RuleInterestsRequired},
		{"blank interests", func(r *TripRequest) { r.Interests = []string{"", " "} }, RuleInterestsRequired},
		{"bad start", func(r *TripRequest) { r.StartDate = "June 1st" }, RuleStartDateInvalid},
		{"past start", func(r *TripRequest) { r.StartDate = "2025-05-19" }, RuleStartDateInPast},
		{"bad end", func(r *TripRequest) { r.EndDate = "2025-13-01" }, RuleEndDateInvalid},
		{"end equals start", func(r *TripRequest) { r.EndDate = r.StartDate }, RuleEndDateNotAfterStart},
		{"end before start", func(r *TripRequest) { r.EndDate = "2025-05-30" }, RuleEndDateNotAfterStart},
		{"zero travelers", func(r *TripRequest) { r.NumTravelers = Travelers(0) }, RuleNumTravelersInvalid},
		{"too many travelers", func(r *TripRequest) { r.NumTravelers = Travelers(MaxTravelers + 1) }, RuleNumTravelersInvalid},
		{"unknown budget", func(r *TripRequest) { r.Budget = "Cheap" }, RuleBudgetUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := parisRequest()
			tc.mutate(&req)
			_, err := Validate(req, today)
			require.Error(t, err)
			rule, ok := RuleOf(err)
			require.True(t, ok, "expected a validation error, got %v", err)
			assert.Equal(t, tc.want, rule)
		})
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	req := TripRequest{StartDate: "not-a-date", Budget: "Cheap"}
	_, err := Validate(req, today)
	rule, _ := RuleOf(err)
	assert.Equal(t, RuleDestinationRequired, rule)

	req = parisRequest()
	req.StartDate = "2025-05-01"
	req.EndDate = "2025-04-01"
	req.Budget = "Cheap"
	_, err = Validate(req, today)
	rule, _ = RuleOf(err)
	assert.Equal(t, RuleStartDateInPast, rule)
}

func TestValidateStartTodayAllowed(t *testing.T) {
	req := parisRequest()
	req.StartDate = "2025-05-20"
	_, err := Validate(req, today)
	require.NoError(t, err)
}

func TestValidateTrimsAndDefaults(t *testing.T) {
	req := parisRequest()
	req.Destination = "  Kyoto  "
	req.NumTravelers = TravelerCount{}
	req.Interests = []string{" Food & Dining ", "", "Nightlife"}
	req.AdditionalInfo = "  vegetarian  "

	trip, err := Validate(req, today)
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", trip.Destination)
	assert.Equal(t, 1, trip.NumTravelers)
	assert.Equal(t, []string{"Food & Dining", "Nightlife"}, trip.Interests)
	assert.Equal(t, "vegetarian", trip.AdditionalInfo)
}

func TestValidateInterestsOutsideCatalog(t *testing.T) {
	req := parisRequest()
	req.Interests = []string{"Jazz clubs"}
	_, err := Validate(req, today)
	require.NoError(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	req := parisRequest()
	req.StartDate = "2025-01-01"
	_, err := Validate(req, today)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start date cannot be in the past", ve.Message)
	assert.Contains(t, err.Error(), string(RuleStartDateInPast))
}

func TestTravelerCountDecoding(t *testing.T) {
	cases := []struct {
		body    string
		want    int
		wantErr bool
	}{
		{`{"numTravelers": 3}`, 3, false},
		{`{"numTravelers": "4"}`, 4, false},
		{`{"numTravelers": 2.0}`, 2, false},
		{`{"numTravelers": null}`, 1, false},
		{`{"numTravelers": ""}`, 1, false},
		{`{}`, 1, false},
		{`{"numTravelers": 2.5}`, 0, true},
		{`{"numTravelers": "two"}`, 0, true},
		{`{"numTravelers": -1}`, 0, true},
		{`{"numTravelers": 50}`, 50, false},
		{`{"numTravelers": 51}`, 0, true},
		{`{"numTravelers": 3000000000}`, 0, true},
		{`{"numTravelers": "3000000000"}`, 0, true},
		{`{"numTravelers": 1e12}`, 0, true},
	}
	for _, tc := range cases {
		var req TripRequest
		require.NoError(t, json.Unmarshal([]byte(tc.body), &req), tc.body)
		n, err := req.NumTravelers.Int()
		if tc.wantErr {
			assert.Error(t, err, tc.body)
			continue
		}
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.want, n, tc.body)
	}
}

// Counts the itineraries table cannot hold are rejected before any generation call.
func TestValidateRejectsOversizedParty(t *testing.T) {
	var req TripRequest
	body := `{"destination":"Paris, France","startDate":"2025-06-01","endDate":"2025-06-05",` +
		`"numTravelers":3000000000,"budget":"Mid-range ($1000-$3000)","interests":["Food & Dining"]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	_, err := Validate(req, today)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, RuleNumTravelersInvalid, ve.Rule)
	assert.Contains(t, ve.Message, "1 to 50")
}

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 20}, NewPage(0, 0))
	assert.Equal(t, Page{Page: 3, Limit: 100}, NewPage(3, 500))
	assert.Equal(t, 40, NewPage(3, 20).Offset())
}
