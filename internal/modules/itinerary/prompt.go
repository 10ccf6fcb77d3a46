package itinerary

import (
	"fmt"
	"strings"

	"itinera/internal/types"
)

// Duration is the trip length in days, counting both the start and end day.
func Duration(start, end types.Date) int {
	return start.DaysUntil(end) + 1
}

// BuildPrompt renders trip into the itinerary prompt. Equal trips give equal prompts.
func BuildPrompt(trip Trip) string {
	duration := Duration(trip.StartDate, trip.EndDate)
	additional := trip.AdditionalInfo
	if additional == "" {
		additional = "None"
	}

	return fmt.Sprintf(`You are an expert travel planner. Create a detailed day-by-day itinerary for the following trip:

**Trip Details:**
- Destination: %s
- Start Date: %s
- End Date: %s
- Duration: %d days
- Number of travelers: %d
- Budget: %s
- Interests: %s
- Additional information: %s

**Requirements:**
Please provide a comprehensive itinerary that includes:

1. **Daily Schedule** (Day 1 to Day %d):
   - Morning, afternoon, and evening activities
   - Specific attractions and their recommended visit times
   - Estimated time needed for each activity

2. **Dining Recommendations**:
   - Breakfast, lunch, and dinner suggestions for each day
   - Local specialties and must-try dishes
   - Restaurant recommendations with price ranges

3. **Transportation**:
   - How to get around the city/country
   - Transportation options between attractions
   - Estimated costs and travel times

4. **Accommodation Suggestions**:
   - Recommended areas to stay
   - Hotel/accommodation types within budget
   - Booking tips and considerations

5. **Cultural Highlights**:
   - Must-see attractions and landmarks
   - Cultural experiences and local customs
   - Historical significance of key sites

6. **Budget Breakdown**:
   - Estimated daily costs
   - Money-saving tips
   - Free or low-cost activities

7. **Practical Information**:
   - Best times to visit attractions
   - Weather considerations
   - Safety tips and local etiquette
   - Essential phrases (if applicable)

Format the response as a well-structured travel guide with clear headings and bullet points for easy reading.`,
		trip.Destination,
		trip.StartDate,
		trip.EndDate,
		duration,
		trip.NumTravelers,
		trip.Budget,
		strings.Join(trip.Interests, ", "),
		additional,
		duration,
	)
}
