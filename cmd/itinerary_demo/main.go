// README: Demo; validates a trip from flags, generates an itinerary with Gemini, and prints it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"itinera/internal/ai"
	"itinera/internal/modules/itinerary"
	"itinera/internal/types"
)

func main() {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set")
	}

	start := time.Now().AddDate(0, 0, 14)
	var (
		destination = flag.String("destination", "Paris, France", "trip destination")
		startDate   = flag.String("start", start.Format(types.DateLayout), "start date (YYYY-MM-DD)")
		endDate     = flag.String("end", start.AddDate(0, 0, 4).Format(types.DateLayout), "end date (YYYY-MM-DD)")
		travelers   = flag.Int("travelers", 2, "number of travelers")
		budget      = flag.String("budget", itinerary.BudgetTiers[1], "budget tier")
		interests   = flag.String("interests", "Culture & History,Food & Dining", "comma-separated interests")
		extra       = flag.String("info", "", "additional information")
		showPrompt  = flag.Bool("prompt", false, "print the prompt before generating")
	)
	flag.Parse()

	trip, err := itinerary.Validate(itinerary.TripRequest{
		Destination:    *destination,
		StartDate:      *startDate,
		EndDate:        *endDate,
		NumTravelers:   itinerary.Travelers(*travelers),
		Budget:         *budget,
		Interests:      strings.Split(*interests, ","),
		AdditionalInfo: *extra,
	}, types.Today(time.Now(), time.Local))
	if err != nil {
		log.Fatalf("Invalid trip: %v", err)
	}

	prompt := itinerary.BuildPrompt(trip)
	if *showPrompt {
		fmt.Println(prompt)
		fmt.Println(strings.Repeat("-", 60))
	}

	ctx := context.Background()
	generator, err := ai.NewGenerator(ctx, ai.Config{APIKey: apiKey})
	if err != nil {
		log.Fatalf("Failed to initialize generator: %v", err)
	}
	defer generator.Close()

	result, err := generator.Generate(ctx, prompt)
	if err != nil {
		log.Fatalf("Error generating itinerary: %v", err)
	}

	fmt.Printf("Model: %s (generated %s)\n\n", result.Model, result.GeneratedAt.Format(time.RFC3339))
	fmt.Println(result.Text)
}
