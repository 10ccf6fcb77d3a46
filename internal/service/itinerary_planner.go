package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"itinera/internal/ai"
	"itinera/internal/infra"
	"itinera/internal/maps"
	"itinera/internal/metrics"
	"itinera/internal/modules/itinerary"
	"itinera/internal/types"
)

// Stage names the pipeline step a generation request reached.
type Stage string

const (
	StageReceived      Stage = "received"
	StageAuthenticated Stage = "authenticated"
	StageValidated     Stage = "validated"
	StageGenerating    Stage = "generating"
	StagePersisting    Stage = "persisting"
	StageCompleted     Stage = "completed"
)

const (
	defaultPersistAttempts = 3
	defaultGeocodeTimeout  = 5 * time.Second
	stashTimeout           = 2 * time.Second
)

// ErrMissingToken is returned when no bearer token accompanies a request.
var ErrMissingToken = errors.New("missing bearer token")

// StageError is a pipeline failure tagged with the stage that failed.
// UID is set once the caller has been authenticated.
type StageError struct {
	Stage Stage
	UID   string
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageAuthenticated:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case StageValidated:
		return e.Err.Error()
	case StageGenerating:
		return fmt.Sprintf("itinerary generation failed: %v", e.Err)
	case StagePersisting:
		return fmt.Sprintf("failed to save itinerary: %v", e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of err, if it came from the planner.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

type ItineraryRepository interface {
	Create(ctx context.Context, rec itinerary.Record) (itinerary.Record, error)
	GetByOwner(ctx context.Context, owner string, id uuid.UUID) (itinerary.Record, error)
	ListByOwner(ctx context.Context, owner string, page itinerary.Page) ([]itinerary.Record, int, error)
}

type PendingResults interface {
	Save(ctx context.Context, owner, prompt string, g itinerary.Generated) error
	Load(ctx context.Context, owner, prompt string) (itinerary.Generated, bool, error)
	Drop(ctx context.Context, owner, prompt string) error
}

type GenerationQuota interface {
	Consume(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string) error
	Remaining(ctx context.Context, uid string) (int, error)
}

type Geocoder interface {
	Locate(ctx context.Context, destination string) (maps.Location, error)
}

// ItineraryPlannerDeps wires the planner. Pending, Quota and Geocoder are optional.
type ItineraryPlannerDeps struct {
	Verifier        infra.TokenVerifier
	Generator       ai.TextGenerator
	Store           ItineraryRepository
	Pending         PendingResults
	Quota           GenerationQuota
	Geocoder        Geocoder
	Logger          *zap.Logger
	Location        *time.Location
	PersistAttempts int
	GeocodeTimeout  time.Duration
	Now             func() time.Time
}

// ItineraryPlanner runs the generate-and-save pipeline and serves the read views.
type ItineraryPlanner struct {
	verifier        infra.TokenVerifier
	generator       ai.TextGenerator
	store           ItineraryRepository
	pending         PendingResults
	quota           GenerationQuota
	geocoder        Geocoder
	log             *zap.Logger
	loc             *time.Location
	persistAttempts int
	geocodeTimeout  time.Duration
	now             func() time.Time
	newBackOff      func() backoff.BackOff
}

func NewItineraryPlanner(deps ItineraryPlannerDeps) *ItineraryPlanner {
	p := &ItineraryPlanner{
		verifier:        deps.Verifier,
		generator:       deps.Generator,
		store:           deps.Store,
		pending:         deps.Pending,
		quota:           deps.Quota,
		geocoder:        deps.Geocoder,
		log:             deps.Logger,
		loc:             deps.Location,
		persistAttempts: deps.PersistAttempts,
		geocodeTimeout:  deps.GeocodeTimeout,
		now:             deps.Now,
		newBackOff:      func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.persistAttempts < 1 {
		p.persistAttempts = defaultPersistAttempts
	}
	if p.geocodeTimeout <= 0 {
		p.geocodeTimeout = defaultGeocodeTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Authenticate verifies bearerToken and returns the caller.
func (p *ItineraryPlanner) Authenticate(ctx context.Context, bearerToken string) (itinerary.Owner, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" {
		return itinerary.Owner{}, fmt.Errorf("%w: %w", infra.ErrInvalidToken, ErrMissingToken)
	}
	id, err := p.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		if !errors.Is(err, infra.ErrInvalidToken) {
			err = fmt.Errorf("%w: %v", infra.ErrInvalidToken, err)
		}
		return itinerary.Owner{}, err
	}
	if id == nil || id.UID == "" {
		return itinerary.Owner{}, fmt.Errorf("%w: token has no subject", infra.ErrInvalidToken)
	}
	return itinerary.Owner{UID: id.UID, Email: id.Email, Name: id.DisplayName()}, nil
}

// Generate authenticates the caller, validates req, generates the itinerary and saves it.
// Every failure is a *StageError naming the stage that failed.
func (p *ItineraryPlanner) Generate(ctx context.Context, bearerToken string, req itinerary.TripRequest) (itinerary.Record, error) {
	rec, err := p.generate(ctx, bearerToken, req)
	if err != nil {
		stage, _ := StageOf(err)
		metrics.RecordItinerary(string(stage))
		return itinerary.Record{}, err
	}
	metrics.RecordItinerary(string(StageCompleted))
	return rec, nil
}

func (p *ItineraryPlanner) generate(ctx context.Context, bearerToken string, req itinerary.TripRequest) (itinerary.Record, error) {
	owner, err := p.Authenticate(ctx, bearerToken)
	if err != nil {
		return itinerary.Record{}, &StageError{Stage: StageAuthenticated, Err: err}
	}
	log := p.log.With(zap.String("uid", owner.UID))

	trip, err := itinerary.Validate(req, types.Today(p.now(), p.loc))
	if err != nil {
		rule, _ := itinerary.RuleOf(err)
		log.Info("itinerary request rejected", zap.String("rule", string(rule)))
		return itinerary.Record{}, &StageError{Stage: StageValidated, UID: owner.UID, Err: err}
	}

	prompt := itinerary.BuildPrompt(trip)

	gen, reused := p.loadPending(ctx, log, owner.UID, prompt)
	var place *itinerary.Place
	if reused {
		metrics.PendingReusedTotal.Inc()
		log.Info("reusing stashed itinerary")
		place = p.locate(ctx, log, trip.Destination)
	} else {
		if p.quota != nil {
			if err := p.quota.Consume(ctx, owner.UID); err != nil {
				log.Warn("generation quota check failed", zap.Error(err))
				return itinerary.Record{}, &StageError{Stage: StageGenerating, UID: owner.UID, Err: err}
			}
		}
		place = p.locate(ctx, log, trip.Destination)

		res, err := p.generator.Generate(ctx, prompt)
		if err != nil {
			log.Error("itinerary generation failed", zap.Error(err))
			if p.quota != nil {
				if rerr := p.quota.Refund(context.WithoutCancel(ctx), owner.UID); rerr != nil {
					log.Warn("generation quota refund failed", zap.Error(rerr))
				}
			}
			return itinerary.Record{}, &StageError{Stage: StageGenerating, UID: owner.UID, Err: err}
		}
		gen = itinerary.Generated{Text: res.Text, Model: res.Model, GeneratedAt: res.GeneratedAt}
	}

	// Fixed before the first write; persist retries reuse it.
	rec := itinerary.Record{
		ID:             uuid.New(),
		OwnerID:        owner.UID,
		Destination:    trip.Destination,
		StartDate:      trip.StartDate,
		EndDate:        trip.EndDate,
		NumTravelers:   trip.NumTravelers,
		Budget:         trip.Budget,
		Interests:      trip.Interests,
		AdditionalInfo: trip.AdditionalInfo,
		Content: itinerary.Content{
			GeneratedText: gen.Text,
			GeneratedAt:   gen.GeneratedAt,
			PromptUsed:    prompt,
			Model:         gen.Model,
			UserEmail:     owner.Email,
			UserName:      owner.Name,
		},
		Place: place,
	}

	saved, err := p.persist(ctx, rec)
	if err != nil {
		log.Error("itinerary persistence failed", zap.Error(err))
		p.stash(ctx, log, owner.UID, prompt, gen)
		return itinerary.Record{}, &StageError{Stage: StagePersisting, UID: owner.UID, Err: err}
	}
	if reused {
		if err := p.pending.Drop(context.WithoutCancel(ctx), owner.UID, prompt); err != nil {
			log.Warn("drop stashed itinerary failed", zap.Error(err))
		}
	}
	log.Info("itinerary created", zap.String("itinerary_id", saved.ID.String()))
	return saved, nil
}

func (p *ItineraryPlanner) loadPending(ctx context.Context, log *zap.Logger, owner, prompt string) (itinerary.Generated, bool) {
	if p.pending == nil {
		return itinerary.Generated{}, false
	}
	g, found, err := p.pending.Load(ctx, owner, prompt)
	if err != nil {
		log.Warn("pending stash lookup failed", zap.Error(err))
		return itinerary.Generated{}, false
	}
	return g, found
}

func (p *ItineraryPlanner) stash(ctx context.Context, log *zap.Logger, owner, prompt string, g itinerary.Generated) {
	if p.pending == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stashTimeout)
	defer cancel()
	if err := p.pending.Save(ctx, owner, prompt, g); err != nil {
		log.Warn("stash generated itinerary failed", zap.Error(err))
	}
}

// locate geocodes the destination. Failures are logged and yield no place.
func (p *ItineraryPlanner) locate(ctx context.Context, log *zap.Logger, destination string) *itinerary.Place {
	if p.geocoder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.geocodeTimeout)
	defer cancel()
	loc, err := p.geocoder.Locate(ctx, destination)
	if err != nil {
		if !errors.Is(err, maps.ErrNoMatch) {
			log.Warn("geocode destination failed", zap.Error(err))
		}
		return nil
	}
	return &itinerary.Place{
		FormattedAddress: loc.FormattedAddress,
		PlaceID:          loc.PlaceID,
		Lat:              loc.Lat,
		Lng:              loc.Lng,
	}
}

// persist retries transient write failures. Constraint violations and cancellation are final.
func (p *ItineraryPlanner) persist(ctx context.Context, rec itinerary.Record) (itinerary.Record, error) {
	var saved itinerary.Record
	op := func() error {
		r, err := p.store.Create(ctx, rec)
		if err != nil {
			if itinerary.IsConstraintViolation(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		saved = r
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(p.newBackOff(), uint64(p.persistAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return itinerary.Record{}, err
	}
	return saved, nil
}

// List returns one page of owner's itineraries, newest first, and the total count.
func (p *ItineraryPlanner) List(ctx context.Context, owner string, page itinerary.Page) ([]itinerary.Record, int, error) {
	return p.store.ListByOwner(ctx, owner, page)
}

// Get returns one of owner's itineraries. Foreign ids are reported as itinerary.ErrNotFound.
func (p *ItineraryPlanner) Get(ctx context.Context, owner string, id uuid.UUID) (itinerary.Record, error) {
	return p.store.GetByOwner(ctx, owner, id)
}

// RemainingGenerations reports owner's allowance for this month; -1 means unlimited.
func (p *ItineraryPlanner) RemainingGenerations(ctx context.Context, owner string) (int, error) {
	if p.quota == nil {
		return -1, nil
	}
	return p.quota.Remaining(ctx, owner)
}
