package swapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Enricher builds a Row for one people identifier.
type Enricher struct {
	fetcher  JSONFetcher
	resolver *Resolver
	baseURL  string
	logger   zerolog.Logger
}

// NewEnricher creates an enricher reading people from baseURL
// (e.g. "https://swapi.dev/api").
func NewEnricher(fetcher JSONFetcher, baseURL string) *Enricher {
	return &Enricher{
		fetcher:  fetcher,
		resolver: NewResolver(fetcher),
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logging.NewLogger("enricher"),
	}
}

// PeopleURL returns the record URL of id under baseURL.
func PeopleURL(baseURL string, id int) string {
	return fmt.Sprintf("%s/people/%d/", strings.TrimRight(baseURL, "/"), id)
}

// Enrich fetches person id and resolves all of its references.
// It never returns a partial row: any failure yields a skip Result.
func (e *Enricher) Enrich(ctx context.Context, id int) Result {
	url := PeopleURL(e.baseURL, id)

	var p Person
	if err := e.fetcher.GetJSON(ctx, url, &p); err != nil {
		e.logger.Error().Err(err).Int("person_id", id).Msg("Record fetch failed, skipping")
		return Result{ID: id, Reason: SkipTransport, Err: fmt.Errorf("fetch person %d: %w", id, err)}
	}

	if !p.HasName() {
		e.logger.Error().Int("person_id", id).Str("url", url).Msg("Record has no name, skipping")
		return Result{ID: id, Reason: SkipMalformed, Err: fmt.Errorf("person %d: %w", id, ErrMalformedRecord)}
	}

	row, err := e.resolve(ctx, id, &p)
	if err != nil {
		e.logger.Error().Err(err).Int("person_id", id).Msg("Reference resolution failed, skipping")
		return Result{ID: id, Reason: SkipTransport, Err: err}
	}

	e.logger.Debug().Int("person_id", id).Str("name", row.Name).Msg("Record enriched")
	return Result{ID: id, Row: row}
}

// resolve fans out one request per reference. The first failure cancels the
// remaining requests of this record only.
func (e *Enricher) resolve(ctx context.Context, id int, p *Person) (*Row, error) {
	g, gctx := errgroup.WithContext(ctx)

	films := e.resolveAll(g, gctx, p.Films)
	species := e.resolveAll(g, gctx, p.Species)
	starships := e.resolveAll(g, gctx, p.Starships)
	vehicles := e.resolveAll(g, gctx, p.Vehicles)

	var homeworld string
	g.Go(func() error {
		label, err := e.resolver.Resolve(gctx, p.Homeworld)
		homeworld = label
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich person %d: %w", id, err)
	}

	return &Row{
		ID:        id,
		Name:      *p.Name,
		BirthYear: orUnknown(p.BirthYear),
		EyeColor:  orUnknown(p.EyeColor),
		Films:     JoinLabels(films),
		Gender:    orUnknown(p.Gender),
		HairColor: orUnknown(p.HairColor),
		Height:    orUnknown(p.Height),
		Homeworld: homeworld,
		Mass:      orUnknown(p.Mass),
		SkinColor: orUnknown(p.SkinColor),
		Species:   JoinLabels(species),
		Starships: JoinLabels(starships),
		Vehicles:  JoinLabels(vehicles),
		URL:       orUnknown(p.URL),
		Created:   orUnknown(p.Created),
		Edited:    orUnknown(p.Edited),
	}, nil
}

// resolveAll schedules one resolution per url and returns the slice the
// labels land in, index-aligned with urls. Valid only after g.Wait.
func (e *Enricher) resolveAll(g *errgroup.Group, ctx context.Context, urls []string) []string {
	labels := make([]string, len(urls))
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			label, err := e.resolver.Resolve(ctx, u)
			if err != nil {
				return err
			}
			labels[i] = label
			return nil
		})
	}
	return labels
}
