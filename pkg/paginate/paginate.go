package paginate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/httpwalk/httpwalk/pkg/backoff"
	"github.com/httpwalk/httpwalk/pkg/client"
	"github.com/httpwalk/httpwalk/pkg/linkheader"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "httpwalk_pages_fetched_total",
	Help: "Total pages fetched across pagination walks",
})

// Unlimited disables the page cap.
const Unlimited = -1

// LinkUpFunc picks the next page URL from the current page's URL and
// its parsed Link collection. Returning false ends the walk.
type LinkUpFunc func(current *url.URL, links linkheader.Links) (string, bool)

// Config holds walker configuration.
type Config struct {
	// MaxPages caps the number of fetched pages; Unlimited removes the
	// cap. Zero is a configuration error.
	MaxPages int

	// Delay is the non-incrementing wait between consecutive pages.
	Delay backoff.Range

	// LinkUp overrides next-page selection. Nil selects the first
	// rel="next" entry, resolved against the current page URL.
	LinkUp LinkUpFunc

	// StrictLinkHeader propagates Link parse errors instead of
	// silently ending the walk.
	StrictLinkHeader bool
}

// DefaultConfig returns a walker configuration without page cap or
// inter-page delay.
func DefaultConfig() Config {
	return Config{
		MaxPages: Unlimited,
		Delay:    backoff.Fixed(0),
	}
}

// Paginator fetches pages sequentially through a request orchestrator.
type Paginator struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// New validates the configuration and creates a paginator.
func New(c *client.Client, cfg Config) (*Paginator, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: client is required", client.ErrInvalidConfig)
	}
	if cfg.MaxPages == 0 || cfg.MaxPages < Unlimited {
		return nil, fmt.Errorf("%w: max pages must be positive or Unlimited (got %d)", client.ErrInvalidConfig, cfg.MaxPages)
	}
	if err := cfg.Delay.Validate(); err != nil {
		return nil, fmt.Errorf("%w: page delay: %v", client.ErrInvalidConfig, err)
	}

	return &Paginator{
		client: c,
		config: cfg,
		logger: log.With().Str("component", "paginate").Logger(),
	}, nil
}

// FetchAll walks pages from rawURL until the next link runs out, a
// response is non-2xx, or the page cap is reached. Every orchestrator
// response is appended to the result in page order, including the last
// non-successful one. Responses already collected are returned
// alongside any error.
func (p *Paginator) FetchAll(ctx context.Context, rawURL string, opts *client.RequestOptions) ([]*http.Response, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var responses []*http.Response
	for page := 1; p.config.MaxPages == Unlimited || page <= p.config.MaxPages; page++ {
		if page > 1 {
			wait, err := backoff.Resolve(backoff.Options{Range: p.config.Delay})
			if err != nil {
				return responses, err
			}
			if obs := p.client.Observer(); obs != nil {
				obs.OnPaginate(client.Event{
					Count:    page,
					MaxCount: p.config.MaxPages,
					Wait:     wait,
					URL:      current.String(),
				})
			}
			p.logger.Debug().
				Str("url", current.String()).
				Int("page", page).
				Dur("wait", wait).
				Msg("Fetching next page after wait")
			if err := backoff.Wait(ctx, wait); err != nil {
				return responses, err
			}
		}

		resp, err := p.client.Fetch(ctx, current.String(), opts)
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
		pagesFetchedTotal.Inc()

		// Non-successful responses end the walk without Link parsing.
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			p.logger.Debug().
				Str("url", current.String()).
				Int("status", resp.StatusCode).
				Int("pages", len(responses)).
				Msg("Stopping pagination on non-success response")
			break
		}

		links, err := linkheader.ParseResponse(resp)
		if err != nil {
			if p.config.StrictLinkHeader {
				return responses, err
			}
			p.logger.Warn().
				Err(err).
				Str("url", current.String()).
				Int("pages", len(responses)).
				Msg("Stopping pagination on malformed Link header")
			break
		}

		nextRaw, ok := p.nextPage(current, links)
		if !ok {
			break
		}
		next, err := current.Parse(nextRaw)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("next", nextRaw).
				Msg("Stopping pagination on unparsable next URL")
			break
		}
		current = next
	}

	p.logger.Debug().
		Str("url", rawURL).
		Int("pages", len(responses)).
		Msg("Pagination complete")

	return responses, nil
}

// nextPage consults the custom link-up function when configured,
// otherwise the first rel="next" entry.
func (p *Paginator) nextPage(current *url.URL, links linkheader.Links) (string, bool) {
	if p.config.LinkUp != nil {
		return p.config.LinkUp(current, links)
	}
	matches, err := links.GetByRel("next")
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0].URI, true
}
