// Package feed fetches the landscape images offered as board backgrounds.
//
// HOW IT WORKS:
//  1. The app authenticates to reddit with its own credentials (OAuth2
//     client credentials, no user involved). x/oauth2 fetches and refreshes
//     the bearer token on its own.
//  2. The hot posts of r/EarthPorn are fetched from oauth.reddit.com.
//  3. Each post becomes a model.EarthPornImage; resolution and [OC] tags are
//     parsed out of the title (title.go).
//
// The GraphQL field caches the result for 24 hours, so this runs rarely. A
// rate limiter still guards the upstream in case the cache is cold on many
// instances at once.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/sakif/linkboard/internal/model"
)

const (
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultUserAgent = "web:linkboard:v1 (personal link board)"
	subreddit        = "EarthPorn"
	requestTimeout   = 15 * time.Second
)

// Source lists background images.
type Source interface {
	EarthPornImages(ctx context.Context) ([]model.EarthPornImage, error)
}

// Config holds the reddit app credentials. TokenURL and APIURL default to
// reddit's; tests point them at an httptest server.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	TokenURL     string
	APIURL       string
}

// Reddit is a Source backed by the reddit API.
type Reddit struct {
	client    *http.Client
	apiURL    string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// userAgentTransport sets the User-Agent on every request. Reddit throttles
// generic agents hard, and the token endpoint checks it too.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// New creates a Reddit source authenticated with the client credentials flow.
func New(cfg Config, logger *slog.Logger) *Reddit {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	base := &http.Client{
		Timeout:   requestTimeout,
		Transport: &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport},
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token source outlives any single request, so it gets its own
	// background context carrying the user-agent client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = requestTimeout

	return NewWithClient(client, cfg.APIURL, cfg.UserAgent, logger)
}

// NewWithClient creates a Reddit source that sends requests through client
// as is. apiURL defaults to https://oauth.reddit.com.
func NewWithClient(client *http.Client, apiURL, userAgent string, logger *slog.Logger) *Reddit {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Reddit{
		client:    client,
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		logger:    logger,
	}
}

// listing is the part of a reddit listing response we read.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string `json:"id"`
				URL       string `json:"url"`
				Title     string `json:"title"`
				Thumbnail string `json:"thumbnail"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// EarthPornImages fetches the current hot posts of r/EarthPorn.
func (r *Reddit) EarthPornImages(ctx context.Context) ([]model.EarthPornImage, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feed: waiting for rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/r/%s/hot?raw_json=1", r.apiURL, subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: building request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetching r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: r/%s returned status %d", subreddit, resp.StatusCode)
	}

	var body listing
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("feed: decoding r/%s listing: %w", subreddit, err)
	}

	images := make([]model.EarthPornImage, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		post := child.Data
		meta := ParseTitle(post.Title)
		images = append(images, model.EarthPornImage{
			ID:                post.ID,
			URL:               post.URL,
			Title:             meta.Title,
			ThumbnailURL:      post.Thumbnail,
			Width:             meta.Width,
			Height:            meta.Height,
			IsOriginalContent: meta.IsOriginalContent,
		})
	}

	r.logger.Info("fetched background images",
		slog.String("subreddit", subreddit),
		slog.Int("count", len(images)),
		slog.Duration("duration", time.Since(start)),
	)
	return images, nil
}
