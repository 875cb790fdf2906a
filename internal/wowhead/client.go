// internal/wowhead/client.go
//
// Client talks to the classic wiki. It provides two lookups:
//
//   - item icons, via the JSON tooltip endpoint (used for reagent enrichment)
//   - spell names, scraped from the <title> of a spell page (used to build
//     recipe datasets, see annotate.go)

package wowhead

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/kingrea/classic-quest/internal/icons"
)

const (
	DefaultTooltipURL = "https://nether.wowhead.com/classic/tooltip/item/%d"
	DefaultImageURL   = "https://wow.zamimg.com/images/wow/icons/large/%s.jpg"
	DefaultSpellURL   = "https://www.wowhead.com/classic/spell=%d"

	spellTitleSuffix = " - Spell - Classic World of Warcraft"
	userAgent        = "classicquest/1.0"
	maxBodyBytes     = 2 << 20
)

// ErrSpellNotFound is returned when a spell page is missing or has no title.
var ErrSpellNotFound = errors.New("wowhead: spell not found")

// Settings configures endpoints and retry behaviour.
type Settings struct {
	TooltipURL   string
	ImageURL     string
	SpellURL     string
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

func (s *Settings) applyDefaults() {
	if strings.TrimSpace(s.TooltipURL) == "" {
		s.TooltipURL = DefaultTooltipURL
	}
	if strings.TrimSpace(s.ImageURL) == "" {
		s.ImageURL = DefaultImageURL
	}
	if strings.TrimSpace(s.SpellURL) == "" {
		s.SpellURL = DefaultSpellURL
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	if s.RetryWaitMin <= 0 {
		s.RetryWaitMin = 500 * time.Millisecond
	}
	if s.RetryWaitMax < s.RetryWaitMin {
		s.RetryWaitMax = 4 * time.Second
	}
}

// Option customizes the client.
type Option func(*Client)

// WithLogger sets the retry client's logger. It accepts anything
// go-retryablehttp does: a Printf logger or a leveled logger.
func WithLogger(logger interface{}) Option {
	return func(c *Client) {
		c.http.Logger = logger
	}
}

// Client is safe for concurrent use.
type Client struct {
	http     *retryablehttp.Client
	settings Settings
}

// New builds a client. Retry diagnostics are silent unless WithLogger is given.
func New(settings Settings, opts ...Option) *Client {
	settings.applyDefaults()
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = settings.Retries
	rc.RetryWaitMin = settings.RetryWaitMin
	rc.RetryWaitMax = settings.RetryWaitMax
	rc.HTTPClient.Timeout = settings.Timeout
	c := &Client{http: rc, settings: settings}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Lookup resolves the icon image URL for an item. A 404 or a tooltip without
// an icon returns an error wrapping icons.ErrNoIcon.
func (c *Client) Lookup(ctx context.Context, itemID int) (string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf(c.settings.TooltipURL, itemID))
	if err != nil {
		return "", fmt.Errorf("wowhead: item %d tooltip: %w", itemID, err)
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("wowhead: item %d: %w", itemID, icons.ErrNoIcon)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("wowhead: item %d tooltip: unexpected status %d", itemID, status)
	}
	icon := strings.TrimSpace(gjson.GetBytes(body, "icon").String())
	if icon == "" {
		return "", fmt.Errorf("wowhead: item %d: %w", itemID, icons.ErrNoIcon)
	}
	return fmt.Sprintf(c.settings.ImageURL, strings.ToLower(icon)), nil
}

// SpellName reads the display name of a crafting spell from its page title.
func (c *Client) SpellName(ctx context.Context, spellID int) (string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf(c.settings.SpellURL, spellID))
	if err != nil {
		return "", fmt.Errorf("wowhead: spell %d: %w", spellID, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("wowhead: spell %d (status %d): %w", spellID, status, ErrSpellNotFound)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wowhead: spell %d: parse page: %w", spellID, err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	name := strings.TrimSpace(strings.TrimSuffix(title, spellTitleSuffix))
	if name == "" {
		return "", fmt.Errorf("wowhead: spell %d: no title: %w", spellID, ErrSpellNotFound)
	}
	return name, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
