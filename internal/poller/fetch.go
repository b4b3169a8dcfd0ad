// SPDX-License-Identifier: MIT

package poller

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

const maxFeedBytes = 8 << 20

// HTTPFetcher retrieves and parses RSS 2.0, Atom and JSON Feed sources.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feed model.Feed) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("poller: build request for %s: %w", feed.ID, err)
	}
	req.Header.Set("User-Agent", "podgen/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poller: fetch %s: %w", feed.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poller: fetch %s: upstream status %d", feed.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("poller: read %s: %w", feed.ID, err)
	}

	switch feed.Kind {
	case model.FeedAtom:
		return parseAtom(body)
	case model.FeedJSON:
		return parseJSONFeed(body)
	default:
		return parseRSS(body)
	}
}

type rssDoc struct {
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseRSS(body []byte) ([]Item, error) {
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("poller: rss parse: %w", err)
	}
	items := make([]Item, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		items = append(items, Item{
			Title:     it.Title,
			URL:       it.Link,
			Content:   it.Description,
			Published: parseFeedTime(it.PubDate),
		})
	}
	return items, nil
}

type atomDoc struct {
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
		} `xml:"link"`
		Content string `xml:"content"`
		Summary string `xml:"summary"`
		Updated string `xml:"updated"`
	} `xml:"entry"`
}

func parseAtom(body []byte) ([]Item, error) {
	var doc atomDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("poller: atom parse: %w", err)
	}
	items := make([]Item, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		url := ""
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				url = l.Href
				break
			}
		}
		content := e.Content
		if content == "" {
			content = e.Summary
		}
		items = append(items, Item{
			Title:     e.Title,
			URL:       url,
			Content:   content,
			Published: parseFeedTime(e.Updated),
		})
	}
	return items, nil
}

type jsonFeedDoc struct {
	Items []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		ContentText   string `json:"content_text"`
		ContentHTML   string `json:"content_html"`
		DatePublished string `json:"date_published"`
	} `json:"items"`
}

func parseJSONFeed(body []byte) ([]Item, error) {
	var doc jsonFeedDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("poller: json feed parse: %w", err)
	}
	items := make([]Item, 0, len(doc.Items))
	for _, it := range doc.Items {
		content := it.ContentText
		if content == "" {
			content = it.ContentHTML
		}
		items = append(items, Item{
			Title:     it.Title,
			URL:       it.URL,
			Content:   content,
			Published: parseFeedTime(it.DatePublished),
		})
	}
	return items, nil
}

// parseFeedTime accepts the timestamp formats seen in the wild; an
// unparseable value degrades to zero rather than failing the item.
func parseFeedTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
