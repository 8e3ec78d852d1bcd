package parsing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// Crawler discovers outbound links from a seed page, depth-first and fully
// sequential. It fetches each URL at most once per crawl.
type Crawler struct {
	client    *http.Client
	userAgent string
}

func NewCrawler(cfg model.CrawlConfig) *Crawler {
	return &Crawler{
		client:    &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		userAgent: cfg.UserAgent,
	}
}

type crawlEntry struct {
	url   string
	depth int
}

// Crawl walks an explicit LIFO worklist with a per-entry depth counter.
// Fetch or parse failures for a URL are logged and that branch abandoned;
// siblings continue. With maxDepth == 0 the result is exactly {seed}.
func (c *Crawler) Crawl(ctx context.Context, seed string, maxDepth int) (map[string]struct{}, error) {
	if !IsURL(seed) {
		return nil, fmt.Errorf("invalid seed URL %q", seed)
	}

	visited := make(map[string]struct{})
	stack := []crawlEntry{{url: seed, depth: 0}}

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[entry.url]; seen {
			continue
		}
		visited[entry.url] = struct{}{}

		links, err := c.fetchLinks(ctx, entry.url)
		if err != nil {
			logx.Warn().Err(err).Str("url", entry.url).Msg("failed to fetch; abandoning branch")
			continue
		}

		if entry.depth >= maxDepth {
			continue
		}
		for _, link := range links {
			if _, seen := visited[link]; !seen {
				stack = append(stack, crawlEntry{url: link, depth: entry.depth + 1})
			}
		}
	}

	return visited, nil
}

// fetchLinks downloads one page and returns the anchor hrefs resolved against
// the page URL.
func (c *Crawler) fetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	root, base, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return extractLinks(root, base), nil
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page url: %w", err)
	}
	return root, base, nil
}

// extractLinks walks the parsed document collecting <a href> targets that
// resolve to absolute http(s) URLs.
func extractLinks(root *html.Node, base *url.URL) []string {
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				resolved, err := base.Parse(attr.Val)
				if err != nil {
					continue
				}
				if resolved.Scheme == "http" || resolved.Scheme == "https" {
					links = append(links, resolved.String())
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return links
}
