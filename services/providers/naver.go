package providers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"trendlotto_backend/models"
)

const (
	naverProviderName = "naver"
	naverUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	naverRowsPerPage  = 10
	naverMaxPages     = 30 // scrape source carries shorter history than the API
)

// NaverProvider is the fallback adapter. It scrapes the daily-quote HTML
// table of the public finance site, page by page, until the requested
// window is covered. Lower fidelity and shorter history than the primary.
type NaverProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewNaverProvider creates the fallback adapter.
func NewNaverProvider(baseURL string) *NaverProvider {
	return &NaverProvider{
		BaseURL: baseURL,
		Client:  &http.Client{},
	}
}

func (p *NaverProvider) Name() string { return naverProviderName }

// ValidateSymbol enforces the same six-digit code grammar the site uses.
func (p *NaverProvider) ValidateSymbol(symbol string) error {
	if !IsKRXCode(symbol) {
		return models.NewFetchError(naverProviderName, models.ErrNotFound,
			fmt.Errorf("symbol %q is not a six-digit code", symbol))
	}
	return nil
}

// Fetch scrapes daily rows until the window is covered or pages run out.
func (p *NaverProvider) Fetch(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, error) {
	if err := p.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	// ~22 trading days per month.
	needed := window.Months() * 22
	maxPages := (needed + naverRowsPerPage - 1) / naverRowsPerPage
	if maxPages > naverMaxPages {
		maxPages = naverMaxPages
	}

	var points []models.PricePoint
	for page := 1; page <= maxPages; page++ {
		rows, err := p.fetchPage(ctx, symbol, page)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break // ran out of history
		}
		points = append(points, rows...)
		if len(points) >= needed {
			break
		}
	}
	if len(points) == 0 {
		return nil, models.NewFetchError(naverProviderName, models.ErrNotFound,
			fmt.Errorf("no daily rows for %s", symbol))
	}

	// Pages arrive newest first; the canonical order is oldest first.
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	if len(points) > needed {
		points = points[len(points)-needed:]
	}

	series := &models.CanonicalSeries{Symbol: symbol, Points: points, FetchedAt: time.Now().UTC()}
	if err := series.Validate(); err != nil {
		return nil, models.NewFetchError(naverProviderName, errKind(err), err)
	}
	return series, nil
}

func (p *NaverProvider) fetchPage(ctx context.Context, symbol string, page int) ([]models.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d", p.BaseURL, symbol, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.NewFetchError(naverProviderName, models.ErrUnreachable, err)
	}
	// The site rejects requests without a browser user agent.
	req.Header.Set("User-Agent", naverUserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, models.NewFetchError(naverProviderName, models.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, models.NewFetchError(naverProviderName, models.ErrNotFound,
			fmt.Errorf("no page for %s", symbol))
	case http.StatusTooManyRequests:
		return nil, models.NewFetchError(naverProviderName, models.ErrRateLimited,
			fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, models.NewFetchError(naverProviderName, models.ErrUnreachable,
			fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, models.NewFetchError(naverProviderName, models.ErrMalformedResponse, err)
	}
	return parseDailyRows(doc)
}

// parseDailyRows walks the document for table rows shaped like
// date, close, change, open, high, low, volume. Rows that do not start
// with a parseable date (headers, spacers) are skipped.
func parseDailyRows(doc *html.Node) ([]models.PricePoint, error) {
	var points []models.PricePoint
	var parseErr error

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			cells := cellTexts(n)
			if len(cells) >= 7 {
				date, err := time.ParseInLocation("2006.01.02", cells[0], time.UTC)
				if err == nil {
					point, err := rowToPoint(date, cells)
					if err != nil {
						parseErr = err
						return
					}
					points = append(points, point)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if parseErr != nil {
		return nil, models.NewFetchError(naverProviderName, models.ErrMalformedResponse, parseErr)
	}
	return points, nil
}

func rowToPoint(date time.Time, cells []string) (models.PricePoint, error) {
	closePrice, err := parseNumber(cells[1])
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("close %q: %w", cells[1], err)
	}
	open, err := parseNumber(cells[3])
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("open %q: %w", cells[3], err)
	}
	high, err := parseNumber(cells[4])
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("high %q: %w", cells[4], err)
	}
	low, err := parseNumber(cells[5])
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("low %q: %w", cells[5], err)
	}
	volume, err := parseNumber(cells[6])
	if err != nil {
		return models.PricePoint{}, fmt.Errorf("volume %q: %w", cells[6], err)
	}
	return models.PricePoint{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// cellTexts collects the trimmed text of each td under the row.
func cellTexts(tr *html.Node) []string {
	var cells []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "td" {
			cells = append(cells, strings.TrimSpace(nodeText(n)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tr)
	return cells
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func parseNumber(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}
