package scrape

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/ppiankov/propval/internal/model"
)

// Patterns for the embedded sold-price payload on detail pages. The
// site streams its data as escaped JSON fragments, so field extraction
// is positional regexp rather than DOM walking.
var (
	detailIDPattern   = regexp.MustCompile(`/house-prices/details/([0-9a-f\-]{36})`)
	typePattern       = regexp.MustCompile(`propertyType\\",\\"([^"\\]+)\\"`)
	bedroomsPattern   = regexp.MustCompile(`bedrooms\\",(\d+)`)
	bathroomsPattern  = regexp.MustCompile(`bathrooms\\",(\d+)`)
	latPattern        = regexp.MustCompile(`latitude=([\d.\-]+)`)
	lonPattern        = regexp.MustCompile(`longitude=([\d.\-]+)`)
	postcodePattern   = regexp.MustCompile(`([A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2})`)
	firstSalePattern  = regexp.MustCompile(`"price\\",(\d+),\\"deedDate\\",\\"(\d{4}-\d{2}-\d{2})\\"`)
	laterSalesPattern = regexp.MustCompile(`\\"£[\d,]+\\",(\d+),\\"(\d{4}-\d{2}-\d{2})\\"`)
)

// Transaction is one recorded sale of a property.
type Transaction struct {
	Price float64
	Date  string
}

// Property is everything extracted from one detail page.
type Property struct {
	ID           string
	Address      string
	Postcode     string
	PropertyType string
	Bedrooms     int
	Bathrooms    int
	Lat          float64
	Lon          float64
	Transactions []Transaction
}

// Scraper collects sold-price records from listing and detail pages,
// honoring robots.txt and a global fetch rate.
type Scraper struct {
	httpClient *http.Client
	cfg        model.ScrapeConfig
	limiter    *rate.Limiter
	robots     *robotsChecker
}

// NewScraper creates a Scraper from the scrape configuration.
func NewScraper(cfg model.ScrapeConfig) *Scraper {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	return &Scraper{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		robots:  newRobotsChecker(cfg.UserAgent, cfg.Timeout),
	}
}

// CollectIDs walks listing pages 1..Pages and returns the unique
// detail-page IDs found, in first-seen order.
func (s *Scraper) CollectIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	for page := 1; page <= s.cfg.Pages; page++ {
		body, err := s.fetch(ctx, fmt.Sprintf(s.cfg.ListingURL, page))
		if err != nil {
			// A missing listing page ends the walk; earlier pages are
			// still usable.
			if ctx.Err() != nil {
				return ids, ctx.Err()
			}
			continue
		}

		for _, match := range detailIDPattern.FindAllStringSubmatch(body, -1) {
			id := match[1]
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// ScrapeDetail fetches one detail page and extracts the property and
// its transaction history. Properties without transactions or bedroom
// data are not usable for training and return an error.
func (s *Scraper) ScrapeDetail(ctx context.Context, id string) (*Property, error) {
	body, err := s.fetch(ctx, fmt.Sprintf(s.cfg.DetailURL, id))
	if err != nil {
		return nil, err
	}
	return parseDetail(id, body)
}

// fetch retrieves one page, rate-limited and robots-checked.
func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	allowed, err := s.robots.canFetch(ctx, url)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", fmt.Errorf("robots.txt disallows %s", url)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// parseDetail extracts a Property from detail-page HTML.
func parseDetail(id, body string) (*Property, error) {
	prop := &Property{ID: id}

	prop.Address = firstHeading(body)
	if pc := postcodePattern.FindString(prop.Address); pc != "" {
		prop.Postcode = strings.ToUpper(pc)
	}

	if m := typePattern.FindStringSubmatch(body); m != nil {
		prop.PropertyType = m[1]
	}
	if m := bedroomsPattern.FindStringSubmatch(body); m != nil {
		prop.Bedrooms, _ = strconv.Atoi(m[1])
	}
	if m := bathroomsPattern.FindStringSubmatch(body); m != nil {
		prop.Bathrooms, _ = strconv.Atoi(m[1])
	}
	if m := latPattern.FindStringSubmatch(body); m != nil {
		prop.Lat, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := lonPattern.FindStringSubmatch(body); m != nil {
		prop.Lon, _ = strconv.ParseFloat(m[1], 64)
	}

	if m := firstSalePattern.FindStringSubmatch(body); m != nil {
		price, _ := strconv.ParseFloat(m[1], 64)
		prop.Transactions = append(prop.Transactions, Transaction{Price: price, Date: m[2]})
	}
	for _, m := range laterSalesPattern.FindAllStringSubmatch(body, -1) {
		price, _ := strconv.ParseFloat(m[1], 64)
		tx := Transaction{Price: price, Date: m[2]}
		if !containsTx(prop.Transactions, tx) {
			prop.Transactions = append(prop.Transactions, tx)
		}
	}

	if len(prop.Transactions) == 0 {
		return nil, fmt.Errorf("property %s: no transactions", id)
	}
	if prop.Bedrooms == 0 {
		return nil, fmt.Errorf("property %s: no bedroom data", id)
	}
	return prop, nil
}

// firstHeading returns the text of the first h1 in the document.
func firstHeading(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var heading string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if heading != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "h1" {
			heading = strings.TrimSpace(nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return heading
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

func containsTx(txs []Transaction, tx Transaction) bool {
	for _, t := range txs {
		if t.Price == tx.Price && t.Date == tx.Date {
			return true
		}
	}
	return false
}

// WriteCSV writes one row per transaction in the scraped-data layout.
func WriteCSV(path string, properties []*Property) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := []string{"address", "postcode", "property_type", "bedrooms", "bathrooms", "lat", "lon", "price", "date_sold"}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for _, prop := range properties {
		for _, tx := range prop.Transactions {
			row := []string{
				prop.Address,
				prop.Postcode,
				prop.PropertyType,
				strconv.Itoa(prop.Bedrooms),
				strconv.Itoa(prop.Bathrooms),
				strconv.FormatFloat(prop.Lat, 'f', -1, 64),
				strconv.FormatFloat(prop.Lon, 'f', -1, 64),
				strconv.FormatFloat(tx.Price, 'f', -1, 64),
				tx.Date,
			}
			if err := w.Write(row); err != nil {
				return rows, fmt.Errorf("write row: %w", err)
			}
			rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fmt.Errorf("flush output: %w", err)
	}
	return rows, nil
}
