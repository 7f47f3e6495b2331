package producers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
	"cityhop/internal/quote"
)

// Metrocab represents a platform with no public quote API: its price
// page is scraped instead. This stands in for any upstream integrated
// by HTML scraping rather than a JSON contract.
type Metrocab struct {
	quoteURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewMetrocab(quoteURL string, logger *slog.Logger) *Metrocab {
	return &Metrocab{
		quoteURL:   quoteURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("producer", "metrocab"),
	}
}

func (m *Metrocab) PlatformName() string { return "metrocab" }

func (m *Metrocab) Quote(ctx context.Context, pickup, drop geo.Coordinate) []quote.FareQuote {
	doc, err := m.fetchPage(ctx, pickup, drop)
	if err != nil {
		m.logger.Warn("falling back to estimate", "error", err)
		return nil
	}
	return m.scrape(doc)
}

func (m *Metrocab) fetchPage(ctx context.Context, pickup, drop geo.Coordinate) (*goquery.Document, error) {
	reqURL := fmt.Sprintf("%s?from=%f,%f&to=%f,%f", m.quoteURL, pickup.Lat, pickup.Lng, drop.Lat, drop.Lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; cityhop-fare-aggregator)")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quote page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// scrape walks the fare table rows the quote page renders, one row
// per vehicle class, e.g. `<tr class="fare-row" data-class="sedan">
// <span class="fare-price">142.50</span><span class="fare-eta">6
// min</span></tr>`.
func (m *Metrocab) scrape(doc *goquery.Document) []quote.FareQuote {
	now := time.Now().UnixMilli()
	var quotes []quote.FareQuote

	doc.Find(".fare-row").Each(func(_ int, row *goquery.Selection) {
		classAttr, ok := row.Attr("data-class")
		if !ok {
			return
		}
		class := fare.VehicleClass(strings.TrimSpace(classAttr))
		if _, known := fare.TariffFor(class); !known {
			return
		}

		priceText := strings.TrimSpace(row.Find(".fare-price").Text())
		price, err := strconv.ParseFloat(priceText, 64)
		if err != nil {
			return
		}

		quotes = append(quotes, quote.FareQuote{
			Platform:        m.PlatformName(),
			VehicleClass:    class,
			PriceMinorUnits: int(price * 100),
			Currency:        "INR",
			ETALabel:        strings.TrimSpace(row.Find(".fare-eta").Text()),
			Confidence:      quote.ConfidenceHigh,
			Provenance:      quote.ProvenanceLive,
			TimestampMs:     now,
		})
	})

	return quotes
}
