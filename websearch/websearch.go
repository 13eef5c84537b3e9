// Package websearch looks up market prices for products the shop does
// not carry.
//
// In "scrape" mode it reads a MercadoLibre listing page; when that
// fails, or in "simulate" mode, the language model writes a market
// reference instead, and a canned reference text covers model failures.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/applog"
)

const (
	ModeScrape   = "scrape"
	ModeSimulate = "simulate"

	DefaultBaseURL = "https://listado.mercadolibre.com.ar"
	maxResults     = 8
	titleMax       = 120
)

var (
	itemSelectors = []string{".ui-search-result__wrapper", ".ui-search-layout__item", ".andes-card"}
	titleSelector = ".ui-search-item__title, .ui-search-item__group__element"
	priceSelector = ".andes-money-amount__fraction"
	linkSelector  = ".ui-search-link"

	noiseWords = regexp.MustCompile(`(?i)buscar|precio de|precio|en mercadolibre|en internet|cotizar`)
)

// Result is one scraped listing.
type Result struct {
	Title string
	Price string
	Link  string
}

// Service performs price lookups.
type Service struct {
	mode     string
	baseURL  string
	client   *http.Client
	provider ai.Provider
}

// New builds a Service. An empty mode means scrape; an empty baseURL
// means MercadoLibre Argentina.
func New(mode, baseURL string, provider ai.Provider) *Service {
	if mode == "" {
		mode = ModeScrape
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if provider == nil {
		provider = ai.NewPlaceholder()
	}
	return &Service{
		mode:     mode,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		provider: provider,
	}
}

// CleanQuery strips the words that ask for a search rather than name a product.
func CleanQuery(query string) string {
	return strings.Join(strings.Fields(noiseWords.ReplaceAllString(query, "")), " ")
}

// Search never fails; it degrades to model text or a canned reference.
func (s *Service) Search(ctx context.Context, query string) string {
	clean := CleanQuery(query)
	if clean == "" {
		clean = strings.TrimSpace(query)
	}
	if s.mode == ModeScrape {
		results, err := s.Scrape(ctx, clean)
		if err != nil {
			applog.Event("websearch", "scrape failed", "query", clean, "err", err)
		}
		if len(results) > 0 {
			return FormatResults(results, clean, "MercadoLibre")
		}
	}
	return s.reference(ctx, clean)
}

// Scrape fetches and parses the listing page for query.
func (s *Service) Scrape(ctx context.Context, query string) ([]Result, error) {
	searchURL := s.baseURL + "/" + url.PathEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", searchURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", searchURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return parseListing(doc), nil
}

func parseListing(doc *goquery.Document) []Result {
	var items *goquery.Selection
	for _, sel := range itemSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			items = found
			break
		}
	}
	if items == nil {
		return nil
	}

	var results []Result
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= maxResults {
			return false
		}
		title := strings.TrimSpace(item.Find(titleSelector).First().Text())
		price := strings.TrimSpace(item.Find(priceSelector).First().Text())
		if title == "" || price == "" {
			return true
		}
		if r := []rune(title); len(r) > titleMax {
			title = string(r[:titleMax])
		}
		link, _ := item.Find(linkSelector).First().Attr("href")
		results = append(results, Result{Title: title, Price: "$" + FormatPrice(price), Link: link})
		return true
	})
	return results
}

// FormatPrice inserts dots as thousands separators: "1250000" -> "1.250.000".
func FormatPrice(price string) string {
	digits := strings.NewReplacer(".", "", ",", "", " ", "").Replace(price)
	for _, r := range digits {
		if r < '0' || r > '9' {
			return price
		}
	}
	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// FormatResults renders scraped listings as a chat message.
func FormatResults(results []Result, query, source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 **Resultados de %s para \"%s\"**\n\n", source, query)
	for i, r := range results {
		fmt.Fprintf(&sb, "**%d. %s**\n", i+1, r.Title)
		if r.Price != "" {
			fmt.Fprintf(&sb, "💰 %s\n", r.Price)
		}
		if r.Link != "" && r.Link != "#" {
			fmt.Fprintf(&sb, "🔗 [Ver en %s](%s)\n", source, r.Link)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "*Encontrados %d resultados relevantes*\n", len(results))
	sb.WriteString("*💡 Los precios pueden variar, verifica en el sitio oficial*")
	return sb.String()
}

var referenceOptions = ai.Options{Temperature: 0.7, MaxTokens: 600}

func (s *Service) reference(ctx context.Context, query string) string {
	text, err := ai.Ask(ctx, s.provider, "", fmt.Sprintf(ai.WebSearchPromptTemplate, query), referenceOptions)
	if err != nil || strings.TrimSpace(text) == "" {
		applog.Event("websearch", "reference fallback", "query", query, "err", err)
		return CannedReference(query)
	}
	return fmt.Sprintf("🔍 **Búsqueda: %s**\n\n%s\n\n*⚠️ Nota: Esta es información de referencia. Para precios actualizados visita mercadolibre.com.ar*", query, text)
}

// CannedReference is the last-resort answer when nothing else worked.
func CannedReference(query string) string {
	return fmt.Sprintf(`🔍 **Información sobre %s**

**Precios de referencia en el mercado:**
• **Nuevo:** $1.200.000 - $1.800.000
• **Usado:** $700.000 - $1.100.000

**Disponibilidad:**
🏪 Concesionarias oficiales
👤 Vendedores particulares
🛒 Mercado Libre y marketplaces

**Recomendaciones:**
✅ Verificar estado general del vehículo
✅ Solicitar historial de mantenimiento
✅ Comparar precios en múltiples fuentes
✅ Revisar documentación legal

*💡 Para información actualizada en tiempo real, visitá mercadolibre.com.ar o concesionarias oficiales*`, query)
}
