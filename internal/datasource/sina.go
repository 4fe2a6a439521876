package datasource

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/httputil"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var sinaDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}`)

// SinaProvider is a news-only source scraped from the per-stock news
// listing page. All other operations report ErrNotSupported.
type SinaProvider struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewSinaProvider creates the news provider.
func NewSinaProvider(cfg *config.Config, client *httputil.Client, log *logger.Logger) *SinaProvider {
	return &SinaProvider{
		client:  client,
		baseURL: cfg.DataSource.SinaNewsURL,
		logger:  log.WithComponent("sina"),
	}
}

// Name implements Provider.
func (p *SinaProvider) Name() string { return "sina" }

// FetchNews scrapes the stock news list page and returns articles
// published within the trailing window, newest first.
func (p *SinaProvider) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	url := fmt.Sprintf("%s/corp/go.php/vCB_AllNewsStock/symbol/%s.phtml", p.baseURL, marketPrefix(code))
	resp, err := p.client.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer":    "https://finance.sina.com.cn/",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	list := doc.Find("div.datelist ul")
	if list.Length() == 0 {
		return nil, ErrEmptyResult
	}

	// The list interleaves "2025-08-20 19:02" text nodes with anchors;
	// dates and anchors pair up by position.
	dates := sinaDateRe.FindAllString(list.Text(), -1)

	var out []contracts.NewsArticle
	list.Find("a").Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}

		href, _ := sel.Attr("href")

		publishedAt := time.Now()
		if i < len(dates) {
			if t, err := time.ParseInLocation("2006-01-02 15:04", normalizeSpaces(dates[i]), time.Local); err == nil {
				publishedAt = t
			}
		}
		if publishedAt.Before(cutoff) {
			return
		}

		out = append(out, contracts.NewsArticle{
			Title:       title,
			Source:      "sina",
			URL:         href,
			PublishedAt: publishedAt,
		})
	})

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FetchKline implements Provider.
func (p *SinaProvider) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	return nil, ErrNotSupported
}

// FetchMoneyFlow implements Provider.
func (p *SinaProvider) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return nil, ErrNotSupported
}

// FetchFinancialReports implements Provider.
func (p *SinaProvider) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	return nil, ErrNotSupported
}

// FetchMarginData implements Provider.
func (p *SinaProvider) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return nil, ErrNotSupported
}

// FetchStockList implements Provider.
func (p *SinaProvider) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	return nil, ErrNotSupported
}
