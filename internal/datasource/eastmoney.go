package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/httputil"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// EastMoney hosts that are not configurable per environment.
const (
	eastMoneyListURL       = "https://82.push2.eastmoney.com/api/qt/clist/get"
	eastMoneyQuoteURL      = "https://push2.eastmoney.com/api/qt/stock/get"
	eastMoneyDataCenterURL = "https://datacenter-web.eastmoney.com/api/data/v1/get"
)

// EastMoneyProvider is the primary data source. It covers the full
// capability set except news.
type EastMoneyProvider struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewEastMoneyProvider creates the primary provider.
func NewEastMoneyProvider(cfg *config.Config, client *httputil.Client, log *logger.Logger) *EastMoneyProvider {
	return &EastMoneyProvider{
		client:  client,
		baseURL: cfg.DataSource.EastMoneyURL,
		logger:  log.WithComponent("eastmoney"),
	}
}

// Name implements Provider.
func (p *EastMoneyProvider) Name() string { return "eastmoney" }

func (p *EastMoneyProvider) getBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := p.client.GetWithHeaders(ctx, url, map[string]string{
		"Referer": "https://quote.eastmoney.com/",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// FetchKline returns forward-adjusted daily bars, oldest first.
func (p *EastMoneyProvider) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	if days <= 0 || days > 1000 {
		days = 1000
	}

	url := fmt.Sprintf(
		"%s/api/qt/stock/kline/get?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61&klt=101&fqt=1&lmt=%d",
		p.baseURL, secID(code), days)

	body, err := p.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "data.klines")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	out := make([]contracts.Kline, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		// date,open,close,high,low,volume,amount,amplitude,change_pct,change,turnover
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 7 {
			continue
		}

		date, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(parts[1], 64)
		closeVal, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		volume, _ := strconv.ParseInt(parts[5], 10, 64)
		amount, _ := strconv.ParseFloat(parts[6], 64)

		bar := contracts.Kline{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeVal,
			Volume: volume,
			Amount: amount,
		}
		if len(parts) >= 9 {
			if pct, err := strconv.ParseFloat(parts[8], 64); err == nil {
				bar.ChangePct = &pct
			}
		}
		if len(parts) >= 11 {
			if turnover, err := strconv.ParseFloat(parts[10], 64); err == nil {
				bar.Turnover = &turnover
			}
		}
		out = append(out, bar)
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// FetchMoneyFlow returns daily capital flow rows, oldest first.
func (p *EastMoneyProvider) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	if days <= 0 || days > 500 {
		days = 500
	}

	url := fmt.Sprintf(
		"%s/api/qt/stock/fflow/daykline/get?secid=%s&fields1=f1,f2,f3,f7&fields2=f51,f52,f53,f54,f55,f56&lmt=%d",
		p.baseURL, secID(code), days)

	body, err := p.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "data.klines")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	out := make([]contracts.MoneyFlow, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		// date,main_net,small_net,mid_net,big_net,huge_net
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 6 {
			continue
		}

		date, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}

		mainNet, _ := strconv.ParseFloat(parts[1], 64)
		smallNet, _ := strconv.ParseFloat(parts[2], 64)
		midNet, _ := strconv.ParseFloat(parts[3], 64)
		bigNet, _ := strconv.ParseFloat(parts[4], 64)
		hugeNet, _ := strconv.ParseFloat(parts[5], 64)

		out = append(out, contracts.MoneyFlow{
			Date:     date,
			MainNet:  mainNet,
			HugeNet:  hugeNet,
			BigNet:   bigNet,
			MidNet:   midNet,
			SmallNet: smallNet,
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// FetchNews implements Provider. EastMoney is not used for news.
func (p *EastMoneyProvider) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	return nil, ErrNotSupported
}

// FetchFinancialReports combines the datacenter report rows with the
// realtime quote snapshot (PE/PB come from the quote endpoint).
func (p *EastMoneyProvider) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	url := fmt.Sprintf(
		`%s?reportName=RPT_LICO_FN_CPD&columns=ALL&filter=(SECURITY_CODE="%s")&sortColumns=REPORT_DATE&sortTypes=-1&pageSize=8`,
		eastMoneyDataCenterURL, code)

	body, err := p.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "result.data")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	pe, pb := p.fetchValuation(ctx, code)

	out := make([]contracts.FinancialReport, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		reportDate := strings.Fields(v.Get("REPORT_DATE").String())
		if len(reportDate) == 0 {
			continue
		}
		date, err := time.Parse("2006-01-02", reportDate[0])
		if err != nil {
			continue
		}

		report := contracts.FinancialReport{
			Period:     reportPeriod(date),
			ReportDate: &date,
		}
		if r := v.Get("WEIGHTAVG_ROE"); r.Exists() && r.Type != gjson.Null {
			roe := r.Float()
			report.ROE = &roe
		}
		if r := v.Get("TOTAL_OPERATE_INCOME"); r.Exists() && r.Type != gjson.Null {
			revenue := r.Float()
			report.Revenue = &revenue
		}
		if r := v.Get("PARENT_NETPROFIT"); r.Exists() && r.Type != gjson.Null {
			profit := r.Float()
			report.NetProfit = &profit
		}
		if r := v.Get("XSMLL"); r.Exists() && r.Type != gjson.Null {
			margin := r.Float()
			report.GrossMargin = &margin
		}
		if r := v.Get("ZCFZL"); r.Exists() && r.Type != gjson.Null {
			debt := r.Float()
			report.DebtRatio = &debt
		}

		// Valuation ratios only apply to the latest period snapshot
		if len(out) == 0 {
			report.PERatio = pe
			report.PBRatio = pb
		}

		out = append(out, report)
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// fetchValuation reads PE (f162, dynamic) and PB (f167) from the quote
// snapshot. Both are scaled by 100 on the wire. Failures degrade to nil.
func (p *EastMoneyProvider) fetchValuation(ctx context.Context, code string) (*float64, *float64) {
	url := fmt.Sprintf("%s?secid=%s&fields=f162,f167", eastMoneyQuoteURL, secID(code))

	body, err := p.getBody(ctx, url)
	if err != nil {
		p.logger.WithError(err).WithField("stock_code", code).Warn("Valuation fetch failed")
		return nil, nil
	}

	var pe, pb *float64
	if r := gjson.GetBytes(body, "data.f162"); r.Exists() && r.Type == gjson.Number && r.Float() != 0 {
		v := r.Float() / 100
		pe = &v
	}
	if r := gjson.GetBytes(body, "data.f167"); r.Exists() && r.Type == gjson.Number && r.Float() != 0 {
		v := r.Float() / 100
		pb = &v
	}
	return pe, pb
}

// FetchMarginData returns margin trading rows, oldest first.
func (p *EastMoneyProvider) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	if days <= 0 || days > 500 {
		days = 500
	}

	url := fmt.Sprintf(
		`%s?reportName=RPTA_WEB_RZRQ_GGMX&columns=ALL&filter=(scode="%s")&sortColumns=DATE&sortTypes=-1&pageSize=%d`,
		eastMoneyDataCenterURL, code, days)

	body, err := p.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "result.data")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	out := make([]contracts.MarginData, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		dateStr := strings.Fields(v.Get("DATE").String())
		if len(dateStr) == 0 {
			continue
		}
		date, err := time.Parse("2006-01-02", dateStr[0])
		if err != nil {
			continue
		}

		out = append(out, contracts.MarginData{
			Date:          date,
			MarginBalance: v.Get("RZYE").Float(),
			ShortBalance:  v.Get("RQYE").Float(),
			MarginBuy:     v.Get("RZMRE").Float(),
			MarginRepay:   v.Get("RZCHE").Float(),
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}

	// Datacenter rows arrive newest first; normalize to oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// FetchStockList returns the active A-share universe from the list API.
func (p *EastMoneyProvider) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	url := fmt.Sprintf(
		"%s?pn=1&pz=6000&po=1&np=1&fltt=2&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23&fields=f12,f13,f14,f100",
		eastMoneyListURL)

	body, err := p.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "data.diff")
	if !rows.Exists() || !rows.IsArray() {
		return nil, ErrEmptyResult
	}

	out := make([]contracts.StockBasic, 0, len(rows.Array()))
	for _, v := range rows.Array() {
		code := strings.TrimSpace(v.Get("f12").String())
		if code == "" {
			continue
		}

		market := "SZ"
		if v.Get("f13").Int() == 1 {
			market = "SH"
		}

		out = append(out, contracts.StockBasic{
			Code:     code,
			Name:     strings.TrimSpace(v.Get("f14").String()),
			Industry: strings.TrimSpace(v.Get("f100").String()),
			Market:   market,
			IsActive: true,
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// reportPeriod formats a report date as "2025Q2" or "2024A" for the
// annual period.
func reportPeriod(date time.Time) string {
	switch date.Month() {
	case time.March:
		return fmt.Sprintf("%dQ1", date.Year())
	case time.June:
		return fmt.Sprintf("%dQ2", date.Year())
	case time.September:
		return fmt.Sprintf("%dQ3", date.Year())
	case time.December:
		return fmt.Sprintf("%dA", date.Year())
	default:
		return fmt.Sprintf("%dQ%d", date.Year(), (int(date.Month())-1)/3+1)
	}
}
