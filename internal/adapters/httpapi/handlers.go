package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/stocksense/internal/domain"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = time.DateOnly

type companiesResponse struct {
	Companies []string `json:"companies"`
}

type companyResponse struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

type priceItem struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}

type pricesResponse struct {
	Ticker           string      `json:"ticker"`
	HistoricalPrices []priceItem `json:"historical_prices"`
}

type latestNewsResponse struct {
	ID         string            `json:"id"`
	Ticker     string            `json:"ticker"`
	Date       time.Time         `json:"date"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Feeling    int               `json:"feeling"`
	Prediction domain.Prediction `json:"prediction"`
}

type newsItem struct {
	ID         string            `json:"id"`
	Date       time.Time         `json:"date"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Prediction domain.Prediction `json:"prediction"`
}

type predictTextRequest struct {
	Ticker string `json:"ticker"`
	Text   string `json:"text"`
}

type predictURLRequest struct {
	Ticker string `json:"ticker"`
	URL    string `json:"url"`
}

type predictionResponse struct {
	Ticker     string            `json:"ticker"`
	Prediction domain.Prediction `json:"prediction"`
}

// health handles GET /health
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"time":   time.Now().UTC(),
	})
}

// listCompanies handles GET /companies
func (s *Server) listCompanies(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()

	list, err := s.companies.List(ctx)
	if err != nil {
		return err
	}
	tickers := make([]string, len(list))
	for i, co := range list {
		tickers[i] = co.Ticker
	}
	return c.JSON(companiesResponse{Companies: tickers})
}

// companyInfo handles GET /companies/:ticker
func (s *Server) companyInfo(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()

	co, err := s.companies.Info(ctx, c.Params("ticker"))
	if err != nil {
		return err
	}
	return c.JSON(companyResponse{Ticker: co.Ticker, Name: co.Name})
}

// historicalPrices handles GET /companies/:ticker/historical-prices?start&end
func (s *Server) historicalPrices(c *fiber.Ctx) error {
	start, err := requiredDate(c, "start")
	if err != nil {
		return err
	}
	end, err := requiredDate(c, "end")
	if err != nil {
		return err
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	ticker := domain.NormalizeTicker(c.Params("ticker"))
	prices, err := s.companies.HistoricalPrices(ctx, ticker, start, end)
	if err != nil {
		return err
	}
	items := make([]priceItem, len(prices))
	for i, p := range prices {
		items[i] = priceItem{Date: p.Date.Format(dateLayout), Open: p.Open, Close: p.Close}
	}
	return c.JSON(pricesResponse{Ticker: ticker, HistoricalPrices: items})
}

// latestNews handles GET /companies/:ticker/news/latest
func (s *Server) latestNews(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()

	n, err := s.news.GetLatestNews(ctx, c.Params("ticker"))
	if err != nil {
		return err
	}
	return c.JSON(latestNewsResponse{
		ID:         n.ID,
		Ticker:     n.Ticker,
		Date:       n.Date,
		Title:      n.Title,
		URL:        n.URL,
		Feeling:    n.Prediction.Score,
		Prediction: n.Prediction,
	})
}

// newsList handles GET /companies/:ticker/news
//
// Con start_date y end_date filtra por fechas; sin ninguna de las dos
// devuelve las últimas limit noticias.
func (s *Server) newsList(c *fiber.Ctx) error {
	ticker := c.Params("ticker")
	hasStart, hasEnd := c.Query("start_date") != "", c.Query("end_date") != ""

	ctx, cancel := s.ctx(c)
	defer cancel()

	var (
		list []domain.LatestNews
		err  error
	)
	switch {
	case hasStart || hasEnd:
		start, derr := requiredDate(c, "start_date")
		if derr != nil {
			return derr
		}
		end, derr := requiredDate(c, "end_date")
		if derr != nil {
			return derr
		}
		list, err = s.news.NewsByDate(ctx, ticker, start, end)
	default:
		limit := domain.DefaultRecentLimit
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
			}
		}
		list, err = s.news.RecentNews(ctx, ticker, limit)
	}
	if err != nil {
		return err
	}

	items := make([]newsItem, len(list))
	for i, n := range list {
		items[i] = newsItem{ID: n.ID, Date: n.Date, Title: n.Title, URL: n.URL, Prediction: n.Prediction}
	}
	return c.JSON(items)
}

// predictText handles POST /prediction/text
func (s *Server) predictText(c *fiber.Ctx) error {
	var req predictTextRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	p, err := s.predictions.PredictFromText(ctx, req.Ticker, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(predictionResponse{Ticker: domain.NormalizeTicker(req.Ticker), Prediction: p})
}

// predictURL handles POST /prediction/url
func (s *Server) predictURL(c *fiber.Ctx) error {
	var req predictURLRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	p, err := s.predictions.PredictFromURL(ctx, req.Ticker, req.URL)
	if err != nil {
		return err
	}
	return c.JSON(predictionResponse{Ticker: domain.NormalizeTicker(req.Ticker), Prediction: p})
}

func parseBody(c *fiber.Ctx, out any) error {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return fiber.NewError(fiber.StatusBadRequest, "content type must be application/json")
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

func requiredDate(c *fiber.Ctx, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" is required (YYYY-MM-DD)")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" must be a date (YYYY-MM-DD)")
	}
	return t, nil
}
