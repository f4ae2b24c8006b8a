// Package advisor is the conversational layer: it recognizes the analytical
// intent of the merchant's last message, runs the matching queries, renders
// the results into a data-context block, and lets the language model turn
// that into advice.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/grubsight/grubsight/internal/core/analysis"
	"github.com/grubsight/grubsight/internal/core/dataset"
	"github.com/grubsight/grubsight/internal/intent"
)

// ErrInvalidHistory marks a chat request whose history is empty or does not
// end with a user message.
var ErrInvalidHistory = errors.New("chat history is empty or does not end with a user message")

// Message is one turn of the conversation, OpenAI role conventions.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the body of POST /v1/chat. The client owns the history and
// sends it whole; MerchantID and CityID default to the configured scope.
type ChatRequest struct {
	History    []Message `json:"history" binding:"required"`
	MerchantID string    `json:"merchant_id"`
	CityID     string    `json:"city_id"`
}

// ChatResponse carries the assistant reply. The client manages history state;
// only the reply goes back.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Intent         string `json:"intent"`
	Reply          string `json:"reply"`
}

// Completer produces an assistant reply from a system prompt and history.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// Config is the advisor's default query scope.
type Config struct {
	MerchantID string
	CityID     string
	CityNames  map[string]string
}

// Service orchestrates intent → analysis → prompt → completion.
type Service struct {
	engine     *analysis.Engine
	store      *dataset.Store
	classifier *intent.Classifier
	completer  Completer
	cfg        Config
	logger     *slog.Logger
}

// NewService creates the advisor. logger may be nil.
func NewService(
	engine *analysis.Engine,
	store *dataset.Store,
	classifier *intent.Classifier,
	completer Completer,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:     engine,
		store:      store,
		classifier: classifier,
		completer:  completer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Chat answers the last user message in the history.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.History) == 0 || req.History[len(req.History)-1].Role != "user" {
		return nil, ErrInvalidHistory
	}
	lastMessage := req.History[len(req.History)-1].Content

	merchantID := req.MerchantID
	if merchantID == "" {
		merchantID = s.cfg.MerchantID
	}
	cityID := req.CityID
	if cityID == "" {
		cityID = s.cfg.CityID
	}

	kind := s.classifier.Classify(lastMessage)
	period := s.classifier.TimePeriod(lastMessage)

	conversationID := uuid.NewString()
	s.logger.Info("chat intent recognized",
		"conversation_id", conversationID,
		"intent", string(kind),
		"period", period,
		"merchant_id", merchantID,
		"city_id", cityID,
	)

	dataContext := s.buildDataContext(kind, period, merchantID, cityID)

	reply, err := s.completer.Complete(ctx, s.systemPrompt(cityID, dataContext), req.History)
	if err != nil {
		s.logger.Error("completion failed", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("advisor completion: %w", err)
	}

	return &ChatResponse{
		ConversationID: conversationID,
		Intent:         string(kind),
		Reply:          reply,
	}, nil
}

// buildDataContext runs the queries the intent calls for and renders their
// outcomes. Empty results and failures become notes rather than aborting the
// chat; the model is instructed to surface the limitation.
func (s *Service) buildDataContext(kind intent.Kind, period, merchantID, cityID string) string {
	days := analysis.PeriodDays(period, analysis.DefaultDays)

	switch kind {
	case intent.KindProfit:
		horizonDays := analysis.PeriodDays(period, analysis.DefaultCuisineDays)
		var parts []string
		parts = append(parts,
			"User wants advice on increasing profit (note: cost data is unavailable).",
			fmt.Sprintf("Analysis based on data for merchant %s over the last %d days.", merchantID, horizonDays),
			"",
			"--- Sales Summary ---",
			s.salesContext(merchantID, period),
			"",
			"--- Popular Items ---",
			s.popularItemsContext(merchantID, horizonDays),
		)
		return strings.Join(parts, "\n")

	case intent.KindPopularItems:
		return s.popularItemsContext(merchantID, days)

	case intent.KindSales:
		return s.salesContext(merchantID, period)

	case intent.KindRegional:
		horizonDays := analysis.PeriodDays(period, analysis.DefaultCuisineDays)
		ctx := s.cuisineContext(cityID, horizonDays)
		if kw := s.keywordContext(); kw != "" {
			ctx += "\n" + kw
		}
		return ctx

	default:
		return ""
	}
}

func (s *Service) salesContext(merchantID, period string) string {
	summary, err := s.engine.SalesSummary(merchantID, period)
	switch {
	case err == nil:
		return fmt.Sprintf("Period: %s to %s. Total Sales: RM%s. Orders: %d.",
			summary.StartDate, summary.EndDate, summary.TotalSales.StringFixed(2), summary.OrderCount)
	case errors.Is(err, analysis.ErrNoData):
		return fmt.Sprintf("Note on data context: No sales data found (merchant %s, period %s).", merchantID, period)
	default:
		s.logger.Error("sales summary failed", "merchant_id", merchantID, "error", err)
		return "Note on data context: Could not get sales summary."
	}
}

func (s *Service) popularItemsContext(merchantID string, days int) string {
	items, err := s.engine.PopularItems(merchantID, days)
	switch {
	case err == nil:
		entries := make([]string, len(items))
		for i, it := range items {
			entries[i] = fmt.Sprintf("%s (%d unique orders)", it.ItemName, it.UniqueOrderCount)
		}
		return fmt.Sprintf("Top %d items over the last %d days by unique orders: %s.",
			len(items), days, strings.Join(entries, "; "))
	case errors.Is(err, analysis.ErrNoData):
		return fmt.Sprintf("Note on data context: No data for popular items (merchant %s, last %d days).", merchantID, days)
	default:
		s.logger.Error("popular items failed", "merchant_id", merchantID, "error", err)
		return "Note on data context: Could not get popular items."
	}
}

func (s *Service) cuisineContext(cityID string, days int) string {
	cityName := s.cityName(cityID)
	cuisines, err := s.engine.PopularCuisines(cityID, days)
	switch {
	case err == nil:
		return fmt.Sprintf("User is asking for recommendations for a new merchant in %s. "+
			"Analysis of recent orders (%d days) across merchants shows the top %d most frequent cuisine types are: %s.",
			cityName, days, len(cuisines), strings.Join(cuisines, ", "))
	case errors.Is(err, analysis.ErrNoData):
		return fmt.Sprintf("Note on data context: Insufficient data for popular cuisine types in %s (last %d days).", cityName, days)
	default:
		s.logger.Error("popular cuisines failed", "city_id", cityID, "error", err)
		return fmt.Sprintf("Note on data context: Could not get popular cuisines data for %s.", cityName)
	}
}

// keywordContext summarizes the strongest search terms by completed orders,
// giving the model demand signals beyond the order history.
func (s *Service) keywordContext() string {
	if s.store == nil {
		return ""
	}
	snap := s.store.Current()
	if snap == nil || len(snap.Keywords) == 0 {
		return ""
	}

	keywords := make([]dataset.Keyword, len(snap.Keywords))
	copy(keywords, snap.Keywords)
	sort.SliceStable(keywords, func(i, j int) bool { return keywords[i].Order > keywords[j].Order })
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}

	entries := make([]string, len(keywords))
	for i, kw := range keywords {
		entries[i] = fmt.Sprintf("%s (%d orders)", kw.Keyword, kw.Order)
	}
	return fmt.Sprintf("Top search keywords by completed orders: %s.", strings.Join(entries, ", "))
}

func (s *Service) cityName(cityID string) string {
	if name, ok := s.cfg.CityNames[cityID]; ok {
		return name
	}
	return fmt.Sprintf("City ID %s", cityID)
}

func (s *Service) systemPrompt(cityID, dataContext string) string {
	return fmt.Sprintf(`You are a business advisor speaking directly TO a food-delivery merchant. Turn the merchant's data into understandable insights and actionable suggestions. You are based in Malaysia, so use RM for currency when appropriate.

Always address the merchant directly using "you" and "your". Never refer to the merchant as 'the merchant' or by their ID. Keep your tone professional, encouraging, and helpful.

Analyze the provided conversation history and the Data Context below (relevant to the last user message) to answer the merchant's most recent question. Go beyond stating the numbers; interpret what they imply for the business and suggest concrete actions.

If the user asks how to increase profit: state first that direct profit calculation is not possible without cost data, summarize recent sales performance (in RM), discuss the popular items with their unique order counts and how to leverage them, then close with general F&B advice (pricing, menu diversity, local tastes, operational efficiency, platform promotions).

If a new merchant asks what to sell in %s, use the popular cuisine data if present, and advise deeper local market research and differentiation.

If the Data Context is empty or only a note ('Note on data context: ...'), answer from the conversation history and general business knowledge, and communicate any data limitation first.

Be clear and concise. Respond in English. Use Markdown for formatting.

Data Context (relevant to the last user message):
%s`, s.cityName(cityID), dataContext)
}
