// Package trivia supplies quiz questions from the Open Trivia DB, with a
// local cache refilled in the background and a built-in fallback bank so the
// game never stalls waiting on the network.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/onnwee/quizcast/game"
	"github.com/onnwee/quizcast/telemetry"
)

const (
	defaultBaseURL = "https://opentdb.com"
	batchSize      = 10
	minCache       = 3
	fetchCooldown  = 6 * time.Second
)

// OTDB response codes.
const (
	codeSuccess      = 0
	codeNoResults    = 1
	codeTokenMissing = 3
	codeTokenEmpty   = 4
	codeRateLimited  = 5
)

// Source is a QuestionSource backed by the Open Trivia DB. Pop never blocks:
// when the cache runs low a single background refill is kicked off, and until
// it lands questions come from the fallback bank.
type Source struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
	rng     *rand.Rand

	mu        sync.Mutex
	cache     []apiQuestion
	token     string
	category  int
	fetching  bool
	lastFetch time.Time

	fallbackIdx int
}

// New builds a source. rng may be nil for a time-seeded default.
func New(rng *rand.Rand) *Source {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Source{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		log:     slog.Default().With(slog.String("component", "trivia")),
		rng:     rng,
	}
}

// Pop returns the next question, drawing from the cache when possible and the
// fallback bank otherwise. Options are shuffled per draw.
func (s *Source) Pop() game.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) < minCache && !s.fetching && time.Since(s.lastFetch) >= fetchCooldown {
		s.fetching = true
		go s.refill(s.category)
	}

	if len(s.cache) > 0 {
		raw := s.cache[0]
		s.cache = s.cache[1:]
		return s.build(raw)
	}

	raw := fallbackQuestions[s.fallbackIdx%len(fallbackQuestions)]
	s.fallbackIdx++
	return s.build(raw)
}

// SetCategory steers future draws. Cached questions from the old category are
// discarded so the change takes effect on the next refill.
func (s *Source) SetCategory(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.category {
		return
	}
	s.category = id
	s.cache = nil
}

// build converts a raw API question into the game shape, unescaping HTML
// entities and shuffling the options.
func (s *Source) build(raw apiQuestion) game.Question {
	options := make([]string, 0, len(raw.IncorrectAnswers)+1)
	correct := html.UnescapeString(raw.CorrectAnswer)
	options = append(options, correct)
	for _, a := range raw.IncorrectAnswers {
		options = append(options, html.UnescapeString(a))
	}
	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	correctIdx := 0
	for i, o := range options {
		if o == correct {
			correctIdx = i
			break
		}
	}
	return game.Question{
		Text:         html.UnescapeString(raw.Question),
		Options:      options,
		CorrectIndex: correctIdx,
		Category:     html.UnescapeString(raw.Category),
		Difficulty:   raw.Difficulty,
	}
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type apiQuestion struct {
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// refill fetches one batch for category and appends it to the cache. Runs on
// its own goroutine; exactly one refill is in flight at a time.
func (s *Source) refill(category int) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	questions, err := s.fetchBatch(ctx, category)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false
	s.lastFetch = time.Now()
	if err != nil {
		telemetry.IncTriviaFetchFailures()
		s.log.Warn("question fetch failed", slog.Any("err", err))
		return
	}
	// A vote may have changed the category while this batch was in flight.
	if category != s.category {
		s.log.Debug("discarding stale batch", slog.Int("category", category))
		return
	}
	s.cache = append(s.cache, questions...)
	s.log.Debug("cache refilled", slog.Int("added", len(questions)), slog.Int("cached", len(s.cache)))
}

func (s *Source) fetchBatch(ctx context.Context, category int) ([]apiQuestion, error) {
	token, err := s.sessionToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("amount", fmt.Sprint(batchSize))
	q.Set("type", "multiple")
	if token != "" {
		q.Set("token", token)
	}
	if category != 0 {
		q.Set("category", fmt.Sprint(category))
	}

	var resp apiResponse
	if err := s.getJSON(ctx, "/api.php?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	switch resp.ResponseCode {
	case codeSuccess:
		return resp.Results, nil
	case codeTokenEmpty:
		// The token has served every question in the category; reset it so
		// the next refill starts the pool over.
		if err := s.resetToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("token exhausted, reset for next fetch")
	case codeTokenMissing:
		s.clearToken()
		return nil, fmt.Errorf("session token expired")
	case codeRateLimited:
		return nil, fmt.Errorf("rate limited")
	default:
		return nil, fmt.Errorf("api response code %d", resp.ResponseCode)
	}
}

// sessionToken returns the cached session token, requesting one if needed.
func (s *Source) sessionToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var resp tokenResponse
	if err := s.getJSON(ctx, "/api_token.php?command=request", &resp); err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	if resp.ResponseCode != codeSuccess || resp.Token == "" {
		return "", fmt.Errorf("token request failed with code %d", resp.ResponseCode)
	}

	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()
	return resp.Token, nil
}

func (s *Source) resetToken(ctx context.Context, token string) error {
	var resp tokenResponse
	return s.getJSON(ctx, "/api_token.php?command=reset&token="+url.QueryEscape(token), &resp)
}

func (s *Source) clearToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *Source) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
