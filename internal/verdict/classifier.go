package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// Classifier errors.
var (
	ErrMalformedResponse = eris.New("verdict: malformed classifier response")
	ErrEmptyBatch        = eris.New("verdict: no listings to classify")
	ErrNoNiche           = eris.New("verdict: niche required")
)

// DefaultBatchSize bounds how many listings go into one request.
const DefaultBatchSize = 20

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	Model     string
	MaxTokens int64
	BatchSize int
}

// Classifier asks Claude to label a batch of listings for a niche.
type Classifier struct {
	client anthropic.Client
	cfg    ClassifierConfig
}

// NewClassifier creates a Classifier. Zero config values take defaults.
func NewClassifier(client anthropic.Client, cfg ClassifierConfig) *Classifier {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Classifier{client: client, cfg: cfg}
}

// BatchSize returns the maximum listings sent per call.
func (c *Classifier) BatchSize() int { return c.cfg.BatchSize }

const systemPrompt = `You are the prospect classifier for a distributor of professional equipment for the agricultural, forestry, gardening and construction industries (chainsaws, brush cutters, tractors, irrigation, compressors, generators, pneumatic tools).

Only businesses that sell, repair or professionally operate machinery from these sectors are prospects.

Absolute exclusion: any home, kitchen or household-appliance business (blenders, mixers, coffee makers, stoves, microwaves, "linea blanca") is irrelevant, even when it sells spare parts ("refacciones").

Labels:
- "prospect": sells or repairs industrial power tools, heavy machinery, forestry or agricultural equipment from professional brands (STIHL, Husqvarna, DeWalt, Makita, Cat).
- "irrelevant": another trade (food, health, home, small kitchen appliances) or unrelated.
- "uncertain": a general hardware store where it is unclear whether professional brands are carried.

Respond with ONLY a JSON array, one object per business:
[{"idx":0,"verdict":"prospect","reason":"Official forestry equipment dealer"}]`

// Classify labels up to BatchSize listings and returns verdicts keyed by
// listing key. Unkeyed listings are skipped. Any parse failure fails the
// whole batch with ErrMalformedResponse.
func (c *Classifier) Classify(ctx context.Context, n *niche.Niche, listings []model.Listing) (map[string]model.AIVerdict, error) {
	if n == nil {
		return nil, ErrNoNiche
	}

	log := zap.L().With(zap.String("niche", n.ID))

	var keys []string
	var batch []model.Listing
	for _, l := range listings {
		key, ok := l.Key()
		if !ok {
			log.Warn("verdict: skipping listing without id", zap.String("title", l.Title))
			continue
		}
		if len(batch) == c.cfg.BatchSize {
			log.Debug("verdict: batch truncated", zap.Int("batch_size", c.cfg.BatchSize), zap.Int("requested", len(listings)))
			break
		}
		keys = append(keys, key)
		batch = append(batch, l)
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      anthropic.CachedSystem(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(n, batch)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "verdict: classify")
	}
	resp.Usage.LogCost(c.cfg.Model, "classify")

	entries, err := ParseResponse(resp.Text())
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.AIVerdict, len(entries))
	for _, e := range entries {
		if e.Idx < 0 || e.Idx >= len(keys) {
			log.Warn("verdict: index out of range", zap.Int("idx", e.Idx), zap.Int("batch", len(keys)))
			continue
		}
		out[keys[e.Idx]] = model.AIVerdict{Verdict: e.Verdict, Reason: e.Reason}
	}

	log.Info("verdict: batch classified", zap.Int("listings", len(batch)), zap.Int("verdicts", len(out)))
	return out, nil
}

// BuildPrompt renders the niche and the numbered business list.
func BuildPrompt(n *niche.Niche, listings []model.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target niche: %s\nDescription: %s\n\nBusinesses:\n", n.Name, n.Description)
	for i, l := range listings {
		fmt.Fprintf(&b, "[%d] %q | Type: %s | Address: %s\n", i, l.Title, l.Type, l.Address)
	}
	return b.String()
}

// Entry is one parsed classifier verdict.
type Entry struct {
	Idx     int
	Verdict model.Verdict
	Reason  string
}

type rawEntry struct {
	Idx     *int   `json:"idx"`
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// ParseResponse extracts the JSON array from text, tolerating markdown
// fences and surrounding prose.
func ParseResponse(text string) ([]Entry, error) {
	body := stripFences(text)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil, eris.Wrapf(ErrMalformedResponse, "no JSON array in response: %s", text)
	}

	var raw []rawEntry
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "parse JSON (%v): %s", err, text)
	}

	out := make([]Entry, 0, len(raw))
	for i, r := range raw {
		v := model.Verdict(strings.ToLower(strings.TrimSpace(r.Verdict)))
		if r.Idx == nil || !v.Valid() {
			return nil, eris.Wrapf(ErrMalformedResponse, "entry %d has invalid idx or verdict %q: %s", i, r.Verdict, text)
		}
		out = append(out, Entry{Idx: *r.Idx, Verdict: v, Reason: strings.TrimSpace(r.Reason)})
	}
	return out, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
