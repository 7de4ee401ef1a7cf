package tagger

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"riskjournal/internal/models"
)

// Rule maps notes text onto a suggested tag. Rules are evaluated in order;
// the first match wins, which keeps suggestions deterministic.
type Rule struct {
	Tag        string
	Patterns   []string
	Confidence float64

	compiled []*regexp.Regexp
}

type Tagger struct {
	EntryRules    []Rule
	CategoryRules []Rule
	Logger        *zap.Logger
}

func New(logger *zap.Logger) *Tagger {
	return &Tagger{
		EntryRules:    DefaultEntryTypeRules(),
		CategoryRules: DefaultCategoryRules(),
		Logger:        logger,
	}
}

func DefaultEntryTypeRules() []Rule {
	return []Rule{
		{
			Tag:        models.EntryTypeTrade,
			Patterns:   []string{`(?i)\b(trade|long|short|exit|entry|pnl)\b`},
			Confidence: 0.8,
		},
		{
			Tag:        models.EntryTypeCode,
			Patterns:   []string{`(?i)\b(commit|pr|bug|fix|code|repo)\b`},
			Confidence: 0.8,
		},
		{
			Tag:        models.EntryTypeAlpha,
			Patterns:   []string{`(?i)\b(alpha|signal|narrative|protocol)\b`},
			Confidence: 0.7,
		},
		{
			Tag:        models.EntryTypeLearning,
			Patterns:   []string{`(?i)\b(learn(ed|ing)?|course|tutorial|module)\b`},
			Confidence: 0.7,
		},
		{
			Tag:        models.EntryTypeAction,
			Patterns:   []string{`(?i)\b(action|task|todo|research)\b`},
			Confidence: 0.6,
		},
		{
			Tag:        models.EntryTypeOpportunity,
			Patterns:   []string{`(?i)\b(job|opportunity|consulting|offer)\b`},
			Confidence: 0.6,
		},
		{
			Tag:        models.EntryTypeRisk,
			Patterns:   []string{`(?i)\b(bet|wager|risk|stake[sd]?)\b`},
			Confidence: 0.6,
		},
	}
}

func DefaultCategoryRules() []Rule {
	return []Rule{
		{
			Tag:        "sports_bet",
			Patterns:   []string{`(?i)\b(game|match|odds|parlay|vs\.?|bookie)\b`},
			Confidence: 0.8,
		},
		{
			Tag:        "nft",
			Patterns:   []string{`(?i)\b(nft|mint|punk|ape|floor\s*price)\b`},
			Confidence: 0.85,
		},
		{
			Tag:        "prediction_market",
			Patterns:   []string{`(?i)\b(polymarket|prediction|resolves?|market\s+resolves)\b`},
			Confidence: 0.85,
		},
		{
			Tag:        "trade",
			Patterns:   []string{`(?i)\b(long|short|leverage|perp|futures?)\b`},
			Confidence: 0.75,
		},
		{
			Tag:        "crypto",
			Patterns:   []string{`(?i)\b(btc|bitcoin|eth|ethereum|sol|solana|token|coin|airdrop)\b`},
			Confidence: 0.7,
		},
	}
}

// SuggestEntryType infers an entry type from notes text. Falls back to
// "note" with low confidence, mirroring manual capture habits.
func (t *Tagger) SuggestEntryType(notes string) (string, float64) {
	if t == nil {
		return models.EntryTypeNote, 0
	}
	t.compile(t.EntryRules)
	if tag, conf, ok := firstMatch(t.EntryRules, notes); ok {
		return tag, conf
	}
	return models.EntryTypeNote, 0.3
}

// SuggestRiskCategory infers a risk category from notes text. Falls back to
// "other" with low confidence.
func (t *Tagger) SuggestRiskCategory(notes string) (string, float64) {
	if t == nil {
		return "other", 0
	}
	t.compile(t.CategoryRules)
	if tag, conf, ok := firstMatch(t.CategoryRules, notes); ok {
		return tag, conf
	}
	return "other", 0.3
}

func (t *Tagger) compile(rules []Rule) {
	for i := range rules {
		if len(rules[i].compiled) > 0 {
			continue
		}
		for _, raw := range rules[i].Patterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				if t.Logger != nil {
					t.Logger.Warn("tag rule regex compile failed",
						zap.String("tag", rules[i].Tag),
						zap.String("regex", raw),
						zap.Error(err))
				}
				continue
			}
			rules[i].compiled = append(rules[i].compiled, re)
		}
	}
}

func firstMatch(rules []Rule, notes string) (string, float64, bool) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return "", 0, false
	}
	for _, rule := range rules {
		for _, re := range rule.compiled {
			if re.MatchString(notes) {
				return rule.Tag, rule.Confidence, true
			}
		}
	}
	return "", 0, false
}

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags lifts #tag tokens out of notes text, lowercased and
// deduplicated, in first-appearance order.
func ExtractHashtags(notes string) []string {
	matches := hashtagRe.FindAllStringSubmatch(notes, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
