package quiz

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// Scorer turns a completed answer set into a Result.
type Scorer interface {
	Score(ctx context.Context, questions []Question, answers AnswerMap) (Result, error)
}

// Vocabulary maps each stream to keyword prefixes matched against answer
// tokens.
type Vocabulary map[Stream][]string

// DefaultVocabulary is the keyword set used by the heuristic scorer.
var DefaultVocabulary = Vocabulary{
	Science: {
		"science", "scien", "math", "logic", "physic", "chemi", "biolog",
		"experiment", "research", "tech", "engineer", "medic", "laborator", "data",
	},
	Commerce: {
		"commerce", "business", "financ", "money", "account", "econom",
		"market", "sales", "manag", "entrepreneur", "bank", "invest",
	},
	Arts: {
		"art", "design", "music", "writ", "literat", "histor", "languag",
		"creativ", "paint", "drama", "cultur", "social", "teach",
	},
	Vocational: {
		"vocation", "hands", "repair", "craft", "mechanic", "cook",
		"electric", "tool", "practical", "workshop", "build",
	},
}

// KeywordScorer is the local heuristic: every answer adds one point to each
// stream whose vocabulary matches one of its tokens, and unmatched answers
// count towards Vocational.
type KeywordScorer struct {
	Vocabulary Vocabulary
}

// NewKeywordScorer returns a scorer using DefaultVocabulary.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{Vocabulary: DefaultVocabulary}
}

func (k *KeywordScorer) Score(_ context.Context, questions []Question, answers AnswerMap) (Result, error) {
	vocab := k.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary
	}

	scores := NewStreamScore()
	for _, q := range questions {
		value, ok := answers[q.ID]
		if !ok {
			continue
		}
		matched := matchStreams(vocab, value)
		if len(matched) == 0 {
			scores[Vocational]++
			continue
		}
		for _, st := range matched {
			scores[st]++
		}
	}

	return buildResult(scores, "heuristic"), nil
}

func matchStreams(vocab Vocabulary, value string) []Stream {
	tokens := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []Stream
	for _, st := range Streams {
		if streamMatches(vocab[st], tokens) {
			out = append(out, st)
		}
	}
	return out
}

func streamMatches(keywords, tokens []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}

// buildResult derives the recommendation list and summary from scores.
func buildResult(scores StreamScore, source string) Result {
	top := scores.Top(2)
	recs := make([]Recommendation, 0, len(top))
	for _, st := range top {
		p := Profiles[st]
		recs = append(recs, Recommendation{
			Stream:      st,
			Score:       scores[st],
			Description: p.Description,
			Careers:     append([]string(nil), p.Careers...),
		})
	}
	return Result{
		Scores:          scores,
		Recommended:     top,
		Summary:         Summarize(top),
		Recommendations: recs,
		Source:          source,
	}
}

// FallbackScorer tries Primary and falls back to Secondary on error.
type FallbackScorer struct {
	Primary   Scorer
	Secondary Scorer
}

func (f *FallbackScorer) Score(ctx context.Context, questions []Question, answers AnswerMap) (Result, error) {
	res, err := f.Primary.Score(ctx, questions, answers)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, err
	}

	slog.Warn("primary scorer failed, using fallback", "error", err)
	return f.Secondary.Score(ctx, questions, answers)
}
