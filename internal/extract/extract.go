// Package extract pulls the passages of a fetched page that are relevant to
// a search query. It is deliberately lexical: sentence scoring against query
// keywords with a small synonym table, no model calls. Both English and CJK
// text are handled.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/analysis"
	unicodetokenizer "github.com/blevesearch/bleve/analysis/tokenizer/unicode"
)

const (
	minContentRunes  = 50
	minSentenceRunes = 15
	chunkRunes       = 150
	maxSentences     = 8
	maxOutputRunes   = 1000
	scoreThreshold   = 0.5
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "with": {},
	"this": {}, "that": {}, "from": {}, "have": {}, "has": {}, "will": {},
	"其中": {}, "以及": {}, "但是": {}, "因为": {}, "所以": {}, "我们": {},
	"可以": {}, "这些": {}, "一个": {}, "通过": {},
}

// synonyms widens keyword matching for a few high-traffic research terms.
var synonyms = map[string][]string{
	"market": {"industry", "sector", "市场", "行业"},
	"trend":  {"development", "direction", "趋势", "发展"},
	"data":   {"statistics", "figures", "数据", "统计"},
	"growth": {"increase", "expansion", "增长", "增加"},
	"市场":     {"行业", "market", "industry"},
	"趋势":     {"发展", "trend", "development"},
	"数据":     {"统计", "data", "statistics"},
	"增长":     {"增加", "growth", "increase"},
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?。！？\n]+`)
	percentRe       = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|百分比|亿|万|千|元)`)
	yearRe          = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	listMarkerRe    = regexp.MustCompile(`(^|\n)\s*([-*•]|\d+[.)])\s+`)
)

var importantMarkers = []string{
	"according to", "report", "research", "shows", "indicates", "announced",
	"根据", "报告", "研究", "显示", "表明", "发布",
}

var tokenizer = unicodetokenizer.NewUnicodeTokenizer()

// Relevant returns the portion of text that best answers query, or "" when
// the text is too short or nothing clears the relevance threshold and no
// sentence fallback is possible.
func Relevant(text, query string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minContentRunes {
		return ""
	}

	keywords := Keywords(query)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	type scored struct {
		sentence string
		score    float64
		index    int
	}
	var hits []scored
	for i, s := range sentences {
		if sc := scoreSentence(s, keywords); sc > scoreThreshold {
			hits = append(hits, scored{sentence: s, score: sc, index: i})
		}
	}

	if len(hits) == 0 {
		// No sentence is query-relevant; hand back the opening of the page
		// so the caller still has something to summarize.
		n := len(sentences)
		if n > 5 {
			n = 5
		}
		return strings.Join(sentences[:n], " ")
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	// Duplicate sentences are collapsed before the cap so repeated boilerplate
	// cannot crowd out distinct relevant sentences.
	seen := make(map[string]struct{}, len(hits))
	var parts []string
	for _, h := range hits {
		if _, dup := seen[h.sentence]; dup {
			continue
		}
		seen[h.sentence] = struct{}{}
		parts = append(parts, h.sentence)
		if len(parts) == maxSentences {
			break
		}
	}

	out := strings.Join(parts, " ")
	if runes := []rune(out); len(runes) > maxOutputRunes {
		out = string(runes[:maxOutputRunes]) + "..."
	}
	return out
}

// Keywords tokenizes a query into match terms: alphanumeric words longer
// than two runes, adjacent word bigrams, and sliding 2-4 rune substrings of
// CJK runs. Stopwords are dropped and the result is deduplicated in order.
func Keywords(query string) []string {
	tokens := tokenizer.Tokenize([]byte(strings.ToLower(query)))

	var words []string
	var cjkRun []rune
	flushRun := func() {
		if len(cjkRun) > 0 {
			words = append(words, cjkWindows(cjkRun)...)
			cjkRun = nil
		}
	}

	for _, tok := range tokens {
		term := string(tok.Term)
		if tok.Type == analysis.Ideographic {
			cjkRun = append(cjkRun, []rune(term)...)
			continue
		}
		flushRun()
		if len([]rune(term)) > 2 {
			words = append(words, term)
		}
	}
	flushRun()

	// Bigrams of adjacent non-CJK words widen phrase matching.
	var alpha []string
	for _, tok := range tokens {
		if tok.Type != analysis.Ideographic {
			alpha = append(alpha, string(tok.Term))
		}
	}
	for i := 0; i+1 < len(alpha); i++ {
		words = append(words, alpha[i]+" "+alpha[i+1])
	}

	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// cjkWindows emits every 2 to 4 rune substring of a CJK run.
func cjkWindows(run []rune) []string {
	var out []string
	for size := 2; size <= 4; size++ {
		for i := 0; i+size <= len(run); i++ {
			out = append(out, string(run[i:i+size]))
		}
	}
	return out
}

// scoreSentence weighs exact, partial, and synonym keyword matches plus a
// bonus for concrete data markers.
func scoreSentence(sentence string, keywords []string) float64 {
	ls := strings.ToLower(sentence)

	var exact, partial, semantic float64
	for _, kw := range keywords {
		if strings.Contains(ls, kw) {
			exact += 3
			if isCJK(kw) && len([]rune(kw)) > 1 {
				exact++
			}
			continue
		}
		if r := []rune(kw); len(r) >= 6 && strings.Contains(ls, string(r[:len(r)/2])) {
			partial++
			continue
		}
		for _, syn := range synonyms[kw] {
			if strings.Contains(ls, syn) {
				semantic += 0.5
				break
			}
		}
	}

	var data float64
	data += 2 * float64(len(percentRe.FindAllString(sentence, -1)))
	if yearRe.MatchString(sentence) {
		data++
	}
	if listMarkerRe.MatchString(sentence) {
		data++
	}
	for _, m := range importantMarkers {
		if strings.Contains(ls, m) {
			data++
			break
		}
	}

	return 1.5*exact + partial + semantic + 1.2*data
}

// splitSentences breaks text on sentence punctuation, keeping segments of at
// least fifteen runes. Text with no usable boundaries is cut into fixed
// chunks instead.
func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len([]rune(s)) >= minSentenceRunes {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i += chunkRunes {
		end := i + chunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[i:end]))
		if len([]rune(chunk)) >= minSentenceRunes {
			out = append(out, chunk)
		}
	}
	return out
}

func isCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
