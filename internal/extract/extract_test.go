package extract

import (
	"strings"
	"testing"
)

func TestRelevantShortTextReturnsNothing(t *testing.T) {
	if got := Relevant("too short", "anything"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRelevantFindsDataSentence(t *testing.T) {
	text := "The weather was pleasant throughout the conference and attendees enjoyed it. " +
		"GDP grew 5.2% in 2023 according to the national statistics bureau. " +
		"Lunch was served at noon in the main hall for everyone."
	got := Relevant(text, "growth 2023")
	if got == "" {
		t.Fatal("got empty excerpt")
	}
	if !strings.Contains(got, "GDP grew 5.2% in 2023") {
		t.Fatalf("excerpt missing data sentence: %q", got)
	}
}

func TestRelevantFallsBackToOpening(t *testing.T) {
	text := "The first sentence talks about gardening at length and in detail. " +
		"The second sentence covers cooking techniques for busy households. " +
		"The third sentence describes travel destinations around the coast."
	got := Relevant(text, "квант") // no keyword can match
	if got == "" {
		t.Fatal("expected opening sentences, got empty")
	}
	if !strings.Contains(got, "first sentence") {
		t.Fatalf("fallback should start at the beginning: %q", got)
	}
}

func TestRelevantTruncatesLongOutput(t *testing.T) {
	sentence := "The market report shows growth of 12% in 2023 with " + strings.Repeat("detail ", 40)
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString(sentence)
		b.WriteString(". ")
	}
	got := Relevant(b.String(), "market growth report")
	if n := len([]rune(got)); n > 1003 {
		t.Fatalf("output length %d exceeds cap", n)
	}
}

func TestRelevantSynonymAloneDoesNotQualify(t *testing.T) {
	// "industry" only matches "market" through the synonym table, which is
	// not enough on its own to keep a sentence.
	text := "The industry gathering welcomed several delegations from abroad this season. " +
		"Another passage covers cooking techniques for busy households in town."
	got := Relevant(text, "market")
	if !strings.Contains(got, "cooking techniques") {
		t.Fatalf("expected opening fallback with both sentences, got %q", got)
	}
}

func TestRelevantKeepsDistinctSentencesOverRepeats(t *testing.T) {
	strong := "The market grew 45% in 2023 according to the annual market survey"
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString(strong)
		b.WriteString(". ")
	}
	for i := 0; i < 5; i++ {
		b.WriteString("Market observers in region ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(" reported steady and stable conditions. ")
	}
	got := Relevant(b.String(), "market")
	if n := strings.Count(got, strong); n != 1 {
		t.Fatalf("repeated sentence appears %d times: %q", n, got)
	}
	if n := strings.Count(got, "Market observers in region"); n != 5 {
		t.Fatalf("got %d distinct observer sentences, want 5: %q", n, got)
	}
}

func TestRelevantDeduplicatesSentences(t *testing.T) {
	text := "Market growth reached 8% in 2023 across the sector. " +
		"Market growth reached 8% in 2023 across the sector. " +
		"Padding sentence that says nothing relevant at all here."
	got := Relevant(text, "market growth")
	if n := strings.Count(got, "Market growth reached 8%"); n != 1 {
		t.Fatalf("duplicate sentence appears %d times: %q", n, got)
	}
}

func TestKeywordsEnglish(t *testing.T) {
	kws := Keywords("Electric vehicle market growth")
	want := []string{"electric", "vehicle", "market", "growth", "electric vehicle"}
	for _, w := range want {
		if !containsString(kws, w) {
			t.Errorf("keywords missing %q: %v", w, kws)
		}
	}
	if containsString(kws, "the") {
		t.Errorf("stopword leaked: %v", kws)
	}
}

func TestKeywordsCJKWindows(t *testing.T) {
	kws := Keywords("新能源汽车")
	for _, w := range []string{"新能", "能源", "新能源", "能源汽车"} {
		if !containsString(kws, w) {
			t.Errorf("keywords missing %q: %v", w, kws)
		}
	}
}

func TestKeywordsDeduplicated(t *testing.T) {
	kws := Keywords("market market market")
	seen := map[string]int{}
	for _, k := range kws {
		seen[k]++
	}
	for k, n := range seen {
		if n > 1 {
			t.Fatalf("keyword %q appears %d times", k, n)
		}
	}
}

func TestSplitSentencesChunksWhenNoSentenceSurvives(t *testing.T) {
	// Every segment between boundaries is under the minimum length, so the
	// splitter falls back to fixed-size chunks.
	text := strings.Repeat("ab. ", 100)
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		t.Fatalf("got %d chunks, want several", len(sentences))
	}
	for _, s := range sentences {
		if n := len([]rune(s)); n > chunkRunes {
			t.Fatalf("chunk length %d exceeds %d", n, chunkRunes)
		}
	}
}

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
