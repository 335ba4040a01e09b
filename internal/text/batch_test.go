package text

import (
	"strings"
	"testing"
)

func TestBatchTextShortInputUnchanged(t *testing.T) {
	seg := NewRuleSegmenter()

	input := "Hello world."
	batches := BatchText(input, 1000, seg)

	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch for short input, got %d", len(batches))
	}

	if batches[0] != input {
		t.Errorf("Expected input unchanged, got %q", batches[0])
	}
}

func TestBatchTextExactBudgetUnchanged(t *testing.T) {
	seg := NewRuleSegmenter()

	input := strings.Repeat("a", 100)
	batches := BatchText(input, 100, seg)

	if len(batches) != 1 || batches[0] != input {
		t.Errorf("Input at exactly the budget must stay one batch, got %v", batches)
	}
}

func TestBatchTextEmpty(t *testing.T) {
	seg := NewRuleSegmenter()

	if got := BatchText("", 1000, seg); got != nil {
		t.Errorf("Expected no batches for empty input, got %v", got)
	}
}

func TestBatchTextLongInput(t *testing.T) {
	seg := NewRuleSegmenter()

	// ~2500 characters of short sentences.
	sentence := "The quick brown fox jumps over the lazy dog near the riverbank today."
	var sb strings.Builder
	for sb.Len() < 2500 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
	}
	input := sb.String()

	const budget = 1000
	batches := BatchText(input, budget, seg)

	if len(batches) < 3 {
		t.Fatalf("Expected at least 3 batches for %d chars with budget %d, got %d",
			len(input), budget, len(batches))
	}

	for i, batch := range batches {
		if len(batch) > budget {
			t.Errorf("Batch %d exceeds budget: %d chars", i, len(batch))
		}
		if batch == "" {
			t.Errorf("Batch %d is empty", i)
		}
	}

	// Joining all batches reproduces the original sentence sequence.
	joined := strings.Join(batches, " ")
	if joined != input {
		t.Error("Concatenated batches do not reconstruct the input")
	}
}

func TestBatchTextNoPartialSentences(t *testing.T) {
	seg := NewRuleSegmenter()

	sentence := "Every sentence in this input ends with a proper terminator mark."
	input := strings.TrimSpace(strings.Repeat(sentence+" ", 40))

	batches := BatchText(input, 200, seg)

	for i, batch := range batches {
		if !strings.HasSuffix(batch, ".") {
			t.Errorf("Batch %d ends mid-sentence: %q", i, batch)
		}
	}
}

func TestBatchTextOversizedSentenceKeptIntact(t *testing.T) {
	seg := NewRuleSegmenter()

	long := strings.Repeat("word ", 60) // ~300 chars, no terminator until the end
	long = strings.TrimSpace(long) + "."
	input := "Short one. " + long + " Short two."

	batches := BatchText(input, 100, seg)

	found := false
	for _, batch := range batches {
		if batch == long {
			found = true
		}
		if len(batch) > 100 && batch != long {
			t.Errorf("Unexpected oversized batch that is not the long sentence: %q", batch)
		}
	}

	if !found {
		t.Error("Oversized sentence was split instead of kept intact as its own batch")
	}
}

func TestBatchTextOrderPreserved(t *testing.T) {
	seg := NewRuleSegmenter()

	var sentences []string
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		s := strings.Repeat("x", 50) + "."
		sentences = append(sentences, s)
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s)
	}

	batches := BatchText(sb.String(), 120, seg)

	joined := strings.Join(batches, " ")
	expected := strings.Join(sentences, " ")
	if joined != expected {
		t.Error("Batch order does not match sentence order")
	}
}
