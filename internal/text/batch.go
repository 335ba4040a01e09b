package text

// BatchText partitions text into synthesis batches capped at budget
// characters, breaking only at sentence boundaries.
//
// Inputs at or under the budget are returned as a single batch, unchanged:
// batching must never fragment short inputs. Longer inputs are segmented and
// sentences are accumulated greedily with single-space joins until adding the
// next sentence would exceed the budget. A sentence that alone exceeds the
// budget is kept intact as its own oversized batch; sentences are never
// truncated or split.
func BatchText(text string, budget int, seg Segmenter) []string {
	if text == "" {
		return nil
	}

	if budget <= 0 || len(text) <= budget {
		return []string{text}
	}

	sentences := seg.Segment(text)
	if len(sentences) == 0 {
		return []string{text}
	}

	var batches []string
	current := ""

	for _, sentence := range sentences {
		switch {
		case current == "":
			current = sentence
		case len(current)+len(sentence)+1 <= budget:
			current = current + " " + sentence
		default:
			batches = append(batches, current)
			current = sentence
		}
	}

	if current != "" {
		batches = append(batches, current)
	}

	return batches
}
