package rag

import (
	"strings"

	"github.com/maintdesk/backend/pkg/vectormath"
)

// MergeChunks collapses near-duplicate chunks before storage. Chunks
// are clustered by cosine similarity against the first not-yet-assigned
// chunk in input order; every later unassigned chunk at or above the
// threshold joins that seed's cluster. The link is single-level from
// the seed by policy: a chunk similar to a member but not to the seed
// stays out. This keeps merging deterministic and cheap, and a second
// pass over merged output is a no-op since no two outputs reach the
// threshold against each other.
//
// Returned seeds carry each output's original chunk index, which
// downstream uses as the stored sequence number (hence sequence
// numbers may be sparse).
func MergeChunks(texts []string, vectors [][]float32, threshold float64) (mergedTexts []string, mergedVecs [][]float32, seeds []int, err error) {
	n := len(texts)
	assigned := make([]bool, n)

	for i := 0; i < n; i++ {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := []int{i}

		for j := i + 1; j < n; j++ {
			if assigned[j] {
				continue
			}
			sim, cerr := vectormath.Cosine(vectors[i], vectors[j])
			if cerr != nil {
				return nil, nil, nil, cerr
			}
			if sim >= threshold {
				assigned[j] = true
				cluster = append(cluster, j)
			}
		}

		if len(cluster) == 1 {
			mergedTexts = append(mergedTexts, texts[i])
			mergedVecs = append(mergedVecs, vectors[i])
			seeds = append(seeds, i)
			continue
		}

		memberTexts := make([]string, len(cluster))
		memberVecs := make([][]float32, len(cluster))
		for k, idx := range cluster {
			memberTexts[k] = texts[idx]
			memberVecs[k] = vectors[idx]
		}

		mean, merr := vectormath.Mean(memberVecs)
		if merr != nil {
			return nil, nil, nil, merr
		}

		mergedTexts = append(mergedTexts, mergeTexts(memberTexts))
		mergedVecs = append(mergedVecs, mean)
		seeds = append(seeds, i)
	}

	return mergedTexts, mergedVecs, seeds, nil
}

// mergeTexts splits every member on sentence-terminal punctuation,
// keeps the first occurrence of each sentence, and rejoins.
func mergeTexts(texts []string) string {
	seen := make(map[string]bool)
	var sentences []string

	for _, text := range texts {
		for _, s := range splitSentences(text) {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			sentences = append(sentences, s)
		}
	}

	return strings.Join(sentences, ". ")
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}
