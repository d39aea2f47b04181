package account

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// MnemonicWords is the length of an Algorand secret phrase.
const MnemonicWords = 25

// MaxTypoDistance is the largest edit distance offered as a suggestion.
const MaxTypoDistance = 2

//nolint:gochecknoglobals // Compiled once
var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
	wordIndex         = buildWordIndex()
)

// Algorand phrases use the BIP-39 English list.
func buildWordIndex() map[string]struct{} {
	words := bip39.GetWordList()
	idx := make(map[string]struct{}, len(words))
	for _, w := range words {
		idx[w] = struct{}{}
	}
	return idx
}

// NormalizeMnemonic lowercases the phrase, strips list numbering, bullets
// and commas, and collapses whitespace.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks word count and vocabulary and returns the
// normalized phrase. The checksum is verified when the key is derived.
func ValidateMnemonic(phrase string) (string, error) {
	normalized := NormalizeMnemonic(phrase)
	words := strings.Fields(normalized)
	if len(words) != MnemonicWords {
		return "", walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
			"reason": "expected " + strconv.Itoa(MnemonicWords) + " words, got " + strconv.Itoa(len(words)),
		})
	}
	if typos := DetectTypos(normalized); len(typos) > 0 {
		return "", walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{"reason": "unknown words"}),
			FormatTypoSuggestions(typos))
	}
	return normalized, nil
}

// IsValidWord reports whether word is in the phrase vocabulary.
func IsValidWord(word string) bool {
	_, ok := wordIndex[strings.ToLower(word)]
	return ok
}

// TypoInfo describes one unknown word.
type TypoInfo struct {
	Index      int // 0-based position
	Word       string
	Suggestion string // empty if nothing is close enough
	Distance   int
}

// SuggestWord returns the closest vocabulary word within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	if IsValidWord(input) {
		return input
	}

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		if dist := levenshtein.ComputeDistance(input, word); dist < minDist {
			minDist = dist
			suggestion = word
		}
	}
	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos lists the words of phrase that are not in the vocabulary.
func DetectTypos(phrase string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonic(phrase)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		line := "Word " + strconv.Itoa(typo.Index+1) + ": '" + typo.Word + "'"
		if typo.Suggestion != "" {
			line += " - did you mean '" + typo.Suggestion + "'?"
		} else {
			line += " is not a valid word"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
