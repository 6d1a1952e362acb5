package matcher

import (
	"catalogmatch/internal/textnorm"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultThreshold is the minimum score a candidate must reach to be accepted.
const DefaultThreshold = 0.6

// EntryTypeApp is the only search result type that describes a product.
const EntryTypeApp = "app"

// names containing any of these as whole words are add-ons or media rather than the product itself.
var excludedPhrases = []string{
	"demo",
	"beta",
	"alpha",
	"test",
	"soundtrack",
	"ost",
	"music",
	"dlc",
	"expansion",
	"season pass",
	"pack",
	"bundle",
	"collection",
	"trailer",
	"video",
	"documentary",
	"wallpaper",
	"artbook",
	"comic",
}

type Platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// Candidate is a single raw search result.
type Candidate struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	TinyImage         string    `json:"tiny_image,omitempty"`
	Metascore         string    `json:"metascore,omitempty"`
	Platforms         Platforms `json:"platforms"`
	StreamingVideo    bool      `json:"streamingvideo,omitempty"`
	ControllerSupport string    `json:"controller_support,omitempty"`
}

type Match struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Ineligibility returns why a candidate cannot be a match, or "" if it can.
func Ineligibility(c Candidate) string {
	if c.Type != EntryTypeApp {
		return "type " + c.Type
	}
	for _, phrase := range excludedPhrases {
		if textnorm.ContainsWord(c.Name, phrase) {
			return "excluded word: " + phrase
		}
	}
	return ""
}

func Eligible(c Candidate) bool {
	return Ineligibility(c) == ""
}

// FilterEligible returns the eligible candidates in their original order.
func FilterEligible(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if Eligible(c) {
			out = append(out, c)
		}
	}
	return out
}

// keywordsMatch tolerates plurals and small suffix differences by accepting containment either way.
func keywordsMatch(a, b string) bool {
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// Score compares two titles, it is 1 when their normalized forms are equal and
// otherwise the fraction of title keywords found among the candidate keywords,
// relative to the larger keyword set.
func Score(title, candidateName string) float64 {
	if textnorm.Normalize(title) == textnorm.Normalize(candidateName) {
		return 1
	}

	titleKeywords := textnorm.ExtractKeywords(title)
	candidateKeywords := textnorm.ExtractKeywords(candidateName)
	if len(titleKeywords) == 0 || len(candidateKeywords) == 0 {
		return 0
	}

	common := 0
	for _, tk := range titleKeywords {
		for _, ck := range candidateKeywords {
			if keywordsMatch(tk, ck) {
				common++
				break
			}
		}
	}
	return float64(common) / float64(max(len(titleKeywords), len(candidateKeywords)))
}

type Matcher struct {
	Threshold float64
}

// New creates a Matcher, a non-positive threshold means DefaultThreshold.
func New(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// FindBestMatch returns the eligible candidate with the strictly highest score,
// the first one wins ties. ok is false when no candidate reaches the threshold.
func (m Matcher) FindBestMatch(title string, candidates []Candidate) (match Match, ok bool) {
	best := Match{Score: -1}
	for _, c := range candidates {
		if !Eligible(c) {
			continue
		}
		score := Score(title, c.Name)
		if score == 1 {
			return Match{ID: c.ID, Name: c.Name, Score: 1}, true
		}
		if score > best.Score {
			best = Match{ID: c.ID, Name: c.Name, Score: score}
		}
	}
	if best.Score < m.Threshold {
		return Match{}, false
	}
	return best, true
}

// FindBestMatch uses the default threshold.
func FindBestMatch(title string, candidates []Candidate) (Match, bool) {
	return New(DefaultThreshold).FindBestMatch(title, candidates)
}

// Ranked explains how a single candidate was judged.
type Ranked struct {
	Candidate Candidate `json:"candidate"`
	// Excluded is the reason the candidate was filtered out, empty when eligible.
	Excluded string  `json:"excluded,omitempty"`
	Score    float64 `json:"score"`
	// Similarity is the Jaro-Winkler similarity of the normalized names, it is
	// informational only and never used to select a match.
	Similarity float64 `json:"similarity"`
	Accepted   bool    `json:"accepted"`
}

// Rank scores every candidate in order, marking the one FindBestMatch would pick.
func (m Matcher) Rank(title string, candidates []Candidate) []Ranked {
	normalizedTitle := textnorm.Normalize(title)
	best, found := m.FindBestMatch(title, candidates)

	ranked := make([]Ranked, 0, len(candidates))
	accepted := false
	for _, c := range candidates {
		r := Ranked{
			Candidate:  c,
			Excluded:   Ineligibility(c),
			Similarity: matchr.JaroWinkler(normalizedTitle, textnorm.Normalize(c.Name), false),
		}
		if r.Excluded == "" {
			r.Score = Score(title, c.Name)
		}
		if found && !accepted && r.Excluded == "" && c.ID == best.ID && r.Score == best.Score {
			r.Accepted = true
			accepted = true
		}
		ranked = append(ranked, r)
	}
	return ranked
}
