package textnorm

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Hollow Knight", expected: "hollow knight"},
		{input: "  Hollow   Knight  ", expected: "hollow knight"},
		{input: "DOOM™ Eternal®", expected: "doom eternal"},
		{input: "Portal©", expected: "portal"},
		{input: "Hollow Knight: Silksong", expected: "hollow knight silksong"},
		{input: "Half-Life 2", expected: "half life 2"},
		{input: "Metal Gear Solid Δ: Snake Eater", expected: "metal gear solid delta snake eater"},
		{input: "Project Α", expected: "project alpha"},
		{input: "βeta γamma", expected: "betaeta gammaamma"},
		{input: "Don't Starve Together", expected: "dont starve together"},
		{input: "Baldur's Gate 3 (2023)!", expected: "baldurs gate 3 2023"},
		{input: "Ｆｕｌｌ　Ｗｉｄｔｈ", expected: "full width"},
		{input: "!!!", expected: ""},
		{input: "", expected: ""},
		{input: "Tom Clancy's Rainbow Six® Siege", expected: "tom clancys rainbow six siege"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Normalize(test.input), "input: %q", test.input)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"Hollow Knight: Definitive Edition",
		"DOOM™ Eternal®",
		"Metal Gear Solid Δ",
		"Ｆｕｌｌ　Ｗｉｄｔｈ",
		"a -- b :: c",
		"ÉLAN vital",
		"ﬁnal ﬂight",
		"½ life",
		"\u1100!\u1161",
		"\u1100 \u1161",
		"\u1112:\u1161-\u11ab",
	}

	rndm := rand.New(rand.NewSource(7))
	alphabet := []rune("abcXYZ 09:-™®©ΔΑΒΓδ!?'&.é ")
	for n := 0; n < 200; n++ {
		runes := make([]rune, rndm.Intn(24))
		for i := range runes {
			runes[i] = alphabet[rndm.Intn(len(alphabet))]
		}
		samples = append(samples, string(runes))
	}

	for _, sample := range samples {
		once := Normalize(sample)
		require.Equal(t, once, Normalize(once), "sample: %q", sample)
	}
}

func TestNormalizeComposesAcrossDroppedRunes(t *testing.T) {
	// leading consonant and vowel jamo separated by punctuation
	require.Equal(t, "\uac00", Normalize("\u1100!\u1161"))
	require.Equal(t, "\ud55c", Normalize("\u1112'\u1161\u11ab"))
}

func TestExtractKeywords(t *testing.T) {
	testCases := []struct {
		input    string
		expected []string
	}{
		{input: "Hollow Knight: Definitive Edition", expected: []string{"hollow", "knight"}},
		{input: "The Elder Scrolls V: Skyrim Special Edition", expected: []string{"elder", "scrolls", "skyrim"}},
		{input: "Game of the Year", expected: []string{"year"}},
		{input: "Ultimate Deluxe Complete Standard", expected: nil},
		{input: "Go Go Go", expected: nil},
		{input: "Knight Knight Hollow", expected: []string{"knight", "hollow"}},
		{input: "Half-Life 2", expected: []string{"half", "life"}},
	}

	for _, test := range testCases {
		diff := cmp.Diff(test.expected, ExtractKeywords(test.input))
		if diff != "" {
			t.Fatalf("input %q: %s", test.input, diff)
		}
	}
}

func TestContainsWord(t *testing.T) {
	require.True(t, ContainsWord("Puzzle Pack", "pack"))
	require.False(t, ContainsWord("Unpacked Adventures", "pack"))
	require.True(t, ContainsWord("Hollow Knight - Season Pass", "season pass"))
	require.False(t, ContainsWord("Seasonal Passage", "season pass"))
	require.False(t, ContainsWord("anything", ""))
}
