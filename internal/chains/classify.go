package chains

import (
	"strings"
	"unicode"

	"github.com/julianstephens/daychain/internal/models"
)

// keywords are checked in order; the first type with a matching title word wins.
var keywords = []struct {
	anchorType models.AnchorType
	words      []string
}{
	{models.AnchorAppointment, []string{"appointment", "doctor", "dentist", "therapy", "clinic", "checkup"}},
	{models.AnchorWorkshop, []string{"workshop", "lab", "hackathon"}},
	{models.AnchorSeminar, []string{"seminar", "colloquium", "symposium"}},
	{models.AnchorClass, []string{"class", "lecture", "course", "tutorial", "recitation"}},
}

// ClassifyAnchor returns the commitment's explicit type when it is known, otherwise the
// first type whose keywords appear in the title.
func ClassifyAnchor(c models.Commitment) models.AnchorType {
	if t, ok := models.ParseAnchorType(string(c.AnchorType)); ok {
		return t
	}

	words := strings.FieldsFunc(strings.ToLower(c.Title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}

	for _, k := range keywords {
		for _, w := range k.words {
			if seen[w] {
				return k.anchorType
			}
		}
	}
	return models.AnchorOther
}

// ToAnchor classifies a commitment and converts it.
func ToAnchor(c models.Commitment) models.Anchor {
	return models.Anchor{
		ID:       c.ID,
		Title:    c.Title,
		Start:    c.Start,
		End:      c.End,
		Location: c.Location,
		Type:     ClassifyAnchor(c),
	}
}
