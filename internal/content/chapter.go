package content

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatChapterReference renders a book and chapter as the backend expects,
// e.g. ("1 john", 3) becomes "1 John 3".
func FormatChapterReference(book string, chapter int) (string, error) {
	name := strings.Join(strings.Fields(book), " ")
	if name == "" {
		return "", fmt.Errorf("chapter reference: book is required")
	}
	if chapter <= 0 {
		return "", fmt.Errorf("chapter reference: chapter must be positive, got %d", chapter)
	}
	return fmt.Sprintf("%s %d", cases.Title(language.English).String(name), chapter), nil
}
