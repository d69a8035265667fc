package abcplay

import (
	"fmt"
	"os"

	"github.com/cbegin/abcplay-go/internal/abc"
)

// Load parses ABC text with the given settings.
func Load(text string, cfg abc.Settings) (*abc.Book, error) {
	return abc.Load(text, cfg)
}

// LoadFile reads and parses an ABC file. charset names the file encoding;
// empty means use the file's own %%abc-charset line or guess.
func LoadFile(path string, charset string, cfg abc.Settings) (*abc.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := abc.Decode(data, charset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	book, err := abc.Load(text, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return book, nil
}
