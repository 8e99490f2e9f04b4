package moderation

import (
	"chat-hub/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadDictionary(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"dict/en.txt":     {Data: []byte("badger\r\nsnake\n\n  mushroom  \n")},
		"dict/fr.txt":     {Data: []byte("blaireau\nbadger\n")},
		"dict/README.md":  {Data: []byte("not a dictionary")},
		"dict/old/de.txt": {Data: []byte("dachs\n")},
	}

	// When dictionaries are loaded with an extra word
	dictionary, err := LoadDictionary(fsys, "dict", " weasel ", "")

	// Then words are merged, trimmed and deduplicated
	req.NoError(err)
	req.Equal([]string{"badger", "blaireau", "mushroom", "snake", "weasel"}, dictionary.Words)
	req.Equal([]string{"en", "fr"}, dictionary.Languages)
}

func TestLoadDictionary_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"dict/en.txt": {Data: []byte("\n\n")}}

	_, err := LoadDictionary(fsys, "dict")

	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestLoadDictionary_Embedded(t *testing.T) {
	req := require.New(t)

	dictionary, err := LoadDictionary(EmbeddedDictionaries(), ".")

	req.NoError(err)
	req.Contains(dictionary.Words, "badger")
	req.Contains(dictionary.Languages, "en")
}
