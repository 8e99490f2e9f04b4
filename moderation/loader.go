package moderation

import (
	"bufio"
	"bytes"
	"chat-hub/errors"
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
)

//go:embed censored/*.txt
var embeddedDictionaries embed.FS

// Dictionary is the result of loading the censored word files.
type Dictionary struct {
	Words     []string
	Languages []string
}

// EmbeddedDictionaries exposes the dictionaries shipped with the binary.
func EmbeddedDictionaries() fs.FS {
	sub, err := fs.Sub(embeddedDictionaries, "censored")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadDictionary reads every <lang>.txt file in dir, one word per line,
// and merges them with the extra words. Words are deduplicated and sorted.
func LoadDictionary(fsys fs.FS, dir string, extra ...string) (Dictionary, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Dictionary{}, err
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, w := range extra {
		if w = strings.TrimSpace(w); w != "" {
			unique[w] = struct{}{}
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return Dictionary{}, err
		}

		// Scanner handles both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return Dictionary{}, err
		}
	}

	if len(unique) == 0 {
		return Dictionary{}, errors.ErrEmptyWords
	}

	words := lo.Keys(unique)
	slices.Sort(words)
	return Dictionary{Words: words, Languages: languages}, nil
}
