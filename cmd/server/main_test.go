package main

import (
	"chat-hub/domain/event"
	"chat-hub/repositories"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArchiveMapper(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	value, err := repositories.EncodeEvent(event.ChatMessage{
		Header: event.Header{Seq: 12, At: at}, Participant: "Ana", Text: "hi",
	})
	req.NoError(err)

	row := ArchiveMapper("evt:00000000000000000012", value)

	req.Equal("chat_message", row.Type)
	req.Equal("12", row.Sequence)
	req.Equal("Ana", row.Identity)
	req.Equal("hi", row.Detail)
}

func TestArchiveMapper_Undecodable(t *testing.T) {
	req := require.New(t)

	row := ArchiveMapper("evt:00000000000000000001", []byte{0xff})

	req.Equal("RAW", row.Type)
	req.Contains(row.Detail, "Error:")
}

func TestDictionariesFS(t *testing.T) {
	req := require.New(t)

	// Given no directory the embedded dictionaries are used
	embedded, err := dictionariesFS("")
	req.NoError(err)
	req.NotNil(embedded)

	// Given a directory its files are read
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "es.txt"), []byte("tejón\n"), 0o600))
	fsys, err := dictionariesFS(dir)
	req.NoError(err)
	content, err := fs.ReadFile(fsys, "es.txt")
	req.NoError(err)
	req.Equal("tejón\n", string(content))

	// Given a file instead of a directory
	_, err = dictionariesFS(filepath.Join(dir, "es.txt"))
	req.Error(err)
}
