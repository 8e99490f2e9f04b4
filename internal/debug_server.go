package internal

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const inspectPage = `<!DOCTYPE html>
<html>
<head><title>chat-hub archive</title></head>
<body>
<form method="get"><input name="prefix" value="{{.Prefix}}"><button>Inspect</button></form>
{{if .Stats}}<ul>{{range $name, $value := .Stats}}<li>{{$name}}: {{$value}}</li>{{end}}</ul>{{end}}
<p>{{len .Items}} keys</p>
<table border="1" cellpadding="4">
<tr><th>Key</th><th>Type</th><th>Sequence</th><th>Identity</th><th>Detail</th></tr>
{{range .Items}}<tr><td>{{.Key}}</td><td>{{.Type}}</td><td>{{.Sequence}}</td><td>{{.Identity}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
</body>
</html>`

var inspectTemplate = template.Must(template.New("inspect").Parse(inspectPage))

type InspectRow struct {
	Key      string
	Type     string
	Sequence string
	Identity string
	Detail   string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes the badger keyspace as an HTML table on endpoint.
// The caller owns the returned server and shuts it down.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(endpoint, NewInspectHandler(db, mapper, statsProvider, "evt:"))

	server := &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}

// NewInspectHandler lists the keys under ?prefix=, defaultPrefix when absent.
func NewInspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider, defaultPrefix string) http.Handler {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{Prefix: prefix}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = inspectTemplate.Execute(w, data)
	})
}

// DefaultMapper reads the sequence from the last key segment and leaves the value opaque.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:      key,
		Type:     "RAW",
		Sequence: "-",
		Identity: "-",
		Detail:   "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	parts := strings.Split(key, ":")
	if seq, err := strconv.ParseUint(parts[len(parts)-1], 10, 64); err == nil && len(parts) > 1 {
		row.Sequence = strconv.FormatUint(seq, 10)
	}
	return row
}
