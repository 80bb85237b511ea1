package index

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/starford/othala/internal/dataview"
)

// ExecuteQuery compiles and runs a dataview query. It never returns a Go
// error: failures are reported inside the result envelope so callers render
// them in place of rows.
func (db *DB) ExecuteQuery(q *dataview.SerializedQuery) *dataview.Result {
	start := time.Now()
	kind := strings.ToUpper(strings.TrimSpace(q.Kind))

	compiled, err := dataview.Compile(q)
	if err != nil {
		return dataview.ErrorResult(kind, err.Error())
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(compiled.SQL, compiled.Args...)
	if err != nil {
		return dataview.ErrorResult(compiled.Kind, "query execution failed: "+err.Error())
	}
	defer rows.Close()

	result := &dataview.Result{Kind: compiled.Kind, Rows: []dataview.Row{}}
	if compiled.Kind == dataview.KindTable {
		result.Columns = compiled.Fields
	}

	for rows.Next() {
		var path, title string
		var created, modified int64
		var fmJSON sql.NullString
		// A row that fails to scan is dropped; the rest still render.
		if err := rows.Scan(&path, &title, &created, &modified, &fmJSON); err != nil {
			continue
		}

		values := map[string]any{
			"file.name":  title,
			"file.path":  path,
			"file.ctime": time.Unix(created, 0).UTC().Format(time.RFC3339),
			"file.mtime": time.Unix(modified, 0).UTC().Format(time.RFC3339),
		}
		if i := strings.LastIndex(path, "/"); i > 0 {
			values["file.folder"] = path[:i]
		}

		var fm map[string]any
		if fmJSON.Valid && fmJSON.String != "" {
			_ = json.Unmarshal([]byte(fmJSON.String), &fm)
		}
		for _, field := range compiled.Fields {
			if strings.HasPrefix(field, "file.") {
				continue
			}
			if v, ok := fm[field]; ok {
				values[field] = v
			}
		}

		result.Rows = append(result.Rows, dataview.Row{Path: path, Title: title, Values: values})
	}
	if err := rows.Err(); err != nil {
		return dataview.ErrorResult(compiled.Kind, "query execution failed: "+err.Error())
	}

	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result
}
