package index

import (
	"log/slog"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/extract"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new and changed files are extracted and upserted
//   - unchanged files (matching content hash) are skipped
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	hashes, err := db.AllContentHashes()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if hashes[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range hashes {
		if _, ok := disk[p]; !ok {
			if err := db.RemoveNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Reindex rebuilds the index from scratch: stale entries are purged first,
// then every vault file is re-extracted regardless of its stored hash.
// Returns the number of files indexed.
func Reindex(db *DB, store storage.Provider, logger *slog.Logger) (int, error) {
	metas, err := store.List("")
	if err != nil {
		return 0, err
	}

	indexed, err := db.AllPaths()
	if err != nil {
		return 0, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	for p := range indexed {
		if _, ok := disk[p]; !ok {
			if err := db.RemoveNote(p); err != nil {
				logger.Warn("reindex: purge failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("reindex: removed stale", slog.String("path", p))
			}
		}
	}

	count := 0
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("reindex: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m); err != nil {
			logger.Warn("reindex: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		count++
	}
	logger.Info("reindex: complete", slog.Int("indexed", count))
	return count, nil
}

// IndexFile extracts facts from data and upserts the note as one unit.
func IndexFile(db *DB, path string, data []byte, meta models.NoteMetadata) error {
	content := string(data)
	fm, _ := extract.SplitFrontmatter(data)
	facts := extract.Extract(path, content, fm)

	row := NoteRow{
		ID:          checksum.NoteID(path),
		Path:        path,
		Title:       facts.Title,
		Content:     content,
		ContentHash: checksum.ContentHash(data),
		Frontmatter: fm,
		Archived:    facts.Archived,
		Starred:     facts.Starred,
		CreatedAt:   meta.CreatedAt,
		ModifiedAt:  meta.ModifiedAt,
	}
	return db.UpsertNote(row, facts)
}
