package settings

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/db"
)

// LoadDoc fetches the stored settings document verbatim. Returns nil when no
// document has been saved yet.
func LoadDoc(ctx context.Context, pool db.Pool) ([]byte, error) {
	var doc []byte
	err := pool.QueryRow(ctx, `SELECT doc FROM crm.scoring_settings WHERE id = 1`).Scan(&doc)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "settings: load document")
	}
	return doc, nil
}

// SaveDoc replaces the stored settings document verbatim. The document must
// be a JSON object; sanitization happens on read, not write.
func SaveDoc(ctx context.Context, pool db.Pool, doc []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc, &obj); err != nil {
		return eris.Wrap(err, "settings: document is not a JSON object")
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO crm.scoring_settings (id, doc, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, doc)
	if err != nil {
		return eris.Wrap(err, "settings: save document")
	}
	return nil
}

// LoadResolved returns the stored document resolved over the given defaults.
// Storage or parse trouble degrades to the defaults with a warning rather
// than failing the request.
func LoadResolved(ctx context.Context, pool db.Pool, defaults Settings) Settings {
	doc, err := LoadDoc(ctx, pool)
	if err != nil {
		zap.L().Warn("settings: falling back to defaults", zap.Error(err))
		return Resolve(nil, defaults)
	}
	return Resolve(doc, defaults)
}
