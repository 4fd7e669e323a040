package hub

import (
	"context"
	"log/slog"

	"go.clipscout.dev/clipscout/internal/message"
)

// logItems logs a data message at INFO (source, id, mime types) and DEBUG
// (text preview up to 120 chars, or byte size for binary items).
func logItems(log *slog.Logger, event string, msg *message.Message) {
	log.Info(event, "source", msg.Source, "id", msg.ID, "types", msg.Items.MIMEs())

	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, it := range msg.Items {
		if it.MIME == "text/plain" {
			preview := string(it.Data)
			if len(preview) > 120 {
				preview = preview[:120] + "…"
			}
			log.Debug("clipboard item", "mime", it.MIME, "preview", preview)
		} else {
			log.Debug("clipboard item", "mime", it.MIME, "size_bytes", len(it.Data))
		}
	}
}
