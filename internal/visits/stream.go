package visits

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/logging"
	"github.com/ziadkadry99/markpage/internal/manifest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Update is one message on the visit stream.
type Update struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// StreamHandler pushes the visit count of the page named by the query string
// over a websocket: the current value first, then every change.
func StreamHandler(store *Store, log *zap.Logger) http.HandlerFunc {
	log = logging.OrNop(log)
	return func(w http.ResponseWriter, r *http.Request) {
		pageID := manifest.Identity(r.URL.RawQuery)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("Visit stream upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		updates := make(chan int64, 16)
		cancel := store.Subscribe(pageID, func(n int64) {
			select {
			case updates <- n:
			default:
			}
		})
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Debug("Visit stream read", zap.Error(err))
					}
					return
				}
			}
		}()

		current, err := store.Count(r.Context(), pageID)
		if err != nil {
			log.Warn("Visit stream count failed", zap.String("page", pageID), zap.Error(err))
			return
		}
		if err := conn.WriteJSON(Update{Path: pageID, Count: current}); err != nil {
			return
		}

		for {
			select {
			case n := <-updates:
				if err := conn.WriteJSON(Update{Path: pageID, Count: n}); err != nil {
					log.Debug("Visit stream write", zap.Error(err))
					return
				}
			case <-closed:
				return
			}
		}
	}
}
