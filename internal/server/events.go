package server

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

// handleEvents streams the caller's evaluation results as server-sent
// events until the request ends. Each event patches the "sequence" and
// "result" signals.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := s.clientFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-updates:
			if !ok {
				return
			}
			if evt.Client != c.id {
				continue
			}
			if err := sse.MarshalAndPatchSignals(evt); err != nil {
				_ = sse.ConsoleError(err)
				return
			}
		}
	}
}
