package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
	gomponents "maragu.dev/gomponents"
)

// patchStream writes Datastar patch events to a browser. Elements are
// morphed into the page by their id.
type patchStream struct {
	sse *datastar.ServerSentEventGenerator
}

func newPatchStream(w http.ResponseWriter, r *http.Request) *patchStream {
	w.Header().Set("X-Accel-Buffering", "no")
	return &patchStream{sse: datastar.NewSSE(w, r)}
}

// PatchElements renders node and sends it as one patch event.
func (s *patchStream) PatchElements(node gomponents.Node) error {
	var b strings.Builder
	if err := node.Render(&b); err != nil {
		return fmt.Errorf("render patch: %w", err)
	}
	if err := s.sse.PatchElements(b.String()); err != nil {
		return fmt.Errorf("patch elements: %w", err)
	}
	return nil
}

// PatchSignals merges signals into the page's signal store.
func (s *patchStream) PatchSignals(signals map[string]any) error {
	if err := s.sse.MarshalAndPatchSignals(signals); err != nil {
		return fmt.Errorf("patch signals: %w", err)
	}
	return nil
}
