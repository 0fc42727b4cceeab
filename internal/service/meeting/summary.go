package meeting

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
)

// generateSummary compiles the transcript and asks the provider for a
// structured closing summary. Any failure falls back to a fixed notice: a
// broken summarizer must never block the end or expiry transition. The
// reason suffix ("" or " (Time Expired)") lands on both variants.
func (s *Service) generateSummary(ctx context.Context, rm room.Room, reason string) string {
	fallback := fmt.Sprintf("🏁 Meeting ended%s.", reason)

	history, err := s.store.Messages().ListByRoom(ctx, rm.ID, s.cfg.SummaryHistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("room", rm.ID).Msg("summary transcript fetch failed")
		return fallback
	}
	if len(history) == 0 || s.provider == nil {
		return fallback
	}

	// All participants, removed included: a persona who spoke and was later
	// removed still needs attribution.
	names := make(map[string]string)
	if participants, err := s.store.Participants().ListByRoom(ctx, rm.ID); err == nil {
		ids := make([]string, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.PersonaID)
		}
		if personas, err := s.store.Personas().GetMany(ctx, ids); err == nil {
			for _, p := range personas {
				names[p.ID] = p.DisplayName()
			}
		}
	}

	transcript := ai.RenderTranscript(history, names)
	raw, err := s.provider.Complete(ctx, ai.SummarySystemPrompt, []*schema.Message{
		ai.BuildSummaryRequest(rm, transcript),
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		log.Warn().Err(err).Str("room", rm.ID).Msg("summary generation failed, using fallback")
		return fallback
	}

	return fmt.Sprintf("🏁 **Meeting Ended%s**\n\n%s", reason, raw)
}
