package catalog

import (
	"fmt"

	"github.com/davidbz/venicedesk/internal/domain"
)

// ParseKind validates a kind name.
func ParseKind(s string) (domain.ModelKind, error) {
	switch kind := domain.ModelKind(s); kind {
	case domain.ModelKindChat, domain.ModelKindImage, domain.ModelKindTTS,
		domain.ModelKindEmbedding, domain.ModelKindUpscale:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown model kind: %q", s)
	}
}

// Matches reports whether m belongs to kind, by type or by trait.
func Matches(m domain.Model, kind domain.ModelKind) bool {
	switch kind {
	case domain.ModelKindChat:
		return m.Type == "text" || m.HasTrait("chat") || m.HasTrait("text")
	case domain.ModelKindImage:
		return m.Type == "image" || m.HasTrait("image")
	case domain.ModelKindTTS:
		return m.Type == "audio" || m.Type == "tts" || m.HasTrait("audio") || m.HasTrait("tts")
	case domain.ModelKindEmbedding:
		return m.Type == "embedding" || m.HasTrait("embedding")
	case domain.ModelKindUpscale:
		return m.Type == "upscale" || m.HasTrait("upscale")
	default:
		return false
	}
}

// Filter keeps the models of one kind.
func Filter(models []domain.Model, kind domain.ModelKind) []domain.Model {
	out := make([]domain.Model, 0, len(models))
	for _, m := range models {
		if Matches(m, kind) {
			out = append(out, m)
		}
	}
	return out
}
