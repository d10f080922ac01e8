package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"voiceletter/internal/model"
	"voiceletter/internal/store"
)

// Analyze derives the prompt fields from the profile's style attributes and
// writing samples and moves the profile draft -> analyzing -> ready. The
// derivation is deterministic; no model calls are involved.
func (r *Repository) Analyze(ctx context.Context, id, ownerID uuid.UUID) (*model.VoiceProfile, error) {
	analyzing := model.ProfileStatusAnalyzing
	p, err := r.store.UpdateProfile(ctx, id, ownerID, store.ProfileUpdate{Status: &analyzing})
	if err != nil {
		return nil, err
	}

	avgLen := averageSentenceLength(p.WritingSamples)
	voicePrompt := buildVoicePrompt(p, avgLen)
	systemPrompt := buildSystemPrompt(p)
	ready := model.ProfileStatusReady

	return r.store.UpdateProfile(ctx, id, ownerID, store.ProfileUpdate{
		AvgSentenceLength: &avgLen,
		VoicePrompt:       &voicePrompt,
		SystemPrompt:      &systemPrompt,
		Status:            &ready,
	})
}

// averageSentenceLength counts words per sentence across all writing samples.
func averageSentenceLength(samples []model.WritingSample) float64 {
	var sentences, words int
	for _, s := range samples {
		for _, sentence := range splitSentences(s.Text) {
			n := len(strings.Fields(sentence))
			if n == 0 {
				continue
			}
			sentences++
			words += n
		}
	}
	if sentences == 0 {
		return 0
	}
	return float64(words) / float64(sentences)
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

var formalityLabels = map[int]string{
	1: "very casual",
	2: "casual",
	3: "balanced",
	4: "formal",
	5: "very formal",
}

var detailLabels = map[int]string{
	1: "high-level overviews only",
	2: "light on detail",
	3: "moderately detailed",
	4: "detailed",
	5: "deeply detailed with full context",
}

func buildVoicePrompt(p *model.VoiceProfile, avgSentenceLength float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write in the voice of %q.\n", p.Name)
	if len(p.Tones) > 0 {
		fmt.Fprintf(&b, "Tone: %s.\n", strings.Join(p.Tones, ", "))
	}
	fmt.Fprintf(&b, "Formality: %s. Detail: %s.\n", formalityLabels[p.Formality], detailLabels[p.DetailLevel])
	if p.SentenceStyle != "" {
		fmt.Fprintf(&b, "Sentence style: %s.\n", p.SentenceStyle)
	}
	if p.VocabularyLevel != "" {
		fmt.Fprintf(&b, "Vocabulary: %s.\n", p.VocabularyLevel)
	}
	if p.ParagraphPattern != "" {
		fmt.Fprintf(&b, "Paragraph pattern: %s.\n", p.ParagraphPattern)
	}
	if avgSentenceLength > 0 {
		fmt.Fprintf(&b, "Aim for an average sentence length of about %.0f words.\n", avgSentenceLength)
	}
	if len(p.CommonPhrases) > 0 {
		fmt.Fprintf(&b, "Work in phrases the author favors: %s.\n", strings.Join(p.CommonPhrases, "; "))
	}
	if len(p.AvoidPhrases) > 0 {
		fmt.Fprintf(&b, "Never use: %s.\n", strings.Join(p.AvoidPhrases, "; "))
	}

	var habits []string
	if p.UsesEmojis {
		habits = append(habits, "occasional emojis")
	}
	if p.UsesQuestions {
		habits = append(habits, "rhetorical questions")
	}
	if p.UsesAnecdotes {
		habits = append(habits, "personal anecdotes")
	}
	if p.UsesStatistics {
		habits = append(habits, "concrete numbers and statistics")
	}
	if p.UsesHumor {
		habits = append(habits, "light humor")
	}
	if len(habits) > 0 {
		fmt.Fprintf(&b, "Signature habits: %s.\n", strings.Join(habits, ", "))
	}
	return b.String()
}

func buildSystemPrompt(p *model.VoiceProfile) string {
	var b strings.Builder
	b.WriteString("You are a newsletter ghostwriter. Replicate the author's voice exactly as described.\n")
	b.WriteString("Do not invent facts. Only use information from the provided source material.\n")
	if len(p.WritingSamples) > 0 {
		fmt.Fprintf(&b, "Study these %d writing samples before drafting:\n", len(p.WritingSamples))
		for i, s := range p.WritingSamples {
			sample := s.Text
			if len(sample) > 600 {
				sample = sample[:600] + "..."
			}
			fmt.Fprintf(&b, "Sample %d (%s):\n\"\"\"\n%s\n\"\"\"\n", i+1, s.SourceKind, sample)
		}
	}
	return b.String()
}
