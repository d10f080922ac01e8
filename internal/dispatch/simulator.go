package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// Simulator stands in for the external workflow when no webhook URL is
// configured. It acknowledges every dispatch as pending and delivers a
// completed callback to the sink after a short delay, so the rest of the
// system observes the same pending -> processing -> completed sequence as the
// live path.
type Simulator struct {
	sink  func(CallbackPayload)
	delay time.Duration
}

func NewSimulator(sink func(CallbackPayload), delay time.Duration) *Simulator {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Simulator{sink: sink, delay: delay}
}

func (s *Simulator) Name() string {
	return "simulator"
}

func (s *Simulator) Send(ctx context.Context, p Payload) (*Ack, error) {
	executionID := "sim_" + uuid.NewString()
	log.Printf("[Dispatch] Simulating workflow execution %s for generation %s", executionID, p.GenerationID)

	payload := simulatedCompletion(executionID, p)
	time.AfterFunc(s.delay, func() {
		s.sink(payload)
	})

	return &Ack{
		ExecutionID: executionID,
		UserID:      p.UserID,
		Status:      model.GenerationStatusPending,
	}, nil
}

var sampleTopics = []string{
	"The one metric everyone ignores",
	"What changed this week",
	"A contrarian take worth hearing",
	"Lessons from the trenches",
	"Where this is heading next",
}

func simulatedCompletion(executionID string, p Payload) CallbackPayload {
	now := time.Now().UTC()
	payload := CallbackPayload{
		ExecutionID:      executionID,
		GenerationID:     p.GenerationID,
		UserID:           p.UserID,
		Status:           model.GenerationStatusCompleted,
		ExportFolderURL:  "https://drive.example.com/folders/" + executionID,
		ExecutionTimeSec: 4.2,
		CompletedAt:      &now,
	}

	for i, topic := range sampleTopics {
		body := sampleArticleBody(p, topic)
		fileID := fmt.Sprintf("%s/article-%d.md", executionID, i+1)
		payload.Articles = append(payload.Articles, model.NewsletterArticle{
			Number:          i + 1,
			Title:           topic,
			SubjectLine:     fmt.Sprintf("%s: %s", p.NewsletterName, topic),
			PreviewText:     "A simulated issue generated in offline mode.",
			ContentMarkdown: body,
			WordCount:       len(strings.Fields(body)),
			SourceType:      p.SourceKind,
			NewsletterType:  "weekly_digest",
			ExportFileID:    &fileID,
			GeneratedAt:     now,
		})
		payload.ExportFiles = append(payload.ExportFiles, fileID)
	}
	return payload
}

func sampleArticleBody(p Payload, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", topic)
	fmt.Fprintf(&b, "This is a simulated draft for %s, written in the %q voice. ", p.NewsletterName, p.VoiceProfile.Name)
	b.WriteString("It exists so the application can be exercised end to end without the external workflow. ")
	b.WriteString("Every paragraph here is placeholder prose with a realistic length and shape.\n\n")
	b.WriteString("A second paragraph keeps the word count plausible. Nothing in it is real analysis, ")
	b.WriteString("but it flows the way a finished newsletter section would.\n")
	return b.String()
}
