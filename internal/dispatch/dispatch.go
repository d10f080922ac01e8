// Package dispatch talks to the external generation workflow: it validates
// and builds the outbound request, sends it, and checks the synchronous
// acknowledgment. A local simulator stands in for the workflow when no
// webhook URL is configured.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voiceletter/internal/model"
)

// GenerationRequest is the caller-facing input for one generation.
type GenerationRequest struct {
	ProfileID      string `json:"profile_id"`
	NewsletterName string `json:"newsletter_name"`
	SourceKind     string `json:"source_kind"`
	Handle         string `json:"handle,omitempty"`
	VideoURL       string `json:"video_url,omitempty"`
	ArticleText    string `json:"article_text,omitempty"`
}

// SourceValue returns the value recorded on the generation for the selected
// source kind. Pasted text is large, so only a sentinel is recorded; the full
// text survives in the raw request snapshot.
func (r GenerationRequest) SourceValue() string {
	switch r.SourceKind {
	case model.SourceKindHandle:
		return r.Handle
	case model.SourceKindVideo:
		return r.VideoURL
	case model.SourceKindArticle:
		return model.PastedArticleSentinel
	default:
		return ""
	}
}

// VoicePayload is the voice-profile sub-object embedded in the dispatch
// request. Bookkeeping fields (status, counters, timestamps) are deliberately
// not part of it.
type VoicePayload struct {
	Name             string                `json:"name"`
	Tones            []string              `json:"tones"`
	Formality        int                   `json:"formality"`
	DetailLevel      int                   `json:"detail_level"`
	SentenceStyle    string                `json:"sentence_style"`
	VocabularyLevel  string                `json:"vocabulary_level"`
	ParagraphPattern string                `json:"paragraph_pattern"`
	CommonPhrases    []string              `json:"common_phrases"`
	AvoidPhrases     []string              `json:"avoid_phrases"`
	UsesEmojis       bool                  `json:"uses_emojis"`
	UsesQuestions    bool                  `json:"uses_questions"`
	UsesAnecdotes    bool                  `json:"uses_anecdotes"`
	UsesStatistics   bool                  `json:"uses_statistics"`
	UsesHumor        bool                  `json:"uses_humor"`
	WritingSamples   []model.WritingSample `json:"writing_samples"`
}

// Payload is the wire request sent to the workflow. The receiver depends on
// handle, video_url and article_text all being present as keys, so the two
// unselected sources are explicit nulls, never omitted.
type Payload struct {
	UserID         string       `json:"user_id"`
	ProfileID      string       `json:"profile_id"`
	GenerationID   string       `json:"generation_id"`
	NewsletterName string       `json:"newsletter_name"`
	SourceKind     string       `json:"source_kind"`
	Handle         *string      `json:"handle"`
	VideoURL       *string      `json:"video_url"`
	ArticleText    *string      `json:"article_text"`
	VoiceProfile   VoicePayload `json:"voice_profile"`
	CallbackURL    string       `json:"callback_url"`
}

// Ack is the workflow's synchronous reply to a dispatch.
type Ack struct {
	ExecutionID     string                    `json:"execution_id"`
	UserID          string                    `json:"user_id"`
	Status          string                    `json:"status"` // completed | failed | pending
	Articles        []model.NewsletterArticle `json:"articles"`
	ExportFolderURL string                    `json:"export_folder_url"`
	CompletedAt     *time.Time                `json:"completed_at"`
}

// CallbackPayload is the workflow's asynchronous completion notification.
type CallbackPayload struct {
	ExecutionID      string                    `json:"execution_id"`
	GenerationID     string                    `json:"generation_id"`
	UserID           string                    `json:"user_id"`
	Status           string                    `json:"status"` // completed | failed
	Articles         []model.NewsletterArticle `json:"articles"`
	ExportFolderURL  string                    `json:"export_folder_url"`
	ExportFiles      []string                  `json:"export_files"`
	ExecutionTimeSec float64                   `json:"execution_time_seconds"`
	TotalWordCount   int                       `json:"total_word_count"`
	CostEstimate     float64                   `json:"cost_estimate"`
	CompletedAt      *time.Time                `json:"completed_at"`
	ErrorMessage     string                    `json:"error_message"`
}

// Dispatcher sends a generation request to the workflow.
type Dispatcher interface {
	Send(ctx context.Context, p Payload) (*Ack, error)
	Name() string
}

// Error is a dispatch failure with the workflow's response captured verbatim.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation webhook returned status %d: %s", e.StatusCode, e.Body)
}

// BuildPayload assembles the wire request for one generation, enforcing the
// exactly-one-source rule.
func BuildPayload(req GenerationRequest, p *model.VoiceProfile, generationID uuid.UUID, callbackURL string) Payload {
	out := Payload{
		UserID:         p.OwnerID.String(),
		ProfileID:      p.ID.String(),
		GenerationID:   generationID.String(),
		NewsletterName: req.NewsletterName,
		SourceKind:     req.SourceKind,
		VoiceProfile: VoicePayload{
			Name:             p.Name,
			Tones:            p.Tones,
			Formality:        p.Formality,
			DetailLevel:      p.DetailLevel,
			SentenceStyle:    p.SentenceStyle,
			VocabularyLevel:  p.VocabularyLevel,
			ParagraphPattern: p.ParagraphPattern,
			CommonPhrases:    p.CommonPhrases,
			AvoidPhrases:     p.AvoidPhrases,
			UsesEmojis:       p.UsesEmojis,
			UsesQuestions:    p.UsesQuestions,
			UsesAnecdotes:    p.UsesAnecdotes,
			UsesStatistics:   p.UsesStatistics,
			UsesHumor:        p.UsesHumor,
			WritingSamples:   p.WritingSamples,
		},
		CallbackURL: callbackURL,
	}

	switch req.SourceKind {
	case model.SourceKindHandle:
		h := req.Handle
		out.Handle = &h
	case model.SourceKindVideo:
		u := req.VideoURL
		out.VideoURL = &u
	case model.SourceKindArticle:
		t := req.ArticleText
		out.ArticleText = &t
	}
	return out
}

func validateAck(ack *Ack) error {
	if ack.ExecutionID == "" {
		return fmt.Errorf("workflow reply is missing execution_id")
	}
	if ack.UserID == "" {
		return fmt.Errorf("workflow reply is missing user_id")
	}
	switch ack.Status {
	case model.GenerationStatusCompleted, model.GenerationStatusFailed, model.GenerationStatusPending:
	default:
		return fmt.Errorf("workflow reply has unknown status %q", ack.Status)
	}
	if ack.Status == model.GenerationStatusCompleted {
		if err := ValidateArticles(ack.Articles); err != nil {
			return fmt.Errorf("workflow reply claims completion but %v", err)
		}
	}
	return nil
}

// MaxArticles bounds one generation's output.
const MaxArticles = 5

// ValidateArticles checks a terminal payload's article list: at least one
// article, at most MaxArticles, with ordinals unique and dense over [1, count].
func ValidateArticles(articles []model.NewsletterArticle) error {
	if len(articles) == 0 {
		return fmt.Errorf("carries no articles")
	}
	if len(articles) > MaxArticles {
		return fmt.Errorf("carries %d articles, at most %d are allowed", len(articles), MaxArticles)
	}
	seen := make(map[int]bool, len(articles))
	for _, a := range articles {
		if a.Number < 1 || a.Number > len(articles) || seen[a.Number] {
			return fmt.Errorf("has article ordinals that are not unique and dense over 1..%d", len(articles))
		}
		seen[a.Number] = true
	}
	return nil
}
