package api

import (
	"voiceletter/internal/model"
	"voiceletter/internal/profile"
)

// WritingSampleDTO mirrors model.WritingSample for request binding.
type WritingSampleDTO struct {
	Text       string  `json:"text" binding:"required"`
	SourceKind string  `json:"source_kind" binding:"required"`
	URL        *string `json:"url"`
}

// CreateProfileRequest is the wizard's profile creation payload.
type CreateProfileRequest struct {
	Name             string             `json:"name" binding:"required"`
	Tones            []string           `json:"tones" binding:"max=5"`
	Formality        int                `json:"formality" binding:"required,min=1,max=5"`
	DetailLevel      int                `json:"detail_level" binding:"required,min=1,max=5"`
	SentenceStyle    string             `json:"sentence_style"`
	VocabularyLevel  string             `json:"vocabulary_level"`
	ParagraphPattern string             `json:"paragraph_pattern"`
	CommonPhrases    []string           `json:"common_phrases"`
	AvoidPhrases     []string           `json:"avoid_phrases"`
	UsesEmojis       bool               `json:"uses_emojis"`
	UsesQuestions    bool               `json:"uses_questions"`
	UsesAnecdotes    bool               `json:"uses_anecdotes"`
	UsesStatistics   bool               `json:"uses_statistics"`
	UsesHumor        bool               `json:"uses_humor"`
	WritingSamples   []WritingSampleDTO `json:"writing_samples"`
}

func (r CreateProfileRequest) toInput() profile.Input {
	samples := make([]model.WritingSample, 0, len(r.WritingSamples))
	for _, s := range r.WritingSamples {
		samples = append(samples, model.WritingSample{Text: s.Text, SourceKind: s.SourceKind, URL: s.URL})
	}
	return profile.Input{
		Name:             r.Name,
		Tones:            r.Tones,
		Formality:        r.Formality,
		DetailLevel:      r.DetailLevel,
		SentenceStyle:    r.SentenceStyle,
		VocabularyLevel:  r.VocabularyLevel,
		ParagraphPattern: r.ParagraphPattern,
		CommonPhrases:    r.CommonPhrases,
		AvoidPhrases:     r.AvoidPhrases,
		UsesEmojis:       r.UsesEmojis,
		UsesQuestions:    r.UsesQuestions,
		UsesAnecdotes:    r.UsesAnecdotes,
		UsesStatistics:   r.UsesStatistics,
		UsesHumor:        r.UsesHumor,
		WritingSamples:   samples,
	}
}

// UpdateProfileRequest is a partial content update; nil fields stay untouched.
type UpdateProfileRequest struct {
	Name             *string             `json:"name"`
	Tones            *[]string           `json:"tones"`
	Formality        *int                `json:"formality" binding:"omitempty,min=1,max=5"`
	DetailLevel      *int                `json:"detail_level" binding:"omitempty,min=1,max=5"`
	SentenceStyle    *string             `json:"sentence_style"`
	VocabularyLevel  *string             `json:"vocabulary_level"`
	ParagraphPattern *string             `json:"paragraph_pattern"`
	CommonPhrases    *[]string           `json:"common_phrases"`
	AvoidPhrases     *[]string           `json:"avoid_phrases"`
	UsesEmojis       *bool               `json:"uses_emojis"`
	UsesQuestions    *bool               `json:"uses_questions"`
	UsesAnecdotes    *bool               `json:"uses_anecdotes"`
	UsesStatistics   *bool               `json:"uses_statistics"`
	UsesHumor        *bool               `json:"uses_humor"`
	WritingSamples   *[]WritingSampleDTO `json:"writing_samples"`
	AvgRating        *float64            `json:"avg_rating" binding:"omitempty,min=0,max=5"`
}

// UpdateProfileStatusRequest sets only the lifecycle status.
type UpdateProfileStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft analyzing ready approved"`
}

// StartGenerationRequest deliberately avoids binding-level required tags on
// the content fields: the dispatch validator collects every problem into one
// message list and records it on the generation instead of failing fast field
// by field.
type StartGenerationRequest struct {
	ProfileID      string `json:"profile_id"`
	NewsletterName string `json:"newsletter_name"`
	SourceKind     string `json:"source_kind"`
	Handle         string `json:"handle"`
	VideoURL       string `json:"video_url"`
	ArticleText    string `json:"article_text"`
}
