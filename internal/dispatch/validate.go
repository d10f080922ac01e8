package dispatch

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"voiceletter/internal/model"
)

const (
	minArticleChars = 100
	maxArticleChars = 50000
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// Validate checks a generation request before any network call. It returns
// every problem it finds as a human-readable message so the caller can show
// them all at once; an empty slice means the request is dispatchable.
func Validate(req GenerationRequest) []string {
	var errs []string

	if req.ProfileID == "" {
		errs = append(errs, "a voice profile is required")
	}
	if req.NewsletterName == "" {
		errs = append(errs, "newsletter name is required")
	}

	switch req.SourceKind {
	case model.SourceKindHandle:
		if req.Handle == "" {
			errs = append(errs, "a social media handle is required")
		} else if !handlePattern.MatchString(strings.TrimPrefix(req.Handle, "@")) {
			errs = append(errs, "handle must be 1-15 letters, digits or underscores")
		}
	case model.SourceKindVideo:
		if req.VideoURL == "" {
			errs = append(errs, "a video URL is required")
		} else if !isVideoURL(req.VideoURL) {
			errs = append(errs, "video URL must be a valid YouTube URL")
		}
	case model.SourceKindArticle:
		n := len(req.ArticleText)
		if n < minArticleChars {
			errs = append(errs, fmt.Sprintf("article text must be at least %d characters, got %d", minArticleChars, n))
		} else if n > maxArticleChars {
			errs = append(errs, fmt.Sprintf("article text must be at most %d characters, got %d", maxArticleChars, n))
		}
	case "":
		errs = append(errs, "a content source kind is required")
	default:
		errs = append(errs, fmt.Sprintf("unknown content source kind %q", req.SourceKind))
	}

	return errs
}

// isVideoURL accepts youtube.com watch links and youtu.be short links.
func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		return u.Path == "/watch" && u.Query().Get("v") != ""
	case "youtu.be":
		return len(strings.Trim(u.Path, "/")) > 0
	}
	return false
}
