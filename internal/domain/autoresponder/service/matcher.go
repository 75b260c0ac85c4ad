package service

import (
	"strings"

	"github.com/hower/prospector/internal/domain/autoresponder/entity"
)

// Select picks at most one autoresponder for an inbound text. Candidates are
// walked in the given order (the configured priority) and the first match is
// returned immediately; there is no best-match scoring. A candidate with
// keyword matching disabled, or with an empty keyword list, matches
// unconditionally. Returns nil when nothing matches.
func Select(inboundText string, candidates []entity.Autoresponder) *entity.Autoresponder {
	lower := strings.ToLower(inboundText)

	for i := range candidates {
		c := &candidates[i]
		if !c.IsActive {
			continue
		}
		if !c.UseKeywords || len(c.Keywords) == 0 {
			return c
		}
		if matchesKeyword(lower, c.Keywords) {
			return c
		}
	}

	return nil
}

// SelectForComment is Select restricted to responders covering the commented
// post. DM-kind candidates never apply here.
func SelectForComment(commentText, mediaID string, candidates []entity.Autoresponder) *entity.Autoresponder {
	var eligible []entity.Autoresponder
	for _, c := range candidates {
		if c.AppliesToMedia(mediaID) {
			eligible = append(eligible, c)
		}
	}
	return Select(commentText, eligible)
}

// matchesKeyword reports whether any keyword is a case-insensitive substring
// of the (already lowered) text. Keywords are plain data, no wildcards.
func matchesKeyword(loweredText string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
