package comments

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// defaultBlocklist seeds the phrase filter with the usual comment-spam
// vocabulary. Deployments extend it via ModerationConfig.Blocklist.
var defaultBlocklist = []string{
	"viagra",
	"casino bonus",
	"free followers",
	"crypto giveaway",
	"work from home opportunity",
	"click here to claim",
	"cheap replica",
	"seo services",
	"payday loan",
	"limited time offer",
}

// ModerationConfig tunes the triage heuristics.
type ModerationConfig struct {
	// Blocklist extends the built-in spam phrase list.
	Blocklist []string `json:"blocklist"`

	// MaxLinks is the number of URLs a comment may contain before it
	// is treated as spam.
	MaxLinks int `json:"max_links"`

	// MinBodyLen flags bodies shorter than this as spam when they also
	// contain a link.
	MinBodyLen int `json:"min_body_len"`
}

// DefaultModerationConfig returns the standard triage settings.
func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{MaxLinks: 2, MinBodyLen: 12}
}

// Moderator triages incoming comments. Phrase checks run against a
// bloom filter, so the full blocklist never needs scanning per comment;
// a bloom hit is confirmed against the exact list before flagging.
type Moderator struct {
	cfg     ModerationConfig
	filter  *bloom.BloomFilter
	phrases map[string]struct{}
}

// NewModerator builds a moderator from the built-in blocklist plus any
// configured extensions.
func NewModerator(cfg ModerationConfig) *Moderator {
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = DefaultModerationConfig().MaxLinks
	}
	if cfg.MinBodyLen <= 0 {
		cfg.MinBodyLen = DefaultModerationConfig().MinBodyLen
	}

	phrases := make(map[string]struct{})
	all := append(append([]string{}, defaultBlocklist...), cfg.Blocklist...)
	filter := bloom.NewWithEstimates(uint(len(all))*4+64, 0.001)
	for _, p := range all {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		phrases[p] = struct{}{}
		filter.AddString(p)
	}

	return &Moderator{cfg: cfg, filter: filter, phrases: phrases}
}

// Triage returns the initial status for a submitted comment: spam for
// blocklist or heuristic hits, pending otherwise.
func (m *Moderator) Triage(c *Comment) Status {
	body := strings.ToLower(c.Body)

	if m.containsBlockedPhrase(body) || m.containsBlockedPhrase(strings.ToLower(c.Email)) {
		return StatusSpam
	}

	links := strings.Count(body, "http://") + strings.Count(body, "https://")
	if links > m.cfg.MaxLinks {
		return StatusSpam
	}
	if links > 0 && len(strings.TrimSpace(c.Body)) < m.cfg.MinBodyLen {
		return StatusSpam
	}

	return StatusPending
}

// containsBlockedPhrase checks every word window of the text against
// the filter, confirming hits against the exact phrase set.
func (m *Moderator) containsBlockedPhrase(text string) bool {
	if text == "" {
		return false
	}

	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?;:()\"'")
	}

	// Blocklist phrases span at most five words.
	const maxWindow = 5
	for i := range words {
		for n := 1; n <= maxWindow && i+n <= len(words); n++ {
			window := strings.Join(words[i:i+n], " ")
			if m.filter.TestString(window) {
				if _, exact := m.phrases[window]; exact {
					return true
				}
			}
		}
	}
	return false
}
