package services

import (
	"regexp"
	"strings"

	"github.com/veritasx01/audion-backend/internal/models"
)

// Default exclusion patterns biasing search results toward studio originals.
// These are heuristics; swap them via [NewRelevanceFilter] to tune.
var (
	// Low-value title variants: remixes, edits, karaoke versions, and
	// live recordings marked with a " - Live" suffix.
	DefaultTitleExclusions = []string{
		`\b(remix|edit|version|karaoke|instrumental|cover)\b`,
		`\s-\s*live\b`,
	}

	// Compilation and reissue albums that duplicate the studio original.
	DefaultAlbumExclusions = []string{
		`\b(greatest hits|best of|mix|remix|collection|playlist|live|remastered|remaster|soundtrack|highlights from|anniversary|deluxe)\b`,
	}
)

// RelevanceFilter excludes catalog results that are unlikely to be the studio
// original a listener searched for.
//
// Filtering is deterministic and side-effect-free: the same input always
// yields the same output, and filtering an already-filtered list is a no-op.
type RelevanceFilter struct {
	titleExclusion *regexp.Regexp
	albumExclusion *regexp.Regexp
}

// NewRelevanceFilter builds a filter from pattern lists. Each list entry is a
// regular expression; entries are OR-ed together and matched
// case-insensitively.
func NewRelevanceFilter(titlePatterns, albumPatterns []string) (*RelevanceFilter, error) {
	title, err := compileExclusions(titlePatterns)
	if err != nil {
		return nil, err
	}
	album, err := compileExclusions(albumPatterns)
	if err != nil {
		return nil, err
	}
	return &RelevanceFilter{titleExclusion: title, albumExclusion: album}, nil
}

// DefaultRelevanceFilter returns a filter with the default pattern lists.
func DefaultRelevanceFilter() *RelevanceFilter {
	filter, err := NewRelevanceFilter(DefaultTitleExclusions, DefaultAlbumExclusions)
	if err != nil {
		panic("default relevance patterns must compile: " + err.Error())
	}
	return filter
}

func compileExclusions(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(patterns, `|`) + `)`)
}

// Filter returns the songs relevant to the query.
//
// A song survives when the query matches its title, artist, or album name,
// its title matches no low-value-variant pattern, and its album name matches
// no compilation pattern.
func (f *RelevanceFilter) Filter(songs []models.Song, query string) []models.Song {
	queryMatch := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.TrimSpace(query)))

	relevant := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		matchesQuery := queryMatch.MatchString(song.Title) ||
			queryMatch.MatchString(song.Artist) ||
			queryMatch.MatchString(song.AlbumName)
		if !matchesQuery {
			continue
		}
		if f.titleExclusion != nil && f.titleExclusion.MatchString(song.Title) {
			continue
		}
		if f.albumExclusion != nil && f.albumExclusion.MatchString(song.AlbumName) {
			continue
		}
		relevant = append(relevant, song)
	}

	return relevant
}
