package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Song represents a playable track.
//
// ID is the Spotify track ID for catalog songs or a generated UUID for songs
// created locally. Duration is integer seconds; it is nil (along with URL and
// YouTubeVideoID) until the song has been enriched with video data.
type Song struct {
	ID             string    `bson:"_id" json:"_id"`
	Title          string    `bson:"title" json:"title"`
	Artist         string    `bson:"artist" json:"artist"`
	AlbumName      string    `bson:"albumName" json:"albumName"`
	Duration       *int      `bson:"duration" json:"duration"`
	Genres         []string  `bson:"genres" json:"genres"`
	Thumbnail      string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	ReleasedAt     time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	AddedAt        time.Time `bson:"addedAt,omitempty" json:"addedAt,omitempty"`
	URL            *string   `bson:"url" json:"url"`
	YouTubeVideoID *string   `bson:"youtubeVideoId" json:"youtubeVideoId"`
	CreatedAt      time.Time `bson:"-" json:"createdAt,omitempty"`
}

// Enriched reports whether the song has a playable video URL and a duration.
//
// Zero is a legitimate duration, so presence is tracked with pointers rather
// than sentinel values.
func (s *Song) Enriched() bool {
	return s.URL != nil && s.Duration != nil
}

// SetVideoData sets all three enriched fields together.
func (s *Song) SetVideoData(url, videoID string, durationSec int) {
	s.URL = &url
	s.YouTubeVideoID = &videoID
	s.Duration = &durationSec
}

// MiniUser is the denormalized creator stamp embedded in playlists.
type MiniUser struct {
	ID       string `bson:"_id" json:"_id"`
	FullName string `bson:"fullName" json:"fullName"`
	ImgURL   string `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
}

// Playlist represents an ordered collection of songs.
//
// CreatedAt is derived from the ObjectID's embedded timestamp and never stored
// as a separate field.
type Playlist struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ExternalPlaylistID string             `bson:"externalPlaylistId,omitempty" json:"externalPlaylistId,omitempty"`
	Title              string             `bson:"title" json:"title"`
	Description        string             `bson:"description" json:"description"`
	Thumbnail          string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	CreatedBy          MiniUser           `bson:"createdBy" json:"createdBy"`
	Songs              []Song             `bson:"songs" json:"songs"`
	IsLikedSongs       bool               `bson:"isLikedSongs,omitempty" json:"isLikedSongs,omitempty"`
	CreatedAt          time.Time          `bson:"-" json:"createdAt,omitempty"`
}

// StampCreatedAt populates CreatedAt from the ObjectID's embedded timestamp.
func (p *Playlist) StampCreatedAt() {
	if !p.ID.IsZero() {
		p.CreatedAt = p.ID.Timestamp()
	}
}

// FindSong returns the index of the song with the given ID in the playlist's
// song list, or -1 if absent.
func (p *Playlist) FindSong(songID string) int {
	for i := range p.Songs {
		if p.Songs[i].ID == songID {
			return i
		}
	}
	return -1
}

// SongFilter captures query parameters for song listing.
type SongFilter struct {
	SearchString string // free text across title, artist, albumName
	Artist       string
	PageIdx      *int
	SortBy       string
	SortDir      int // 1 ascending, -1 descending
}

// PlaylistFilter captures query parameters for playlist listing.
type PlaylistFilter struct {
	UserID       string
	IsLikedSongs *bool
	PlaylistIDs  []string
	SearchString string // free text across playlist and embedded song fields
	Genre        string
}
