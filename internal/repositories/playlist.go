package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PlaylistRepository persists [models.Playlist] records, including the songs
// embedded in each playlist document.
type PlaylistRepository struct {
	db *Database
}

// NewPlaylistRepository creates a new [PlaylistRepository] over the playlist
// collection.
func NewPlaylistRepository(db *Database) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Query lists playlists matching the filter.
func (r *PlaylistRepository) Query(ctx context.Context, filter models.PlaylistFilter) ([]models.Playlist, error) {
	criteria, err := playlistCriteria(filter)
	if err != nil {
		return nil, err
	}

	cursor, err := r.db.collection(playlistCollection).Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer cursor.Close(ctx)

	playlists := []models.Playlist{}
	if err := cursor.All(ctx, &playlists); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}

	for i := range playlists {
		playlists[i].StampCreatedAt()
	}
	return playlists, nil
}

// Get retrieves a playlist by its hex ID.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var playlist models.Playlist
	err = r.db.collection(playlistCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&playlist)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	playlist.StampCreatedAt()
	return &playlist, nil
}

// Add inserts a new playlist and returns it with the generated ID and derived
// creation timestamp.
func (r *PlaylistRepository) Add(ctx context.Context, playlist models.Playlist) (*models.Playlist, error) {
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}

	result, err := r.db.collection(playlistCollection).InsertOne(ctx, playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to add playlist: %w", err)
	}

	playlist.ID = result.InsertedID.(primitive.ObjectID)
	playlist.StampCreatedAt()
	return &playlist, nil
}

// Update replaces the stored playlist's mutable fields and returns the
// updated record.
func (r *PlaylistRepository) Update(ctx context.Context, playlist models.Playlist) (*models.Playlist, error) {
	if playlist.ID.IsZero() {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	update := bson.M{"$set": bson.M{
		"title":       playlist.Title,
		"description": playlist.Description,
		"thumbnail":   playlist.Thumbnail,
		"songs":       playlist.Songs,
	}}

	result, err := r.db.collection(playlistCollection).UpdateOne(ctx, bson.M{"_id": playlist.ID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist %s: %w", playlist.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlist.ID.Hex())
	}

	return r.Get(ctx, playlist.ID.Hex())
}

// Remove deletes a playlist by its hex ID.
func (r *PlaylistRepository) Remove(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.collection(playlistCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to remove playlist %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return nil
}

// AddSong appends a song to the playlist's embedded song list.
func (r *PlaylistRepository) AddSong(ctx context.Context, playlistID string, song models.Song) error {
	oid, err := objectIDFromHex(playlistID)
	if err != nil {
		return err
	}

	result, err := r.db.collection(playlistCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"songs": song}},
	)
	if err != nil {
		return fmt.Errorf("failed to add song %s to playlist %s: %w", song.ID, playlistID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	return nil
}

// RemoveSong removes a song from the playlist's embedded song list.
func (r *PlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID string) error {
	oid, err := objectIDFromHex(playlistID)
	if err != nil {
		return err
	}

	result, err := r.db.collection(playlistCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"songs": bson.M{"_id": songID}}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove song %s from playlist %s: %w", songID, playlistID, err)
	}
	if result.ModifiedCount == 0 {
		return fmt.Errorf("%w: song %s in playlist %s", shared.ErrNotFound, songID, playlistID)
	}
	return nil
}

// SetSongVideoData writes a song's enriched video fields inside the playlist
// document. All three fields are written in one update so a partially
// enriched song can never be observed.
func (r *PlaylistRepository) SetSongVideoData(ctx context.Context, playlistID, songID, url, videoID string, durationSec int) error {
	oid, err := objectIDFromHex(playlistID)
	if err != nil {
		return err
	}

	result, err := r.db.collection(playlistCollection).UpdateOne(ctx,
		bson.M{"_id": oid, "songs._id": songID},
		bson.M{"$set": bson.M{
			"songs.$.url":            url,
			"songs.$.youtubeVideoId": videoID,
			"songs.$.duration":       durationSec,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set video data for song %s in playlist %s: %w", songID, playlistID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: song %s in playlist %s", shared.ErrNotFound, songID, playlistID)
	}
	return nil
}

// AddMany upserts a batch of imported playlists keyed by external playlist ID.
//
// Playlists whose externalPlaylistId is already stored are returned unchanged
// from the store; the rest are inserted with unordered semantics so one bad
// record does not abort the batch. Calling AddMany twice with the same set is
// idempotent: the second call inserts nothing and returns the same logical
// set.
func (r *PlaylistRepository) AddMany(ctx context.Context, playlists []models.Playlist) ([]models.Playlist, error) {
	if len(playlists) == 0 {
		return []models.Playlist{}, nil
	}

	externalIDs := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if p.ExternalPlaylistID != "" {
			externalIDs = append(externalIDs, p.ExternalPlaylistID)
		}
	}

	existing, err := r.findByExternalIDs(ctx, externalIDs)
	if err != nil {
		return nil, err
	}

	present, fresh := partitionByExternalID(playlists, existing)

	if len(fresh) == 0 {
		return present, nil
	}

	docs := make([]interface{}, len(fresh))
	for i := range fresh {
		if fresh[i].Songs == nil {
			fresh[i].Songs = []models.Song{}
		}
		docs[i] = fresh[i]
	}

	opts := options.InsertMany().SetOrdered(false)
	result, err := r.db.collection(playlistCollection).InsertMany(ctx, docs, opts)
	if result != nil {
		for i, id := range result.InsertedIDs {
			if i < len(fresh) {
				fresh[i].ID = id.(primitive.ObjectID)
				fresh[i].StampCreatedAt()
			}
		}
	}
	if err != nil {
		// Unordered inserts report failures per document; the rest landed.
		failed := failedInsertIndexes(err)
		if failed == nil {
			return nil, fmt.Errorf("failed to insert playlists: %w", err)
		}
		fresh = dropFailedInserts(fresh, failed)
		r.db.logger.Warn("partial playlist insert",
			"attempted", len(docs), "inserted", len(fresh), "error", err)
	}

	return append(present, fresh...), nil
}

// failedInsertIndexes extracts the rejected document indexes from a partial
// unordered insert. Returns nil when err is not a per-document bulk failure.
func failedInsertIndexes(err error) map[int]bool {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return nil
	}
	failed := make(map[int]bool, len(bulkErr.WriteErrors))
	for _, writeErr := range bulkErr.WriteErrors {
		failed[writeErr.Index] = true
	}
	return failed
}

// dropFailedInserts removes records whose insert was rejected so they are not
// returned looking stored.
func dropFailedInserts(fresh []models.Playlist, failed map[int]bool) []models.Playlist {
	if len(failed) == 0 {
		return fresh
	}
	kept := make([]models.Playlist, 0, len(fresh))
	for i := range fresh {
		if !failed[i] {
			kept = append(kept, fresh[i])
		}
	}
	return kept
}

func (r *PlaylistRepository) findByExternalIDs(ctx context.Context, externalIDs []string) ([]models.Playlist, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.db.collection(playlistCollection).Find(ctx,
		bson.M{"externalPlaylistId": bson.M{"$in": externalIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to look up stored playlists: %w", err)
	}
	defer cursor.Close(ctx)

	var stored []models.Playlist
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored playlists: %w", err)
	}
	return stored, nil
}

// partitionByExternalID splits incoming playlists into those already stored
// (returned as the stored records, stamped) and those needing insertion.
func partitionByExternalID(incoming, stored []models.Playlist) (present, fresh []models.Playlist) {
	byExternalID := make(map[string]models.Playlist, len(stored))
	for _, p := range stored {
		byExternalID[p.ExternalPlaylistID] = p
	}

	present = []models.Playlist{}
	fresh = []models.Playlist{}
	for _, p := range incoming {
		if existing, ok := byExternalID[p.ExternalPlaylistID]; ok && p.ExternalPlaylistID != "" {
			existing.StampCreatedAt()
			present = append(present, existing)
			continue
		}
		fresh = append(fresh, p)
	}
	return present, fresh
}

// playlistCriteria builds the find criteria for a playlist listing.
func playlistCriteria(filter models.PlaylistFilter) (bson.M, error) {
	criteria := bson.M{}

	if filter.UserID != "" {
		criteria["createdBy._id"] = filter.UserID
	}

	if filter.IsLikedSongs != nil {
		criteria["isLikedSongs"] = *filter.IsLikedSongs
	}

	if len(filter.PlaylistIDs) > 0 {
		oids := make([]primitive.ObjectID, 0, len(filter.PlaylistIDs))
		for _, id := range filter.PlaylistIDs {
			oid, err := objectIDFromHex(id)
			if err != nil {
				return nil, err
			}
			oids = append(oids, oid)
		}
		criteria["_id"] = bson.M{"$in": oids}
	}

	if filter.SearchString != "" {
		search := bson.M{"$regex": filter.SearchString, "$options": "i"}
		criteria["$or"] = bson.A{
			bson.M{"title": search},
			bson.M{"description": search},
			bson.M{"songs.title": search},
			bson.M{"songs.artist": search},
			bson.M{"songs.albumName": search},
		}
	}

	if filter.Genre != "" {
		criteria["songs.genres"] = bson.M{"$in": bson.A{strings.ToLower(filter.Genre)}}
	}

	return criteria, nil
}
