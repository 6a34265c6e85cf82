package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SongRepository persists standalone [models.Song] records.
//
// Songs embedded in playlists are managed by [PlaylistRepository]; this
// collection backs the song library and detail pages.
type SongRepository struct {
	db *Database
}

// NewSongRepository creates a new [SongRepository] over the song collection.
func NewSongRepository(db *Database) *SongRepository {
	return &SongRepository{db: db}
}

// Query lists songs matching the filter, paged when PageIdx is set.
func (r *SongRepository) Query(ctx context.Context, filter models.SongFilter) ([]models.Song, error) {
	criteria := songCriteria(filter)

	opts := options.Find().SetSort(sortDoc(filter.SortBy, filter.SortDir))
	if filter.PageIdx != nil {
		opts.SetSkip(int64(*filter.PageIdx) * pageSize).SetLimit(pageSize)
	}

	cursor, err := r.db.collection(songCollection).Find(ctx, criteria, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer cursor.Close(ctx)

	songs := []models.Song{}
	if err := cursor.All(ctx, &songs); err != nil {
		return nil, fmt.Errorf("failed to decode songs: %w", err)
	}

	for i := range songs {
		stampSongCreatedAt(&songs[i])
	}
	return songs, nil
}

// Get retrieves a song by ID.
func (r *SongRepository) Get(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	err := r.db.collection(songCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&song)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song %s: %w", id, err)
	}

	stampSongCreatedAt(&song)
	return &song, nil
}

// Add inserts a new song, generating an ID when the record has none.
func (r *SongRepository) Add(ctx context.Context, song models.Song) (*models.Song, error) {
	if song.ID == "" {
		song.ID = shared.GenerateID()
	}
	if song.Genres == nil {
		song.Genres = []string{}
	}

	if _, err := r.db.collection(songCollection).InsertOne(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to add song: %w", err)
	}

	stampSongCreatedAt(&song)
	return &song, nil
}

// Update replaces the stored song's mutable fields.
func (r *SongRepository) Update(ctx context.Context, song models.Song) (*models.Song, error) {
	if song.ID == "" {
		return nil, fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	update := bson.M{"$set": bson.M{
		"title":          song.Title,
		"artist":         song.Artist,
		"albumName":      song.AlbumName,
		"duration":       song.Duration,
		"genres":         song.Genres,
		"thumbnail":      song.Thumbnail,
		"url":            song.URL,
		"youtubeVideoId": song.YouTubeVideoID,
	}}

	result, err := r.db.collection(songCollection).UpdateOne(ctx, bson.M{"_id": song.ID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update song %s: %w", song.ID, err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: song %s", shared.ErrNotFound, song.ID)
	}

	return r.Get(ctx, song.ID)
}

// Remove deletes a song by ID.
func (r *SongRepository) Remove(ctx context.Context, id string) error {
	result, err := r.db.collection(songCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to remove song %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}
	return nil
}

// songCriteria builds the find criteria for a song listing.
//
// Artist and free-text search are independent conditions and are ANDed
// together when both are set; the free-text search spans title, artist, and
// album name.
func songCriteria(filter models.SongFilter) bson.M {
	criteria := bson.M{}

	if filter.Artist != "" {
		criteria["artist"] = bson.M{"$regex": filter.Artist, "$options": "i"}
	}

	if filter.SearchString != "" {
		search := bson.M{"$regex": filter.SearchString, "$options": "i"}
		criteria["$or"] = bson.A{
			bson.M{"title": search},
			bson.M{"artist": search},
			bson.M{"albumName": search},
		}
	}

	return criteria
}

// sortDoc builds the sort document for a listing query. An empty sortBy means
// natural order.
func sortDoc(sortBy string, sortDir int) bson.D {
	if sortBy == "" {
		return bson.D{}
	}
	if sortDir != 1 && sortDir != -1 {
		sortDir = 1
	}
	return bson.D{{Key: sortBy, Value: sortDir}}
}

// stampSongCreatedAt derives CreatedAt from the ID when the ID carries an
// ObjectID timestamp. Catalog songs keep their provider IDs and get no stamp.
func stampSongCreatedAt(song *models.Song) {
	if oid, err := primitive.ObjectIDFromHex(song.ID); err == nil {
		song.CreatedAt = oid.Timestamp()
	}
}
