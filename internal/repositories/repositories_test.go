package repositories

import (
	"errors"
	"testing"

	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestObjectIDFromHex(t *testing.T) {
	t.Run("valid hex round-trips", func(t *testing.T) {
		want := primitive.NewObjectID()
		got, err := objectIDFromHex(want.Hex())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != want {
			t.Errorf("expected %s, got %s", want.Hex(), got.Hex())
		}
	})

	t.Run("invalid hex maps to ErrInvalidArgument", func(t *testing.T) {
		_, err := objectIDFromHex("not-an-object-id")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSongCriteria(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		criteria := songCriteria(models.SongFilter{})
		if len(criteria) != 0 {
			t.Errorf("expected empty criteria, got %v", criteria)
		}
	})

	t.Run("artist and search are ANDed", func(t *testing.T) {
		criteria := songCriteria(models.SongFilter{Artist: "beatles", SearchString: "yesterday"})

		if _, ok := criteria["artist"]; !ok {
			t.Error("expected artist condition")
		}
		or, ok := criteria["$or"].(bson.A)
		if !ok {
			t.Fatal("expected $or condition for free text search")
		}
		if len(or) != 3 {
			t.Errorf("expected search across title, artist, albumName, got %d branches", len(or))
		}
	})
}

func TestSortDoc(t *testing.T) {
	t.Run("empty sortBy means natural order", func(t *testing.T) {
		if doc := sortDoc("", -1); len(doc) != 0 {
			t.Errorf("expected empty sort doc, got %v", doc)
		}
	})

	t.Run("invalid direction defaults to ascending", func(t *testing.T) {
		doc := sortDoc("title", 0)
		if len(doc) != 1 || doc[0].Key != "title" || doc[0].Value != 1 {
			t.Errorf("expected ascending title sort, got %v", doc)
		}
	})

	t.Run("descending is preserved", func(t *testing.T) {
		doc := sortDoc("addedAt", -1)
		if doc[0].Value != -1 {
			t.Errorf("expected descending sort, got %v", doc)
		}
	})
}

func TestPlaylistCriteria(t *testing.T) {
	t.Run("user filter targets the embedded creator", func(t *testing.T) {
		criteria, err := playlistCriteria(models.PlaylistFilter{UserID: "u1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if criteria["createdBy._id"] != "u1" {
			t.Errorf("expected createdBy._id condition, got %v", criteria)
		}
	})

	t.Run("playlist IDs become an $in over ObjectIDs", func(t *testing.T) {
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()
		criteria, err := playlistCriteria(models.PlaylistFilter{
			PlaylistIDs: []string{id1.Hex(), id2.Hex()},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		in, ok := criteria["_id"].(bson.M)
		if !ok {
			t.Fatalf("expected _id condition, got %v", criteria)
		}
		oids := in["$in"].([]primitive.ObjectID)
		if len(oids) != 2 || oids[0] != id1 || oids[1] != id2 {
			t.Errorf("expected both ObjectIDs, got %v", oids)
		}
	})

	t.Run("invalid playlist ID is rejected", func(t *testing.T) {
		_, err := playlistCriteria(models.PlaylistFilter{PlaylistIDs: []string{"garbage"}})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("search spans playlist and embedded song fields", func(t *testing.T) {
		criteria, err := playlistCriteria(models.PlaylistFilter{SearchString: "rock"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		or := criteria["$or"].(bson.A)
		if len(or) != 5 {
			t.Errorf("expected 5 search branches, got %d", len(or))
		}
	})

	t.Run("genre is lowercased", func(t *testing.T) {
		criteria, err := playlistCriteria(models.PlaylistFilter{Genre: "Rock"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		in := criteria["songs.genres"].(bson.M)["$in"].(bson.A)
		if len(in) != 1 || in[0] != "rock" {
			t.Errorf("expected lowercased genre, got %v", in)
		}
	})

	t.Run("liked songs flag filters both ways", func(t *testing.T) {
		liked := false
		criteria, err := playlistCriteria(models.PlaylistFilter{IsLikedSongs: &liked})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if criteria["isLikedSongs"] != false {
			t.Errorf("expected explicit false condition, got %v", criteria)
		}
	})
}

func TestPartitionByExternalID(t *testing.T) {
	storedID := primitive.NewObjectID()
	stored := []models.Playlist{
		{ID: storedID, ExternalPlaylistID: "ext_1", Title: "Stored Title"},
	}
	incoming := []models.Playlist{
		{ExternalPlaylistID: "ext_1", Title: "Fresh Title"},
		{ExternalPlaylistID: "ext_2", Title: "Brand New"},
	}

	present, fresh := partitionByExternalID(incoming, stored)

	if len(present) != 1 {
		t.Fatalf("expected 1 already-present playlist, got %d", len(present))
	}
	// The stored record wins over the incoming copy.
	if present[0].Title != "Stored Title" || present[0].ID != storedID {
		t.Errorf("expected stored record returned unchanged, got %+v", present[0])
	}
	if present[0].CreatedAt.IsZero() {
		t.Error("expected createdAt stamped from the stored ObjectID")
	}

	if len(fresh) != 1 || fresh[0].ExternalPlaylistID != "ext_2" {
		t.Errorf("expected only ext_2 to need insertion, got %v", fresh)
	}

	t.Run("playlists without external IDs always insert", func(t *testing.T) {
		_, fresh := partitionByExternalID([]models.Playlist{{Title: "Local"}}, nil)
		if len(fresh) != 1 {
			t.Errorf("expected local playlist to be fresh, got %v", fresh)
		}
	})

	t.Run("second pass inserts nothing", func(t *testing.T) {
		// Simulate the state after the first AddMany call.
		allStored := []models.Playlist{
			{ID: storedID, ExternalPlaylistID: "ext_1"},
			{ID: primitive.NewObjectID(), ExternalPlaylistID: "ext_2"},
		}
		present, fresh := partitionByExternalID(incoming, allStored)
		if len(fresh) != 0 {
			t.Errorf("expected no fresh playlists on second pass, got %v", fresh)
		}
		if len(present) != 2 {
			t.Errorf("expected the full stored set, got %d", len(present))
		}
	})
}

func TestFailedInsertIndexes(t *testing.T) {
	t.Run("bulk failure reports rejected indexes", func(t *testing.T) {
		err := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "duplicate key"}},
				{WriteError: mongo.WriteError{Index: 3, Code: 11000, Message: "duplicate key"}},
			},
		}

		failed := failedInsertIndexes(err)
		if len(failed) != 2 || !failed[1] || !failed[3] {
			t.Errorf("expected indexes 1 and 3 flagged, got %v", failed)
		}
	})

	t.Run("other errors are not per-document", func(t *testing.T) {
		if failed := failedInsertIndexes(errors.New("connection reset")); failed != nil {
			t.Errorf("expected nil for non-bulk error, got %v", failed)
		}
	})
}

func TestDropFailedInserts(t *testing.T) {
	fresh := []models.Playlist{
		{Title: "landed"},
		{Title: "rejected"},
		{Title: "also landed"},
	}

	t.Run("rejected records are not returned as stored", func(t *testing.T) {
		kept := dropFailedInserts(fresh, map[int]bool{1: true})
		if len(kept) != 2 {
			t.Fatalf("expected 2 kept playlists, got %d", len(kept))
		}
		if kept[0].Title != "landed" || kept[1].Title != "also landed" {
			t.Errorf("expected rejected record dropped, got %v", kept)
		}
	})

	t.Run("no failures keeps the whole batch", func(t *testing.T) {
		kept := dropFailedInserts(fresh, nil)
		if len(kept) != len(fresh) {
			t.Errorf("expected all %d playlists kept, got %d", len(fresh), len(kept))
		}
	})
}
