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
)

// UserRepository persists [models.User] accounts.
type UserRepository struct {
	db *Database
}

// NewUserRepository creates a new [UserRepository] over the user collection.
func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

// UserFilter captures query parameters for user listing.
type UserFilter struct {
	Name  string // matches username or full name
	Email string
}

// Query lists users matching the filter.
func (r *UserRepository) Query(ctx context.Context, filter UserFilter) ([]models.User, error) {
	criteria := bson.M{}
	if filter.Name != "" {
		name := bson.M{"$regex": filter.Name, "$options": "i"}
		criteria["$or"] = bson.A{
			bson.M{"username": name},
			bson.M{"fullName": name},
		}
	}
	if filter.Email != "" {
		criteria["email"] = filter.Email
	}

	cursor, err := r.db.collection(userCollection).Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// Get retrieves a user by hex ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = r.db.collection(userCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by lowercased username, for login.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.collection(userCollection).FindOne(ctx,
		bson.M{"username": strings.ToLower(username)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by lowercased email. A non-empty excludeID
// skips that user, for uniqueness checks during profile updates.
func (r *UserRepository) GetByEmail(ctx context.Context, email, excludeID string) (*models.User, error) {
	criteria := bson.M{"email": strings.ToLower(email)}
	if excludeID != "" {
		oid, err := objectIDFromHex(excludeID)
		if err != nil {
			return nil, err
		}
		criteria["_id"] = bson.M{"$ne": oid}
	}

	var user models.User
	err := r.db.collection(userCollection).FindOne(ctx, criteria).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user with email %s", shared.ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// Add inserts a new user with normalized username and email and an empty
// library.
func (r *UserRepository) Add(ctx context.Context, user models.User) (*models.User, error) {
	user.Normalize()
	if user.Library.Playlists == nil {
		user.Library.Playlists = []string{}
	}

	result, err := r.db.collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to add user: %w", err)
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return &user, nil
}

// Update writes the user's profile fields, skipping empties.
func (r *UserRepository) Update(ctx context.Context, user models.User) (*models.User, error) {
	if user.ID.IsZero() {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	user.Normalize()

	fields := bson.M{}
	if user.FullName != "" {
		fields["fullName"] = user.FullName
	}
	if user.Email != "" {
		fields["email"] = user.Email
	}
	if user.ProfileImg != "" {
		fields["profileImg"] = user.ProfileImg
	}
	if len(fields) == 0 {
		return r.Get(ctx, user.ID.Hex())
	}

	result, err := r.db.collection(userCollection).UpdateOne(ctx,
		bson.M{"_id": user.ID}, bson.M{"$set": fields})
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", user.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, user.ID.Hex())
	}

	return r.Get(ctx, user.ID.Hex())
}

// Remove deletes a user by hex ID.
func (r *UserRepository) Remove(ctx context.Context, id string) error {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.collection(userCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to remove user %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return nil
}

// AddPlaylistToLibrary saves a playlist ID into the user's library, once.
func (r *UserRepository) AddPlaylistToLibrary(ctx context.Context, userID, playlistID string) error {
	oid, err := objectIDFromHex(userID)
	if err != nil {
		return err
	}

	result, err := r.db.collection(userCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"library.playlists": playlistID}},
	)
	if err != nil {
		return fmt.Errorf("failed to add playlist %s to user %s library: %w", playlistID, userID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return nil
}

// RemovePlaylistFromLibrary removes a playlist ID from the user's library.
func (r *UserRepository) RemovePlaylistFromLibrary(ctx context.Context, userID, playlistID string) error {
	oid, err := objectIDFromHex(userID)
	if err != nil {
		return err
	}

	result, err := r.db.collection(userCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"library.playlists": playlistID}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove playlist %s from user %s library: %w", playlistID, userID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return nil
}
