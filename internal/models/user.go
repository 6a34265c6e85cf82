package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Library holds the playlist IDs a user has saved to their library.
type Library struct {
	Playlists []string `bson:"playlists" json:"playlists"`
}

// User represents an account holder.
//
// Password holds the bcrypt hash and is never serialized to JSON.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Username   string             `bson:"username" json:"username"`
	Password   string             `bson:"password" json:"-"`
	FullName   string             `bson:"fullName" json:"fullName"`
	Email      string             `bson:"email" json:"email"`
	ProfileImg string             `bson:"profileImg,omitempty" json:"profileImg,omitempty"`
	IsAdmin    bool               `bson:"isAdmin,omitempty" json:"isAdmin,omitempty"`
	Library    Library            `bson:"library" json:"library"`
}

// Normalize lowercases username and email for case-insensitive lookups.
func (u *User) Normalize() {
	u.Username = strings.ToLower(u.Username)
	u.Email = strings.ToLower(u.Email)
}

// ToMiniUser returns the denormalized projection embedded in playlists.
func (u *User) ToMiniUser() MiniUser {
	return MiniUser{
		ID:       u.ID.Hex(),
		FullName: u.FullName,
		ImgURL:   u.ProfileImg,
	}
}
