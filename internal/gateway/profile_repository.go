package gateway

import (
	"context"
	"fmt"
	"time"

	"inkframe/internal/models"
	"inkframe/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileDocument represents profile data in MongoDB
type ProfileDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	CreatedAt time.Time `bson:"createdAt"`
}

// InsertProfile stores a new profile. The unique username index (case
// folded) rejects duplicates that slipped past the pre-check.
func (m *MongoDB) InsertProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	doc := &ProfileDocument{
		ID:        profile.ID.String(),
		Username:  profile.Username,
		CreatedAt: profile.CreatedAt,
	}

	if _, err := m.Profiles.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewAppError(utils.ErrUsernameTaken, "Username already taken", err)
		}
		return nil, fmt.Errorf("failed to insert profile: %v", err)
	}

	return profile, nil
}

// GetProfile retrieves a profile by ID
func (m *MongoDB) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var doc ProfileDocument

	err := m.Profiles.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %v", err)
	}

	return convertProfileDocumentToModel(&doc)
}

// GetProfileByUsernameFold looks a profile up by username ignoring
// letter case. Returns NOT_FOUND when no profile matches.
func (m *MongoDB) GetProfileByUsernameFold(ctx context.Context, username string) (*models.Profile, error) {
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})

	var doc ProfileDocument
	err := m.Profiles.FindOne(ctx, bson.M{"username": username}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by username: %v", err)
	}

	return convertProfileDocumentToModel(&doc)
}

// DeleteProfile removes a profile row.
func (m *MongoDB) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if _, err := m.Profiles.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return fmt.Errorf("failed to delete profile: %v", err)
	}
	return nil
}

func convertProfileDocumentToModel(doc *ProfileDocument) (*models.Profile, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid profile ID: %v", err)
	}

	return &models.Profile{
		ID:        id,
		Username:  doc.Username,
		CreatedAt: doc.CreatedAt,
	}, nil
}
