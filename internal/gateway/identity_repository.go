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
)

// IdentityDocument represents an authentication principal in MongoDB
type IdentityDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (m *MongoDB) InsertIdentity(ctx context.Context, identity *models.Identity) (*models.Identity, error) {
	doc := &IdentityDocument{
		ID:           identity.ID.String(),
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		CreatedAt:    identity.CreatedAt,
	}

	if _, err := m.Identities.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewAppError(utils.ErrEmailRegistered, "Email already registered", err)
		}
		return nil, fmt.Errorf("failed to insert identity: %v", err)
	}

	return identity, nil
}

func (m *MongoDB) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var doc IdentityDocument

	err := m.Identities.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Identity")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity by email: %v", err)
	}

	return convertIdentityDocumentToModel(&doc)
}

func (m *MongoDB) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var doc IdentityDocument

	err := m.Identities.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("Identity")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %v", err)
	}

	return convertIdentityDocumentToModel(&doc)
}

func convertIdentityDocumentToModel(doc *IdentityDocument) (*models.Identity, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid identity ID: %v", err)
	}

	return &models.Identity{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}
