package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peerfund-funding-orchestrator/internal/domain/movement"
)

const (
	// MovementCollectionName is the name of the movement ledger collection
	MovementCollectionName = "movements"
)

// MovementRepository implements the movement.Recorder interface for MongoDB
type MovementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewMovementRepository creates a new MongoDB movement repository
func NewMovementRepository(logger *slog.Logger, db *mongo.Database) movement.Recorder {
	return &MovementRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores a movement entry after checking for duplicates by reference.
// Returns ErrDuplicateMovement when the reference was already recorded.
func (r *MovementRepository) Record(ctx context.Context, m *movement.Movement) error {
	collection := r.db.Collection(MovementCollectionName)

	if m.Reference != "" {
		existing, err := r.GetByReference(ctx, m.Reference)
		if err != nil && !errors.Is(err, movement.ErrMovementNotFound{}) {
			r.logger.Error("Failed to check for existing movement",
				"reference", m.Reference,
				"error", err)
			return fmt.Errorf("failed to check for existing movement: %w", err)
		}
		if existing != nil {
			return movement.ErrDuplicateMovement{Reference: m.Reference}
		}
	}

	_, err := collection.InsertOne(ctx, m)
	if err != nil {
		r.logger.Error("Failed to record movement",
			"movement_id", m.MovementID.String(),
			"contract_id", m.ContractID.String(),
			"error", err)
		return fmt.Errorf("failed to record movement: %w", err)
	}

	return nil
}

// GetByReference retrieves a movement by its idempotency reference.
// Returns ErrMovementNotFound when no movement carries the reference.
func (r *MovementRepository) GetByReference(ctx context.Context, reference string) (*movement.Movement, error) {
	if reference == "" {
		return nil, errors.New("reference cannot be empty")
	}

	collection := r.db.Collection(MovementCollectionName)

	filter := bson.M{"reference": reference}
	var m movement.Movement
	err := collection.FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, movement.ErrMovementNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get movement by reference",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get movement by reference: %w", err)
	}

	return &m, nil
}

// GetByContract retrieves paginated movements for a contract, newest first
func (r *MovementRepository) GetByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]*movement.Movement, error) {
	collection := r.db.Collection(MovementCollectionName)

	filter := bson.M{"contract_id": contractID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get movements",
			"contract_id", contractID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movements []*movement.Movement
	if err := cursor.All(ctx, &movements); err != nil {
		r.logger.Error("Failed to decode movements",
			"contract_id", contractID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode movements: %w", err)
	}

	return movements, nil
}

// CountByContract counts the movements recorded for a contract
func (r *MovementRepository) CountByContract(ctx context.Context, contractID uuid.UUID) (int64, error) {
	collection := r.db.Collection(MovementCollectionName)

	filter := bson.M{"contract_id": contractID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count movements",
			"contract_id", contractID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count movements: %w", err)
	}

	return count, nil
}
