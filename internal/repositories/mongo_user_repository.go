package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// mongoUserRepository implements UserRepository using MongoDB
type mongoUserRepository struct {
	mongoCollection
}

// NewMongoUserRepository creates a new MongoDB-backed user repository
func NewMongoUserRepository(db *models.Database) UserRepository {
	return &mongoUserRepository{newMongoCollection(db.DB, models.UsersCollection)}
}

var userDefaultSort = []SortKey{{Field: "created_at"}}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	id, err := r.insert(ctx, user)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	found, err := r.findOne(ctx, bson.M{"_id": id}, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	found, err := r.findOne(ctx, bson.M{"email": email}, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) Find(ctx context.Context, q Query) ([]*models.User, int64, error) {
	var search bson.M
	if q.Search != "" {
		search = regexFilter(q.Search, "name", "email")
	}
	return findPage[models.User](ctx, r.mongoCollection, andFilter(search), q, userDefaultSort)
}

func (r *mongoUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.set(ctx, user.ID, bson.M{
		"name":            user.Name,
		"email":           user.Email,
		"password":        user.PasswordHash,
		"profile_picture": user.ProfilePicture,
	})
}

func (r *mongoUserRepository) SetAdmin(ctx context.Context, id primitive.ObjectID, admin bool) error {
	return r.set(ctx, id, bson.M{"is_admin": admin})
}
