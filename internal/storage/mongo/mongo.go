// Package mongo is the document storage backend, the store the hosted
// deployment runs against.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
)

type userDoc struct {
	ID           string `bson:"_id"`
	FullName     string `bson:"fullName"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"passwordHash"`
	ProfilePic   string `bson:"profilePic"`
	BalanceCents int64  `bson:"balanceCents"`
	CreatedAt    int64  `bson:"createdAt"`
}

type transactionDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	AmountCents int64     `bson:"amountCents"`
	Type        string    `bson:"type"`
	Category    string    `bson:"category"`
	Description string    `bson:"description"`
	Date        time.Time `bson:"date"`
	CreatedAt   int64     `bson:"createdAt"`
}

// Repository implements storage.Repository over two MongoDB collections.
type Repository struct {
	client       *mongo.Client
	users        *mongo.Collection
	transactions *mongo.Collection
}

func New(ctx context.Context, uri, dbName string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	r := &Repository{
		client:       client,
		users:        db.Collection(usersCollection),
		transactions: db.Collection(transactionsCollection),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	_, err = r.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create transaction index: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	doc := userDoc{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: passwordHash,
		ProfilePic:   u.ProfilePic,
		BalanceCents: u.BalanceCents,
		CreatedAt:    time.Now().Unix(),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.User{}, storage.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return core.User{}, "", storage.ErrNotFound
		}
		return core.User{}, "", fmt.Errorf("find user by email: %w", err)
	}
	return doc.toUser(), doc.PasswordHash, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (core.User, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return core.User{}, storage.ErrNotFound
		}
		return core.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return doc.toUser(), nil
}

func (r *Repository) UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (core.User, error) {
	set := bson.M{}
	if patch.FullName != nil {
		set["fullName"] = *patch.FullName
	}
	if patch.ProfilePic != nil {
		set["profilePic"] = *patch.ProfilePic
	}
	if len(set) > 0 {
		res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			return core.User{}, fmt.Errorf("update user: %w", err)
		}
		if res.MatchedCount == 0 {
			return core.User{}, storage.ErrNotFound
		}
	}
	return r.UserByID(ctx, id)
}

func (r *Repository) AdjustBalance(ctx context.Context, id string, deltaCents int64) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"balanceCents": deltaCents}})
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	doc := toDoc(t)
	doc.CreatedAt = time.Now().Unix()
	if _, err := r.transactions.InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, page int, filter storage.TransactionFilter) ([]core.Transaction, int, error) {
	query := filterQuery(userID, filter)

	total, err := r.transactions.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	totalPages := storage.TotalPages(int(total))

	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * storage.PageSize)).
		SetLimit(int64(storage.PageSize))
	out, err := r.findTransactions(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, totalPages, nil
}

func (r *Repository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.findTransactions(ctx, bson.M{"userId": userID}, opts)
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, patch storage.TransactionPatch) (core.Transaction, error) {
	set := bson.M{}
	if patch.AmountCents != nil {
		set["amountCents"] = *patch.AmountCents
	}
	if patch.Type != nil {
		set["type"] = string(*patch.Type)
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}

	filter := bson.M{"_id": id, "userId": userID}
	if len(set) > 0 {
		res, err := r.transactions.UpdateOne(ctx, filter, bson.M{"$set": set})
		if err != nil {
			return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
		}
		if res.MatchedCount == 0 {
			return core.Transaction{}, storage.ErrNotFound
		}
	}

	var doc transactionDoc
	if err := r.transactions.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Transaction{}, storage.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}
	return doc.toTransaction(), nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	filter := bson.M{"_id": id, "userId": userID}
	var doc transactionDoc
	if err := r.transactions.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Transaction{}, storage.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	return doc.toTransaction(), nil
}

func (r *Repository) UserSummary(ctx context.Context, userID string) (storage.Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$amountCents"},
		}}},
	}
	cursor, err := r.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return storage.Summary{}, fmt.Errorf("aggregate summary: %w", err)
	}
	defer cursor.Close(ctx)

	var sum storage.Summary
	for cursor.Next(ctx) {
		var row struct {
			Type  string `bson:"_id"`
			Total int64  `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return storage.Summary{}, fmt.Errorf("decode summary row: %w", err)
		}
		switch core.TransactionType(row.Type) {
		case core.Income:
			sum.TotalIncomeCents = row.Total
		case core.Expense:
			sum.TotalExpenseCents = row.Total
		}
	}
	return sum, cursor.Err()
}

func (r *Repository) findTransactions(ctx context.Context, query bson.M, opts *options.FindOptions) ([]core.Transaction, error) {
	cursor, err := r.transactions.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []core.Transaction{}
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		out = append(out, doc.toTransaction())
	}
	return out, cursor.Err()
}

func filterQuery(userID string, filter storage.TransactionFilter) bson.M {
	query := bson.M{"userId": userID}
	switch filter {
	case storage.FilterIncome:
		query["type"] = string(core.Income)
	case storage.FilterExpense:
		query["type"] = string(core.Expense)
	}
	return query
}

func toDoc(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID:          t.ID,
		UserID:      t.UserID,
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.UTC(),
	}
}

func (d transactionDoc) toTransaction() core.Transaction {
	return core.Transaction{
		ID:          d.ID,
		UserID:      d.UserID,
		Amount:      core.Money{Cents: d.AmountCents},
		Type:        core.TransactionType(d.Type),
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
	}
}

func (d userDoc) toUser() core.User {
	return core.User{
		ID:           d.ID,
		FullName:     d.FullName,
		Email:        d.Email,
		ProfilePic:   d.ProfilePic,
		BalanceCents: d.BalanceCents,
	}
}

var _ storage.Repository = (*Repository)(nil)
