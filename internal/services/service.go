package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/repositories"
)

// Invalidator drops cached query results for the named collections
type Invalidator interface {
	Invalidate(ctx context.Context, collections ...string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...string) {}

// base carries the collaborators every mutating service shares
type base struct {
	store       *repositories.Store
	uploader    media.Uploader
	invalidator Invalidator
}

func newBase(store *repositories.Store, uploader media.Uploader, invalidator Invalidator) base {
	if invalidator == nil {
		invalidator = nopInvalidator{}
	}
	return base{store: store, uploader: uploader, invalidator: invalidator}
}

// upload stores a local file and returns its URL. An empty path is a no-op.
func (b *base) upload(ctx context.Context, path, folder string) (string, error) {
	if path == "" {
		return "", nil
	}
	if b.uploader == nil {
		return "", uploadFailed(errors.New("no media uploader configured"))
	}
	url, err := b.uploader.Upload(ctx, path, folder)
	if err != nil {
		slog.Error("Media upload failed", "folder", folder, "error", err)
		return "", uploadFailed(err)
	}
	return url, nil
}

// transact runs fn in a store transaction. Steps registered on the undo log
// are replayed in reverse when fn fails, which covers stores without
// multi-document transactions.
func (b *base) transact(ctx context.Context, fn func(ctx context.Context, undo *undoLog) error) error {
	var undo undoLog
	err := b.store.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, &undo)
	})
	if err != nil {
		undo.run(context.WithoutCancel(ctx))
	}
	return err
}

func (b *base) invalidate(ctx context.Context, collections ...string) {
	b.invalidator.Invalidate(ctx, collections...)
}

// undoLog records compensating writes for a multi-step mutation
type undoLog struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (u *undoLog) push(name string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

func (u *undoLog) run(ctx context.Context) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			slog.Error("Failed to undo partial write", "step", step.name, "error", err)
		}
	}
}

// ignoreMissing drops ErrNotFound, for detaching from entities that are
// already gone
func ignoreMissing(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	return err
}

func requireFound[T any](doc *T, err error, entity string) (*T, error) {
	if err != nil {
		return nil, storeError(err, entity)
	}
	if doc == nil {
		return nil, notFound("%s not found", entity)
	}
	return doc, nil
}

// cleanTags trims tags and drops empty and repeated ones
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func hasDuplicateIDs(ids []primitive.ObjectID) bool {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

// allCollections lists every cached collection
var allCollections = []string{
	models.ArtistsCollection,
	models.AlbumsCollection,
	models.SongsCollection,
	models.PlaylistsCollection,
}
