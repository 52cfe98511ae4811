// Package repositories is the MongoDB persistence layer. Not-found and
// duplicate conditions come back as apperr kinds; driver failures are wrapped
// as internal errors.
package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
)

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// notFound maps mongo.ErrNoDocuments to a NotFound error for what.
func notFound(op, what string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Missing(op, what)
	}
	return apperr.Wrap(op, err)
}
