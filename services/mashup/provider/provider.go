// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provider is the document-store layer of the mashup service. It
// loads CDT schemas, service descriptors, service associations and user
// accounts from MongoDB.
//
// Document identifiers are ObjectIDs in the store but plain hex strings
// in the data model; a custom string decoder bridges the two so that the
// rest of the pipeline never imports the driver.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	collCDT         = "cdtDescriptions"
	collOperations  = "serviceDescriptions"
	collPrimary     = "primaryServiceAssociations"
	collSupport     = "supportServiceAssociations"
	collConstraints = "supportServiceConstraints"
	collUsers       = "users"
	collMashups     = "userMashups"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// Config holds connection settings for the document store.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name.
	Database string

	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration

	// SearchRadiusKm bounds geographic proximity searches.
	SearchRadiusKm float64

	// Logger receives query diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for the given URI and
// database name.
func DefaultConfig(uri, database string) Config {
	return Config{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 10 * time.Second,
		SearchRadiusKm: 1500,
	}
}

// earthRadiusKm converts a kilometer radius into the radian distance the
// legacy 2d index expects.
const earthRadiusKm = 6371.0

// MongoStore implements the descriptor and account queries on a MongoDB
// database.
//
// Thread Safety: safe for concurrent use; the driver pools connections.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	radiusKm float64
	logger   *slog.Logger
}

// Connect opens the store and verifies the connection with a ping. The
// caller must call Close when done.
func Connect(ctx context.Context, cfg Config) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb URI is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("database name is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = 1500
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetRegistry(newRegistry())
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to document store: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	return &MongoStore{
		client:   client,
		db:       client.Database(cfg.Database),
		radiusKm: cfg.SearchRadiusKm,
		logger:   logger,
	}, nil
}

// Close disconnects from the store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// newRegistry returns the default bson registry extended with a string
// decoder that accepts ObjectIDs, so hex-string ID fields in the data
// model decode directly from stored ObjectIDs.
func newRegistry() *bsoncodec.Registry {
	registry := bson.NewRegistry()
	registry.RegisterTypeDecoder(reflect.TypeOf(""), objectIDStringCodec{})
	return registry
}

type objectIDStringCodec struct{}

func (objectIDStringCodec) DecodeValue(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Kind() != reflect.String {
		return bsoncodec.ValueDecoderError{
			Name:     "objectIDStringCodec.DecodeValue",
			Kinds:    []reflect.Kind{reflect.String},
			Received: val,
		}
	}

	switch vr.Type() {
	case bsontype.String:
		str, err := vr.ReadString()
		if err != nil {
			return err
		}
		val.SetString(str)
	case bsontype.ObjectID:
		oid, err := vr.ReadObjectID()
		if err != nil {
			return err
		}
		val.SetString(oid.Hex())
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
		val.SetString("")
	default:
		return fmt.Errorf("cannot decode %v into a string", vr.Type())
	}
	return nil
}

// idValue converts a hex-string identifier into the ObjectID form used
// in stored documents. Non-hex identifiers pass through unchanged, which
// keeps fixture data with plain string IDs queryable.
func idValue(hex string) any {
	if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
		return oid
	}
	return hex
}

// idValues converts a batch of hex-string identifiers for $in filters.
func idValues(hexes []string) []any {
	out := make([]any, 0, len(hexes))
	for _, h := range hexes {
		out = append(out, idValue(h))
	}
	return out
}

// findOne decodes a single document into out, mapping the driver's
// not-found sentinel to ErrNotFound.
func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
