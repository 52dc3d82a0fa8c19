// Package mongodb is the MongoDB backend of the todo service: a Gateway that
// owns the single shared client connection, and the user and todo data
// access objects built on top of it.
package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoapi/internal/logger"
	"github.com/patric-chuzhbe/todoapi/internal/models"
)

// Connector opens and verifies a client connection.
type Connector func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

// Gateway hands out collection handles backed by one client. The client is
// connected on first use; a failed attempt is not remembered, so the next
// call connects from scratch.
type Gateway struct {
	mu      sync.Mutex
	client  *mongo.Client
	uri     string
	dbName  string
	timeout time.Duration
	connect Connector
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithConnector replaces the function used to establish the connection.
func WithConnector(connect Connector) GatewayOption {
	return func(g *Gateway) {
		g.connect = connect
	}
}

// NewGateway creates a Gateway for the given database. No connection is made here.
func NewGateway(uri, dbName string, timeout time.Duration, optionsProto ...GatewayOption) *Gateway {
	gateway := &Gateway{
		uri:     uri,
		dbName:  dbName,
		timeout: timeout,
		connect: connect,
	}
	for _, protoOption := range optionsProto {
		protoOption(gateway)
	}

	return gateway
}

// Collection returns a handle to the named collection, connecting first if needed.
func (g *Gateway) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}

	return client.Database(g.dbName).Collection(name), nil
}

// Ping checks that the server answers.
func (g *Gateway) Ping(ctx context.Context) error {
	client, err := g.acquire(ctx)
	if err != nil {
		return err
	}

	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client if one was established.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		return nil
	}
	err := g.client.Disconnect(ctx)
	g.client = nil

	return err
}

func (g *Gateway) acquire(ctx context.Context) (*mongo.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	client, err := g.connect(ctx, g.uri, g.timeout)
	if err != nil {
		logger.Log.Errorln("Could not connect to the database", zap.Error(err))
		return nil, fmt.Errorf(
			"in internal/db/mongodb/gateway.go/acquire(): error while `g.connect()` calling: %w: %w",
			models.ErrConnection,
			err,
		)
	}
	logger.Log.Debugln("Database connected successfully to server")
	g.client = client

	return client, nil
}

func connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	if timeout > 0 {
		clientOptions.SetServerSelectionTimeout(timeout)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}
