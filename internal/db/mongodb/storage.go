package mongodb

import (
	"context"
	"time"
)

// Storage bundles the gateway and both data access objects.
type Storage struct {
	*UserDB
	*TodoDB
	gateway *Gateway
}

// New creates the MongoDB storage. The connection is opened lazily.
func New(uri, dbName string, timeout time.Duration, optionsProto ...GatewayOption) *Storage {
	gateway := NewGateway(uri, dbName, timeout, optionsProto...)

	return &Storage{
		UserDB:  NewUserDB(gateway),
		TodoDB:  NewTodoDB(gateway),
		gateway: gateway,
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}

func (s *Storage) Close() error {
	return s.gateway.Close(context.Background())
}
