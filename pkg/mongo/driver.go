package mongo

import (
	"context"
	"crypto/tls"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// Conn is a live connection to the database. The manager owns the only
// reference that may be disconnected.
type Conn interface {
	// Ping issues a trivial round-trip command against the server.
	Ping(ctx context.Context) error
	// Disconnect closes the connection and its pool.
	Disconnect(ctx context.Context) error
	// Client exposes the underlying driver client for database operations.
	// Nil for non-driver connections such as test doubles.
	Client() *mongo.Client
}

// Driver opens connections. The manager works against this minimal surface
// so the underlying driver stays an opaque, replaceable dependency.
type Driver interface {
	Connect(ctx context.Context, uri string, pool PoolConfig) (Conn, error)
}

// NewDriver returns the production Driver backed by the official mongo
// driver. appName is reported to the server for connection attribution.
func NewDriver(appName string) Driver {
	return &mongoDriver{appName: appName}
}

type mongoDriver struct {
	appName string
}

func (d *mongoDriver) Connect(ctx context.Context, uri string, pool PoolConfig) (Conn, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(pool.ConnectTimeout).
		SetServerSelectionTimeout(pool.ServerSelectionTimeout).
		SetMaxPoolSize(pool.MaxPoolSize).
		SetMinPoolSize(pool.MinPoolSize).
		SetMaxConnIdleTime(pool.MaxConnIdleTime).
		SetRetryWrites(pool.RetryWrites).
		SetRetryReads(true).
		SetReadPreference(parseReadPreference(pool.ReadPreference))
	if pool.SocketTimeout > 0 {
		opts = opts.SetTimeout(pool.SocketTimeout)
	}
	if d.appName != "" {
		opts = opts.SetAppName(d.appName)
	}
	if pool.TLSEnabled {
		opts = opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if pool.WriteConcern == "majority" {
		opts = opts.SetWriteConcern(writeconcern.Majority())
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}

	// Connect does not dial eagerly; verify the server actually answers
	// before handing the connection out.
	pingCtx, cancel := context.WithTimeout(ctx, pool.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	return &mongoConn{client: client}, nil
}

func parseReadPreference(name string) *readpref.ReadPref {
	switch name {
	case "primaryPreferred":
		return readpref.PrimaryPreferred()
	case "secondary":
		return readpref.Secondary()
	case "secondaryPreferred":
		return readpref.SecondaryPreferred()
	case "nearest":
		return readpref.Nearest()
	default:
		return readpref.Primary()
	}
}

type mongoConn struct {
	client *mongo.Client
}

func (c *mongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *mongoConn) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *mongoConn) Client() *mongo.Client {
	return c.client
}
