package mongoclient

import (
	"context"
	"crypto/tls"
	"runtime"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/openmint/goapi/base/log"
)

const (
	socketTimeout = 60 * time.Second
)

// Client wraps mongo.Client
type Client struct {
	DbName string
	*mongo.Client
}

// ConnectOptions carries the connection settings read from config
type ConnectOptions struct {
	Uri                string
	AuthDbName         string
	DbName             string
	Ssl                bool
	SetSafe            bool
	PoolSizeMultiplier float64
}

// MustConnect returns a connected client or panics
func MustConnect(opts ConnectOptions) *Client {
	cli, err := Connect(opts)
	if err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": opts.Uri, "err": err}).Panic("fail to dial mongo")
	}
	return cli
}

// Connect dials mongo, verifies the target database is reachable and
// returns the wrapped client
func Connect(opts ConnectOptions) (*Client, error) {
	bg := context.Background()

	connSetting, err := connstring.Parse(opts.Uri)
	if err != nil {
		log.Log().WithFields(log.Fields{"mongoURI": opts.Uri, "err": err}).Error("fail to parse connstring")
		return nil, err
	}

	clientOpts := options.Client()
	clientOpts.ApplyURI(opts.Uri)
	clientOpts.SetSocketTimeout(socketTimeout)

	// fall back to AuthDbName when the connstring has credentials but no
	// auth source
	if connSetting.Username != "" && connSetting.AuthSource == "" {
		clientOpts.SetAuth(options.Credential{
			AuthMechanism:           connSetting.AuthMechanism,
			AuthMechanismProperties: connSetting.AuthMechanismProperties,
			Username:                connSetting.Username,
			Password:                connSetting.Password,
			PasswordSet:             connSetting.PasswordSet,
			AuthSource:              opts.AuthDbName,
		})
	}

	// each host keeps its own pool, so split the budget across hosts
	poolSize := int(float64(runtime.NumCPU()) * opts.PoolSizeMultiplier)
	poolSize = (poolSize + len(connSetting.Hosts) - 1) / len(connSetting.Hosts)
	clientOpts.SetMinPoolSize(uint64(poolSize / 4))
	clientOpts.SetMaxPoolSize(uint64(poolSize))

	if opts.Ssl {
		clientOpts.SetTLSConfig(&tls.Config{})
	}

	if opts.SetSafe {
		// wait for a replica set majority before acking writes
		clientOpts.SetWriteConcern(writeconcern.New(writeconcern.WMajority()))
	}
	clientOpts.SetRetryWrites(true)

	client, err := mongo.NewClient(clientOpts)
	if err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": connSetting.Hosts,
			"dbName":     opts.DbName,
			"err":        err,
		}).Error("fail to create mongo client")
		return nil, err
	}

	if err := client.Connect(bg); err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": connSetting.Hosts,
			"dbName":     opts.DbName,
			"err":        err,
		}).Error("fail to connect mongo db")
		return nil, err
	}

	if _, err := client.Database(opts.DbName).ListCollectionNames(bg, bson.D{}); err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": connSetting.Hosts,
			"dbName":     opts.DbName,
			"err":        err,
		}).Error("fail to test mongo db")
		return nil, err
	}

	log.Log().WithFields(log.Fields{
		"mongoHosts": connSetting.Hosts,
		"db":         opts.DbName,
	}).Info("mongo connected")

	return &Client{
		Client: client,
		DbName: opts.DbName,
	}, nil
}
