package repository

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	hcdomain "github.com/openmint/goapi/domain/healthcheck"
)

type impl struct {
	mgoClient *mongoclient.Client
	redisPool *redis.Pool
}

// New creates the repository layer of healthcheck. The redis pool is optional
// for deployments without the event bridge.
func New(mgoClient *mongoclient.Client, redisPool *redis.Pool) hcdomain.HealthCheckRepo {
	return &impl{
		mgoClient: mgoClient,
		redisPool: redisPool,
	}
}

func (im *impl) PingDB(context ctx.Ctx) error {
	ctx, cancel := ctx.WithTimeout(context, 2*time.Second)
	defer cancel()
	if err := im.mgoClient.Ping(ctx, readpref.Primary()); err != nil {
		context.WithField("err", err).Error("ping mongo error")
		return err
	}

	if im.redisPool != nil {
		conn := im.redisPool.Get()
		defer conn.Close()
		if _, err := conn.Do("PING"); err != nil {
			context.WithField("err", err).Error("ping redis error")
			return err
		}
	}
	return nil
}
