package redisclient

import (
	"runtime"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/openmint/goapi/base/log"
)

const (
	dialTimeout  = 2 * time.Second
	readTimeout  = 1500 * time.Millisecond
	writeTimeout = 1500 * time.Millisecond
)

type ConnectOptions struct {
	Uri      string
	Password string

	// PoolMultiplier scales the pool size with the cpu count. Zero keeps the
	// default fixed-size pool.
	PoolMultiplier float64
}

// MustConnect connects to one redis uri
// NOTE This function panics if the connection fails.
func MustConnect(opts ConnectOptions) *redis.Pool {
	p, err := Connect(opts)
	if err != nil {
		log.Log().WithFields(log.Fields{"redisURI": opts.Uri, "err": err}).Panic("fail to dial Redis")
	}
	return p
}

// Connect connects to one redis uri and verifies the connection with a ping
func Connect(opts ConnectOptions) (*redis.Pool, error) {
	maxIdle := 200
	maxActive := 1024
	if opts.PoolMultiplier > 0 {
		cpu := float64(runtime.NumCPU())
		// allowing 25% idle connection
		maxIdle = int(cpu * opts.PoolMultiplier / 4)
		maxActive = int(cpu * opts.PoolMultiplier)
	}

	dialOpts := []redis.DialOption{
		redis.DialConnectTimeout(dialTimeout),
		redis.DialReadTimeout(readTimeout),
		redis.DialWriteTimeout(writeTimeout),
	}
	if opts.Password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(opts.Password))
	}

	p := &redis.Pool{
		MaxIdle:     maxIdle,
		MaxActive:   maxActive,
		Wait:        true,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", opts.Uri, dialOpts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			// No need to test if it's been recycled less than 1 sec.
			if time.Since(t) < time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	c, err := p.Dial()
	if err != nil {
		log.Log().WithFields(log.Fields{"redisURI": opts.Uri, "err": err}).Error("fail to dial Redis")
		return nil, err
	}
	defer c.Close()
	if _, err := c.Do("PING"); err != nil {
		log.Log().WithFields(log.Fields{"redisURI": opts.Uri, "err": err}).Error("fail to ping Redis")
		return nil, err
	}

	log.Log().WithField("redisURI", opts.Uri).Info("redis connected")

	return p, nil
}
