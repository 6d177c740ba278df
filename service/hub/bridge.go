package hub

import (
	"encoding/json"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/goroutine"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
)

const (
	bridgeChannel     = "market.events"
	healthCheckPeriod = 30 * time.Second
	resubscribeDelay  = time.Second
)

// relayMessage is the cross instance wire format
type relayMessage struct {
	Scope   string `json:"scope"`
	Payload []byte `json:"payload"`
}

type redisBridge struct {
	pool *redis.Pool
}

// NewRedisBridge relays frames through redis pub/sub so every api instance
// delivers every event regardless of which instance produced it
func NewRedisBridge(pool *redis.Pool) Bridge {
	return &redisBridge{pool: pool}
}

func (b *redisBridge) Publish(c ctx.Ctx, scope domain.Scope, payload []byte) error {
	msg, err := json.Marshal(relayMessage{Scope: string(scope), Payload: payload})
	if err != nil {
		return err
	}

	conn := b.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PUBLISH", bridgeChannel, msg); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"scope": scope,
		}).Error("PUBLISH redis failed")
		return err
	}
	return nil
}

// Run subscribes to the relay channel and feeds received frames into deliver.
// The subscription is re-established after any connection error.
func (b *redisBridge) Run(c ctx.Ctx, deliver func(scope domain.Scope, payload []byte)) {
	goroutine.RecoverableGo(func() {
		for {
			select {
			case <-c.Done():
				return
			default:
			}

			if err := b.listen(c, deliver); err != nil {
				c.WithField("err", err).Warn("bridge subscription lost, reconnecting")
			}
			time.Sleep(resubscribeDelay)
		}
	})
}

func (b *redisBridge) listen(c ctx.Ctx, deliver func(scope domain.Scope, payload []byte)) error {
	conn := b.pool.Get()
	defer conn.Close()

	psc := redis.PubSubConn{Conn: conn}
	if err := psc.Subscribe(bridgeChannel); err != nil {
		return err
	}
	defer psc.Unsubscribe(bridgeChannel)

	done := make(chan error, 1)
	goroutine.RecoverableGo(func() {
		for {
			switch v := psc.Receive().(type) {
			case redis.Message:
				var msg relayMessage
				if err := json.Unmarshal(v.Data, &msg); err != nil {
					c.WithField("err", err).Warn("json.Unmarshal failed")
					continue
				}
				deliver(domain.Scope(msg.Scope), msg.Payload)
			case error:
				done <- v
				return
			}
		}
	})

	ticker := time.NewTicker(healthCheckPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := psc.Ping(""); err != nil {
				return err
			}
		case err := <-done:
			return err
		case <-c.Done():
			return nil
		}
	}
}
