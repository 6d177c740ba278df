package alert

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
)

// Service notifies operators about anomalies that need human attention.
// Delivery is best effort and must never block the caller's flow.
type Service interface {
	Notify(c ctx.Ctx, title, description string, fields map[string]string)
}

type DiscordCfg struct {
	BotKey    string
	ChannelId string
}

type discordImpl struct {
	channelId string
	session   *discordgo.Session
}

// NewDiscord creates an alert service backed by a discord channel
func NewDiscord(cfg *DiscordCfg) (Service, error) {
	session, err := discordgo.New(fmt.Sprintf("Bot %s", cfg.BotKey))
	if err != nil {
		return nil, err
	}
	return &discordImpl{channelId: cfg.ChannelId, session: session}, nil
}

func (im *discordImpl) Notify(c ctx.Ctx, title, description string, fields map[string]string) {
	msg := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
	}
	for name, value := range fields {
		msg.Fields = append(msg.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
	}

	if _, err := im.session.ChannelMessageSendEmbed(im.channelId, msg); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"title": title,
		}).Error("discord ChannelMessageSendEmbed failed")
	}
}

// NewNop returns an alert service that drops everything, for tests and local
// runs without a bot key
func NewNop() Service {
	return nop{}
}

type nop struct{}

func (nop) Notify(ctx.Ctx, string, string, map[string]string) {}
