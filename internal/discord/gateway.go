// Package discord performs the chat side effects of the ledger over the
// Discord REST API.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/present"
)

// requestScanLimit bounds the history read when an approval channel is reused.
const requestScanLimit = 50

// Permissions granted to each party of an approval channel.
const (
	participantAllow = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
	lockedAllow      = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
)

// REST is the subset of *discordgo.Session the gateway calls.
type REST interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var _ REST = (*discordgo.Session)(nil)

// GatewayConfig names the guild objects the gateway works with.
type GatewayConfig struct {
	// BotUserID is granted access to every approval channel.
	BotUserID    string
	StaffRoleID  string
	CategoryName string
}

// Gateway implements the surface and notification side effects.
type Gateway struct {
	rest REST
	cfg  GatewayConfig
	log  *slog.Logger
	now  func() time.Time
}

func NewGateway(rest REST, cfg GatewayConfig, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CategoryName == "" {
		cfg.CategoryName = "Withdrawals"
	}
	return &Gateway{rest: rest, cfg: cfg, log: log, now: time.Now}
}

// OpenWithdrawalSurface creates (or reuses) the private channel of a
// withdrawal and posts the request message with its action buttons. On a
// reused channel an earlier request message from the bot is returned instead
// of posting a second one.
func (g *Gateway) OpenWithdrawalSurface(ctx context.Context, s models.WithdrawalSurface) (string, string, error) {
	opt := discordgo.WithContext(ctx)
	guild, err := g.rest.Guild(s.GuildID, opt)
	if err != nil {
		return "", "", fmt.Errorf("get guild: %w", err)
	}
	channels, err := g.rest.GuildChannels(s.GuildID, opt)
	if err != nil {
		return "", "", fmt.Errorf("list channels: %w", err)
	}
	categoryID, err := g.ensureCategory(ctx, s.GuildID, channels)
	if err != nil {
		return "", "", err
	}

	name := present.SurfaceChannelName(s.TransactionID)
	channel := findChannel(channels, discordgo.ChannelTypeGuildText, name)
	if channel == nil {
		channel, err = g.rest.GuildChannelCreateComplex(s.GuildID, discordgo.GuildChannelCreateData{
			Name:                 name,
			Type:                 discordgo.ChannelTypeGuildText,
			ParentID:             categoryID,
			Topic:                "Withdrawal " + s.TransactionID,
			PermissionOverwrites: g.surfaceOverwrites(s),
		}, opt)
		if err != nil {
			return "", "", fmt.Errorf("create channel: %w", err)
		}
	} else {
		g.log.Info("reusing existing approval channel", "transaction_id", s.TransactionID, "channel_id", channel.ID)
		msgs, err := g.rest.ChannelMessages(channel.ID, requestScanLimit, "", "", "", opt)
		if err != nil {
			return "", "", fmt.Errorf("list channel messages: %w", err)
		}
		if m := g.findRequestMessage(msgs, s.TransactionID); m != nil {
			return channel.ID, m.ID, nil
		}
	}

	content := "<@" + guild.OwnerID + ">"
	if g.cfg.StaffRoleID != "" {
		content += " <@&" + g.cfg.StaffRoleID + ">"
	}
	msg, err := g.rest.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content:    content,
		Embeds:     []*discordgo.MessageEmbed{present.SurfaceEmbed(s, g.now())},
		Components: present.SurfaceComponents(s.TransactionID),
	}, opt)
	if err != nil {
		return "", "", fmt.Errorf("post request message: %w", err)
	}
	return channel.ID, msg.ID, nil
}

func (g *Gateway) findRequestMessage(msgs []*discordgo.Message, transactionID string) *discordgo.Message {
	want := "`" + transactionID + "`"
	for _, m := range msgs {
		if m.Author == nil || (g.cfg.BotUserID != "" && m.Author.ID != g.cfg.BotUserID) {
			continue
		}
		for _, e := range m.Embeds {
			for _, f := range e.Fields {
				if f.Name == "Transaction ID" && f.Value == want {
					return m
				}
			}
		}
	}
	return nil
}

func (g *Gateway) ensureCategory(ctx context.Context, guildID string, channels []*discordgo.Channel) (string, error) {
	if c := findChannel(channels, discordgo.ChannelTypeGuildCategory, g.cfg.CategoryName); c != nil {
		return c.ID, nil
	}
	c, err := g.rest.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: g.cfg.CategoryName,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	return c.ID, nil
}

// surfaceOverwrites hides the channel from @everyone (whose role id is the
// guild id) and opens it to the requester, staff and the bot.
func (g *Gateway) surfaceOverwrites(s models.WithdrawalSurface) []*discordgo.PermissionOverwrite {
	ow := []*discordgo.PermissionOverwrite{
		{ID: s.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: s.UserID, Type: discordgo.PermissionOverwriteTypeMember, Allow: participantAllow},
	}
	if g.cfg.StaffRoleID != "" {
		ow = append(ow, &discordgo.PermissionOverwrite{ID: g.cfg.StaffRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: participantAllow})
	}
	if g.cfg.BotUserID != "" {
		ow = append(ow, &discordgo.PermissionOverwrite{ID: g.cfg.BotUserID, Type: discordgo.PermissionOverwriteTypeMember, Allow: participantAllow})
	}
	return ow
}

// FinalizeWithdrawalSurface rewrites the request message with the decision
// and removes the buttons.
func (g *Gateway) FinalizeWithdrawalSurface(ctx context.Context, t *models.Transaction) error {
	if t.SurfaceChannelID == nil || t.SurfaceMessageID == nil {
		return fmt.Errorf("transaction %s has no surface", t.TransactionID)
	}
	edit := discordgo.NewMessageEdit(*t.SurfaceChannelID, *t.SurfaceMessageID).
		SetEmbed(present.FinalSurfaceEmbed(t, g.now()))
	edit.Components = &[]discordgo.MessageComponent{}
	if _, err := g.rest.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit request message: %w", err)
	}
	return nil
}

// NotifyUser sends a direct message.
func (g *Gateway) NotifyUser(ctx context.Context, n models.Notification) error {
	opt := discordgo.WithContext(ctx)
	dm, err := g.rest.UserChannelCreate(n.UserID, opt)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	if _, err := g.rest.ChannelMessageSendEmbed(dm.ID, present.NotificationEmbed(n, g.now()), opt); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

func (g *Gateway) FindTextChannel(ctx context.Context, guildID, name string) (string, bool, error) {
	channels, err := g.rest.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", false, err
	}
	if c := findChannel(channels, discordgo.ChannelTypeGuildText, name); c != nil {
		return c.ID, true, nil
	}
	return "", false, nil
}

func (g *Gateway) PostTranscript(ctx context.Context, channelID string, t *models.Transaction, requestedBy string) error {
	_, err := g.rest.ChannelMessageSendEmbed(channelID, present.TranscriptEmbed(t, requestedBy, g.now()), discordgo.WithContext(ctx))
	return err
}

// LockSurface hides the channel from @everyone and leaves the requester
// read-only. Setting the same overwrites again is a no-op.
func (g *Gateway) LockSurface(ctx context.Context, t *models.Transaction) error {
	if t.SurfaceChannelID == nil {
		return fmt.Errorf("transaction %s has no surface", t.TransactionID)
	}
	ch := *t.SurfaceChannelID
	opt := discordgo.WithContext(ctx)
	if err := g.rest.ChannelPermissionSet(ch, t.GuildID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionViewChannel, opt); err != nil {
		return fmt.Errorf("lock @everyone: %w", err)
	}
	if err := g.rest.ChannelPermissionSet(ch, t.UserID, discordgo.PermissionOverwriteTypeMember, lockedAllow, discordgo.PermissionSendMessages, opt); err != nil {
		return fmt.Errorf("lock requester: %w", err)
	}
	return nil
}

func findChannel(channels []*discordgo.Channel, kind discordgo.ChannelType, name string) *discordgo.Channel {
	for _, c := range channels {
		if c.Type == kind && c.Name == name {
			return c
		}
	}
	return nil
}
