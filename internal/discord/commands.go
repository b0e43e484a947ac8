package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Slash command names.
const (
	CommandPanel           = "panel"
	CommandTransactions    = "transactions"
	CommandProfile         = "profile"
	CommandGenerateCode    = "generate_code"
	CommandViewCodes       = "view_codes"
	CommandViewWithdrawals = "view_withdrawals"
	CommandStats           = "stats"
)

func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(values))
	for i, v := range values {
		out[i] = &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v}
	}
	return out
}

// Commands returns the slash command set.
func Commands() []*discordgo.ApplicationCommand {
	minPage := 1.0
	minAmount := 0.01
	return []*discordgo.ApplicationCommand{
		{Name: CommandPanel, Description: "Post the cashback action panel"},
		{
			Name:        CommandTransactions,
			Description: "Show your transaction history",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page number",
				MinValue:    &minPage,
			}},
		},
		{
			Name:        CommandProfile,
			Description: "Show a cashback profile",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "Member to look up (defaults to you)",
			}},
		},
		{
			Name:        CommandGenerateCode,
			Description: "Generate a cashback code",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "amount",
				Description: "Value of the code",
				Required:    true,
				MinValue:    &minAmount,
			}},
		},
		{
			Name:        CommandViewCodes,
			Description: "List cashback codes",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "status",
				Description: "Filter by status",
				Choices:     choices("all", "active", "redeemed"),
			}},
		},
		{
			Name:        CommandViewWithdrawals,
			Description: "List withdrawal requests",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "status",
				Description: "Filter by status",
				Choices:     choices("pending", "completed", "rejected"),
			}},
		},
		{Name: CommandStats, Description: "Show system statistics"},
	}
}

// RegisterCommands overwrites the application's commands. An empty guildID
// registers them globally.
func RegisterCommands(ctx context.Context, rest REST, appID, guildID string) error {
	if _, err := rest.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}
