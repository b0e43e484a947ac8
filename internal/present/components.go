package present

import "github.com/bwmarrin/discordgo"

func PanelComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Redeem Code", Style: discordgo.PrimaryButton, CustomID: PanelRedeemCode},
			discordgo.Button{Label: "Check Balance", Style: discordgo.SecondaryButton, CustomID: PanelCheckBalance},
			discordgo.Button{Label: "Withdraw", Style: discordgo.SuccessButton, CustomID: PanelWithdraw},
		}},
	}
}

// SurfaceComponents are the four staff/requester actions of an approval channel.
func SurfaceComponents(transactionID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Approve", Style: discordgo.SuccessButton, CustomID: WithdrawalButtonID(ActionApprove, transactionID)},
			discordgo.Button{Label: "Reject", Style: discordgo.DangerButton, CustomID: WithdrawalButtonID(ActionReject, transactionID)},
			discordgo.Button{Label: "Transcript", Style: discordgo.SecondaryButton, CustomID: WithdrawalButtonID(ActionTranscript, transactionID)},
			discordgo.Button{Label: "Close", Style: discordgo.SecondaryButton, CustomID: WithdrawalButtonID(ActionClose, transactionID)},
		}},
	}
}

func RedeemModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: ModalRedeemCode,
		Title:    "Redeem Cashback Code",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldCode,
					Label:       "Enter your cashback code",
					Style:       discordgo.TextInputShort,
					Placeholder: "ABCD1234",
					Required:    true,
					MinLength:   1,
					MaxLength:   64,
				},
			}},
		},
	}
}

func WithdrawModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: ModalWithdraw,
		Title:    "Withdraw Cashback",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    FieldAmount,
					Label:       "Enter amount to withdraw",
					Style:       discordgo.TextInputShort,
					Placeholder: "10.00",
					Required:    true,
					MinLength:   1,
					MaxLength:   32,
				},
			}},
		},
	}
}
