package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/money"
)

const footerText = "Cashback System"

const (
	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorPurple = 0x9b59b6
	colorGold   = 0xf1c40f
)

const dateLayout = "2006-01-02 15:04:05"

func embed(title, description string, color int, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func mention(userID string) string { return "<@" + userID + ">" }

func bold(s string) string { return "**" + s + "**" }

func statusEmoji(status string) string {
	switch status {
	case models.TxStatusCompleted:
		return "✅"
	case models.TxStatusPending:
		return "⏳"
	default:
		return "❌"
	}
}

func typeTitle(txType string) string {
	switch txType {
	case models.TxTypeCodeRedeem:
		return "Code Redeem"
	case models.TxTypeWithdrawal:
		return "Withdrawal"
	}
	return txType
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PanelEmbed describes the three panel buttons.
func PanelEmbed(now time.Time) *discordgo.MessageEmbed {
	e := embed("💸 Cashback Panel", "Use the buttons below to manage your cashback.", colorPurple, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Redeem Code", "Redeem a cashback code.", false),
		field("Check Balance", "View your current cashback balance.", false),
		field("Withdraw", "Submit a withdrawal request.", false),
	}
	return e
}

func RedemptionEmbed(r *ledger.Redemption, now time.Time) *discordgo.MessageEmbed {
	e := embed("🎉 Code Redeemed", fmt.Sprintf("You received %s cashback!", bold(money.Format(r.AmountCents))), colorGreen, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("New Balance", bold(money.Format(r.BalanceCents)), true),
		field("Transaction ID", "`"+r.TransactionID+"`", true),
		field("Level", fmt.Sprintf("%d (%s)", r.Profile.Level, r.Profile.Rank), true),
	}
	return e
}

func BalanceEmbed(acc *models.Account, now time.Time) *discordgo.MessageEmbed {
	return embed("💰 Your Balance", fmt.Sprintf("You currently have %s cashback.", bold(money.Format(acc.BalanceCents))), colorBlue, now)
}

// WithdrawalRequestedEmbed confirms a request to the requester.
func WithdrawalRequestedEmbed(req *ledger.WithdrawalRequest, now time.Time) *discordgo.MessageEmbed {
	t := req.Transaction
	e := embed("📤 Withdrawal Requested",
		fmt.Sprintf("Your request for %s is pending staff review. A private channel will open shortly.", bold(money.Format(t.AmountCents))),
		colorBlue, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Remaining Balance", bold(money.Format(req.BalanceCents)), true),
		field("Transaction ID", "`"+t.TransactionID+"`", true),
	}
	return e
}

// SurfaceEmbed is the request message posted in the approval channel.
func SurfaceEmbed(s models.WithdrawalSurface, now time.Time) *discordgo.MessageEmbed {
	e := embed("💳 Withdrawal Request", fmt.Sprintf("%s has requested a withdrawal.", mention(s.UserID)), colorGold, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Amount", bold(money.Format(s.AmountCents)), true),
		field("Remaining Balance", bold(money.Format(s.BalanceCents)), true),
		field("Transaction ID", "`"+s.TransactionID+"`", true),
		field("Status", statusEmoji(models.TxStatusPending)+" Pending", true),
	}
	return e
}

// FinalSurfaceEmbed replaces the request message once staff decide.
func FinalSurfaceEmbed(t *models.Transaction, now time.Time) *discordgo.MessageEmbed {
	color, verb := colorGreen, "approved"
	if t.Status == models.TxStatusRejected {
		color, verb = colorRed, "rejected and refunded"
	}
	e := embed("💳 Withdrawal "+titleCase(t.Status), fmt.Sprintf("The withdrawal of %s by %s was %s.", bold(money.Format(t.AmountCents)), mention(t.UserID), verb), color, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Transaction ID", "`"+t.TransactionID+"`", true),
		field("Status", statusEmoji(t.Status)+" "+titleCase(t.Status), true),
	}
	if t.DecidedBy != nil {
		e.Fields = append(e.Fields, field("Decided By", mention(*t.DecidedBy), true))
	}
	return e
}

// DecisionNotice is the ephemeral reply to the staff member who decided.
func DecisionNotice(d *ledger.Decision) string {
	t := d.Transaction
	if t.Status == models.TxStatusCompleted {
		return fmt.Sprintf("✅ Withdrawal `%s` of %s approved.", t.TransactionID, money.Format(t.AmountCents))
	}
	return fmt.Sprintf("❌ Withdrawal `%s` rejected. %s refunded to %s.", t.TransactionID, money.Format(t.AmountCents), mention(t.UserID))
}

// TranscriptEmbed is the read-only summary posted to the staff log channel.
func TranscriptEmbed(t *models.Transaction, requestedBy string, now time.Time) *discordgo.MessageEmbed {
	e := embed("📜 Withdrawal Transcript", "Transcript requested by "+mention(requestedBy), colorBlue, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("User", mention(t.UserID), true),
		field("Amount", bold(money.Format(t.AmountCents)), true),
		field("Status", statusEmoji(t.Status)+" "+titleCase(t.Status), true),
		field("Transaction ID", "`"+t.TransactionID+"`", true),
		field("Requested At", t.CreatedAt.UTC().Format(dateLayout), true),
	}
	if t.DecidedBy != nil && t.DecidedAt != nil {
		e.Fields = append(e.Fields, field("Decided", mention(*t.DecidedBy)+" at "+t.DecidedAt.UTC().Format(dateLayout), false))
	}
	return e
}

// NotificationEmbed is the direct message sent after a decision.
func NotificationEmbed(n models.Notification, now time.Time) *discordgo.MessageEmbed {
	if n.Event == models.EventWithdrawalRejected {
		e := embed("❌ Withdrawal Rejected", fmt.Sprintf("Your withdrawal of %s was rejected and the amount returned to your balance.", bold(money.Format(n.AmountCents))), colorRed, now)
		e.Fields = []*discordgo.MessageEmbedField{
			field("Balance", bold(money.Format(n.BalanceCents)), true),
			field("Transaction ID", "`"+n.TransactionID+"`", true),
		}
		return e
	}
	e := embed("✅ Withdrawal Approved", fmt.Sprintf("Your withdrawal of %s has been approved.", bold(money.Format(n.AmountCents))), colorGreen, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Transaction ID", "`"+n.TransactionID+"`", true),
	}
	return e
}

func HistoryEmbed(userID string, page *ledger.HistoryPage, now time.Time) *discordgo.MessageEmbed {
	e := embed("📜 Transaction History", "Showing transactions for "+mention(userID), colorBlue, now)
	for _, t := range page.Items {
		sign := "-"
		if t.Type == models.TxTypeCodeRedeem {
			sign = "+"
		}
		e.Fields = append(e.Fields, field(
			statusEmoji(t.Status)+" "+typeTitle(t.Type),
			fmt.Sprintf("Amount: %s%s\nID: %s\nDate: %s", sign, money.Format(t.AmountCents), t.TransactionID, t.CreatedAt.UTC().Format(dateLayout)),
			false,
		))
	}
	e.Footer.Text = fmt.Sprintf("Page %d/%d • %s", page.Page, page.TotalPages, footerText)
	return e
}

func ProfileEmbed(view *ledger.ProfileView, now time.Time) *discordgo.MessageEmbed {
	a, p := view.Account, view.Profile
	e := embed("👤 Profile", fmt.Sprintf("%s • Rank: %s • Level %d", mention(p.UserID), p.Rank, p.Level), colorBlue, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Balance", bold(money.Format(a.BalanceCents)), true),
		field("Total Earned", bold(money.Format(a.TotalEarnedCents)), true),
		field("Total Withdrawn", bold(money.Format(a.TotalWithdrawnCents)), true),
		field("XP", fmt.Sprintf("%s / %d", bold(fmt.Sprint(p.XP)), int64(p.Level)*1000), true),
		field("Transactions", bold(fmt.Sprint(p.TransactionCount)), true),
		field("Member Since", a.CreatedAt.UTC().Format("2006-01-02"), true),
	}
	if len(p.Achievements) > 0 {
		lines := make([]string, len(p.Achievements))
		for i, ach := range p.Achievements {
			lines[i] = "🏆 " + ach
		}
		e.Fields = append(e.Fields, field("Achievements", strings.Join(lines, "\n"), false))
	}
	return e
}

func CodeGeneratedEmbed(c *models.Code, now time.Time) *discordgo.MessageEmbed {
	e := embed("🎫 New Cashback Code Generated", "Amount: "+bold(money.Format(c.AmountCents)), colorGreen, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Code", "`"+c.Code+"`", false),
		field("Generated By", mention(c.CreatedBy), true),
	}
	return e
}

func CodesEmbed(codes []*models.Code, filter string, now time.Time) *discordgo.MessageEmbed {
	if filter == "" {
		filter = models.CodeFilterAll
	}
	e := embed("🎫 Cashback Codes", "Showing "+titleCase(filter)+" Codes", colorBlue, now)
	for _, c := range codes {
		emoji, status := "🆕", "Active"
		if c.Redeemed {
			emoji, status = "✅", "Redeemed"
		}
		value := fmt.Sprintf("Amount: %s\nCreated: %s", bold(money.Format(c.AmountCents)), c.CreatedAt.UTC().Format(dateLayout))
		if c.Redeemed && c.RedeemedBy != nil {
			value += "\nRedeemed By: " + mention(*c.RedeemedBy)
		}
		if c.Redeemed && c.RedeemedAt != nil {
			value += "\nRedeemed At: " + c.RedeemedAt.UTC().Format(dateLayout)
		}
		e.Fields = append(e.Fields, field(fmt.Sprintf("%s %s (%s)", emoji, c.Code, status), value, false))
	}
	return e
}

func WithdrawalsEmbed(list []*models.Transaction, status string, now time.Time) *discordgo.MessageEmbed {
	if status == "" {
		status = models.TxStatusPending
	}
	e := embed("💳 Withdrawal Requests", "Showing "+titleCase(status)+" Withdrawals", colorBlue, now)
	for _, t := range list {
		e.Fields = append(e.Fields, field(
			statusEmoji(t.Status)+" Withdrawal Request",
			fmt.Sprintf("Amount: %s\nUser: %s\nDate: %s\nID: %s", bold(money.Format(t.AmountCents)), mention(t.UserID), t.CreatedAt.UTC().Format(dateLayout), t.TransactionID),
			false,
		))
	}
	return e
}

func StatsEmbed(s *models.Stats, now time.Time) *discordgo.MessageEmbed {
	e := embed("📊 System Statistics", "Current system status and metrics", colorBlue, now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Total Users", bold(fmt.Sprint(s.TotalUsers)), true),
		field("Total Transactions", bold(fmt.Sprint(s.TotalTransactions)), true),
		field("Active Codes", bold(fmt.Sprintf("%d/%d", s.ActiveCodes, s.TotalCodes)), true),
		field("Pending Withdrawals", bold(fmt.Sprint(s.PendingWithdrawals)), true),
		field("Total Earned", bold(money.Format(s.TotalEarnedCents)), true),
		field("Total Withdrawn", bold(money.Format(s.TotalWithdrawnCents)), true),
		field("Current Balance", bold(money.Format(s.CurrentBalanceCents)), true),
	}
	return e
}
