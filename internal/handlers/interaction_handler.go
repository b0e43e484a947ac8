package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/inaiurai/cashback/internal/discord"
	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/money"
	"github.com/inaiurai/cashback/internal/present"
	"github.com/inaiurai/cashback/internal/services"
)

const maxInteractionBody = 1 << 20

// Cashback is the ledger surface driven by interactions.
type Cashback interface {
	RedeemCode(ctx context.Context, actor ledger.Actor, code string) (*ledger.Redemption, error)
	CheckBalance(ctx context.Context, actor ledger.Actor) (*models.Account, error)
	RequestWithdrawal(ctx context.Context, actor ledger.Actor, amount string) (*ledger.WithdrawalRequest, error)
	ApproveWithdrawal(ctx context.Context, actor ledger.Actor, transactionID string) (*ledger.Decision, error)
	RejectWithdrawal(ctx context.Context, actor ledger.Actor, transactionID string) (*ledger.Decision, error)
	Transcript(ctx context.Context, actor ledger.Actor, transactionID string) error
	CloseSurface(ctx context.Context, actor ledger.Actor, transactionID string) error
	History(ctx context.Context, actor ledger.Actor, page int) (*ledger.HistoryPage, error)
	Profile(ctx context.Context, actor ledger.Actor, targetUserID string) (*ledger.ProfileView, error)
	GenerateCode(ctx context.Context, createdBy string, amountCents int64) (*models.Code, error)
	ListCodes(ctx context.Context, filter string) ([]*models.Code, error)
	ListWithdrawals(ctx context.Context, status string) ([]*models.Transaction, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Action is one entry of the interaction dispatch table. Schema names the
// input schema checked before Handle runs; Authorize may be nil.
type Action struct {
	Schema    string
	Authorize func(ledger.Actor) bool
	Handle    func(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error)
}

// InteractionHandler serves POST /interactions. Requests must already have
// passed signature verification.
type InteractionHandler struct {
	Cashback    Cashback
	Validator   *services.Validator
	StaffRoleID string
	Logger      *slog.Logger
	Now         func() time.Time

	actions map[string]Action
}

func NewInteractionHandler(c Cashback, v *services.Validator, staffRoleID string, log *slog.Logger) *InteractionHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &InteractionHandler{Cashback: c, Validator: v, StaffRoleID: staffRoleID, Logger: log, Now: time.Now}
	h.actions = h.dispatchTable()
	return h
}

func staffOnly(a ledger.Actor) bool { return a.IsStaff() }

func commandKey(name string) string { return "command:" + name }

func (h *InteractionHandler) dispatchTable() map[string]Action {
	return map[string]Action{
		commandKey(discord.CommandPanel):           {Authorize: staffOnly, Handle: h.panel},
		commandKey(discord.CommandTransactions):    {Schema: services.SchemaTransactions, Handle: h.transactions},
		commandKey(discord.CommandProfile):         {Schema: services.SchemaProfile, Handle: h.profile},
		commandKey(discord.CommandGenerateCode):    {Schema: services.SchemaGenerateCode, Authorize: staffOnly, Handle: h.generateCode},
		commandKey(discord.CommandViewCodes):       {Schema: services.SchemaViewCodes, Authorize: staffOnly, Handle: h.viewCodes},
		commandKey(discord.CommandViewWithdrawals): {Schema: services.SchemaViewWithdrawals, Authorize: staffOnly, Handle: h.viewWithdrawals},
		commandKey(discord.CommandStats):           {Authorize: staffOnly, Handle: h.stats},

		present.PanelRedeemCode:   {Handle: h.openModal(present.RedeemModal)},
		present.PanelCheckBalance: {Handle: h.checkBalance},
		present.PanelWithdraw:     {Handle: h.openModal(present.WithdrawModal)},

		present.ModalRedeemCode: {Schema: services.SchemaRedeemCode, Handle: h.redeemCode},
		present.ModalWithdraw:   {Schema: services.SchemaWithdraw, Handle: h.withdraw},

		withdrawalKey(present.ActionApprove):    {Schema: services.SchemaWithdrawalAction, Handle: h.approve},
		withdrawalKey(present.ActionReject):     {Schema: services.SchemaWithdrawalAction, Handle: h.reject},
		withdrawalKey(present.ActionTranscript): {Schema: services.SchemaWithdrawalAction, Handle: h.transcript},
		withdrawalKey(present.ActionClose):      {Schema: services.SchemaWithdrawalAction, Handle: h.closeSurface},
	}
}

func withdrawalKey(action string) string { return "withdrawal:" + action }

// Handle handles POST /interactions.
func (h *InteractionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var i discordgo.Interaction
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInteractionBody)).Decode(&i); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if i.Type == discordgo.InteractionPing {
		writeJSON(w, http.StatusOK, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
		return
	}

	key, in, ok := route(&i)
	log := h.Logger.With("request_id", uuid.NewString(), "interaction_id", i.ID, "action", key)
	if !ok {
		log.Warn("unsupported interaction", "type", i.Type)
		writeJSON(w, http.StatusOK, ephemeralText(present.GenericFailure))
		return
	}
	actor, ok := actorFrom(&i, h.StaffRoleID)
	if !ok {
		log.Warn("interaction without user")
		writeJSON(w, http.StatusOK, ephemeralText(present.GenericFailure))
		return
	}
	writeJSON(w, http.StatusOK, h.dispatch(r.Context(), log.With("user_id", actor.UserID), key, actor, in))
}

func (h *InteractionHandler) dispatch(ctx context.Context, log *slog.Logger, key string, actor ledger.Actor, in map[string]any) *discordgo.InteractionResponse {
	action, ok := h.actions[key]
	if !ok {
		log.Warn("unknown action")
		return ephemeralText(present.GenericFailure)
	}
	resp, err := h.run(ctx, action, actor, in)
	if err == nil {
		return resp
	}
	msg, known := present.Denial(err)
	if known {
		log.Info("interaction denied", "error", err)
	} else {
		log.Error("interaction failed", "error", err)
	}
	return ephemeralText(msg)
}

func (h *InteractionHandler) run(ctx context.Context, action Action, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	if action.Authorize != nil && !action.Authorize(actor) {
		return nil, ledger.ErrPermissionDenied
	}
	if action.Schema != "" {
		if err := h.Validator.Validate(action.Schema, in); err != nil {
			switch {
			case errors.Is(err, services.ErrMissingField):
				return nil, errors.Join(ledger.ErrMissingArgument, err)
			case errors.Is(err, services.ErrValidation):
				return nil, errors.Join(ledger.ErrBadArgument, err)
			}
			return nil, err
		}
	}
	return action.Handle(ctx, actor, in)
}

// route derives the dispatch key and the input object of an interaction.
func route(i *discordgo.Interaction) (string, map[string]any, bool) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		in := make(map[string]any, len(data.Options))
		for _, o := range data.Options {
			in[o.Name] = o.Value
		}
		return commandKey(data.Name), in, true
	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		if action, txID, ok := present.ParseWithdrawalButtonID(id); ok {
			return withdrawalKey(action), map[string]any{"transaction_id": txID}, true
		}
		return id, map[string]any{}, true
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		return data.CustomID, modalInput(data.Components), true
	}
	return "", nil, false
}

// modalInput collects text input values by custom id. Blank values are left
// out so required fields report as missing.
func modalInput(components []discordgo.MessageComponent) map[string]any {
	in := map[string]any{}
	for _, c := range components {
		var row []discordgo.MessageComponent
		switch r := c.(type) {
		case *discordgo.ActionsRow:
			row = r.Components
		case discordgo.ActionsRow:
			row = r.Components
		}
		for _, rc := range row {
			var ti *discordgo.TextInput
			switch t := rc.(type) {
			case *discordgo.TextInput:
				ti = t
			case discordgo.TextInput:
				ti = &t
			}
			if ti != nil && strings.TrimSpace(ti.Value) != "" {
				in[ti.CustomID] = ti.Value
			}
		}
	}
	return in
}

func actorFrom(i *discordgo.Interaction, staffRoleID string) (ledger.Actor, bool) {
	a := ledger.Actor{GuildID: i.GuildID}
	switch {
	case i.Member != nil && i.Member.User != nil:
		a.UserID = i.Member.User.ID
		a.Staff = staffRoleID != "" && slices.Contains(i.Member.Roles, staffRoleID)
		a.ManageMessages = i.Member.Permissions&discordgo.PermissionManageMessages != 0
		a.Administrator = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	case i.User != nil:
		a.UserID = i.User.ID
	default:
		return a, false
	}
	return a, true
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func (h *InteractionHandler) panel(context.Context, ledger.Actor, map[string]any) (*discordgo.InteractionResponse, error) {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{present.PanelEmbed(h.Now())},
			Components: present.PanelComponents(),
		},
	}, nil
}

func (h *InteractionHandler) openModal(build func() *discordgo.InteractionResponseData) func(context.Context, ledger.Actor, map[string]any) (*discordgo.InteractionResponse, error) {
	return func(context.Context, ledger.Actor, map[string]any) (*discordgo.InteractionResponse, error) {
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseModal, Data: build()}, nil
	}
}

func (h *InteractionHandler) checkBalance(ctx context.Context, actor ledger.Actor, _ map[string]any) (*discordgo.InteractionResponse, error) {
	acc, err := h.Cashback.CheckBalance(ctx, actor)
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.BalanceEmbed(acc, h.Now())), nil
}

func (h *InteractionHandler) redeemCode(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	res, err := h.Cashback.RedeemCode(ctx, actor, stringArg(in, present.FieldCode, ""))
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.RedemptionEmbed(res, h.Now())), nil
}

func (h *InteractionHandler) withdraw(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	req, err := h.Cashback.RequestWithdrawal(ctx, actor, stringArg(in, present.FieldAmount, ""))
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.WithdrawalRequestedEmbed(req, h.Now())), nil
}

func (h *InteractionHandler) approve(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	d, err := h.Cashback.ApproveWithdrawal(ctx, actor, stringArg(in, "transaction_id", ""))
	if err != nil {
		return nil, err
	}
	return ephemeralText(present.DecisionNotice(d)), nil
}

func (h *InteractionHandler) reject(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	d, err := h.Cashback.RejectWithdrawal(ctx, actor, stringArg(in, "transaction_id", ""))
	if err != nil {
		return nil, err
	}
	return ephemeralText(present.DecisionNotice(d)), nil
}

func (h *InteractionHandler) transcript(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	if err := h.Cashback.Transcript(ctx, actor, stringArg(in, "transaction_id", "")); err != nil {
		return nil, err
	}
	return ephemeralText("📄 Transcript posted to the staff log."), nil
}

func (h *InteractionHandler) closeSurface(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	if err := h.Cashback.CloseSurface(ctx, actor, stringArg(in, "transaction_id", "")); err != nil {
		return nil, err
	}
	return ephemeralText("🔒 Withdrawal channel closed."), nil
}

func (h *InteractionHandler) transactions(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	page, err := h.Cashback.History(ctx, actor, intArg(in, "page", 1))
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.HistoryEmbed(actor.UserID, page, h.Now())), nil
}

func (h *InteractionHandler) profile(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	view, err := h.Cashback.Profile(ctx, actor, stringArg(in, "member", actor.UserID))
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.ProfileEmbed(view, h.Now())), nil
}

func (h *InteractionHandler) generateCode(ctx context.Context, actor ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	cents, err := money.FromFloat(floatArg(in, "amount"))
	if err != nil {
		return nil, err
	}
	code, err := h.Cashback.GenerateCode(ctx, actor.UserID, cents)
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.CodeGeneratedEmbed(code, h.Now())), nil
}

func (h *InteractionHandler) viewCodes(ctx context.Context, _ ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	filter := stringArg(in, "status", models.CodeFilterAll)
	codes, err := h.Cashback.ListCodes(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.CodesEmbed(codes, filter, h.Now())), nil
}

func (h *InteractionHandler) viewWithdrawals(ctx context.Context, _ ledger.Actor, in map[string]any) (*discordgo.InteractionResponse, error) {
	status := stringArg(in, "status", models.TxStatusPending)
	list, err := h.Cashback.ListWithdrawals(ctx, status)
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.WithdrawalsEmbed(list, status, h.Now())), nil
}

func (h *InteractionHandler) stats(ctx context.Context, _ ledger.Actor, _ map[string]any) (*discordgo.InteractionResponse, error) {
	s, err := h.Cashback.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return ephemeralEmbed(present.StatsEmbed(s, h.Now())), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func ephemeral(data *discordgo.InteractionResponseData) *discordgo.InteractionResponse {
	data.Flags = discordgo.MessageFlagsEphemeral
	return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: data}
}

func ephemeralText(msg string) *discordgo.InteractionResponse {
	return ephemeral(&discordgo.InteractionResponseData{Content: msg})
}

func ephemeralEmbed(e *discordgo.MessageEmbed) *discordgo.InteractionResponse {
	return ephemeral(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{e}})
}

func stringArg(in map[string]any, name, def string) string {
	if s, ok := in[name].(string); ok && s != "" {
		return s
	}
	return def
}

// intArg accepts the float64 that JSON decoding produces for integer options.
func intArg(in map[string]any, name string, def int) int {
	switch v := in[name].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return def
}

func floatArg(in map[string]any, name string) float64 {
	switch v := in[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
