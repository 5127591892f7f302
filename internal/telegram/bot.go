package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"hydrotrack/internal/app"
	"hydrotrack/internal/assistant"
	"hydrotrack/internal/config"
	"hydrotrack/internal/intake"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/preferences"
	"hydrotrack/internal/stats"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `💧 *HydroTrack*

/log <liters> · record a drink
/stats · today's progress
/history · recent entries
/delete <id> · remove an entry
/clear · wipe all entries
/goal [liters] · show or set the daily goal
/autolog [on|off|window HH:MM HH:MM] · hourly 200ml logger
/plant · your hydration plant
/chart [daily|weekly|monthly] · intake chart
/reset · start a new assistant chat
/metrics · usage and health

Anything else goes to the assistant.`

// Bot wraps the Telegram API and the tracker.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	sessions     *SessionRepository
	metricsStore *metrics.Store
	cfg          *config.Config
}

// reply is the text and optional keyboard sent back for a command.
type reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// NewBot initializes the Telegram Bot. With a webhook URL configured the
// webhook is registered; otherwise any existing webhook is removed so Poll
// can receive updates. sessions and metricsStore may be nil.
func NewBot(cfg *config.Config, a *app.App, sessions *SessionRepository, metricsStore *metrics.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	if webhookURL := cfg.TelegramWebhookURL; webhookURL != "" {
		wh, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
		}
		resp, err := bot.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
		}
		log.Printf("Webhook set response: %s", resp.Description)
	} else if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("failed to remove webhook: %w", err)
	}

	return &Bot{
		api:          bot,
		app:          a,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// UsesWebhook reports whether updates arrive through WebhookHandler.
func (b *Bot) UsesWebhook() bool {
	return b.cfg.TelegramWebhookURL != ""
}

// WebhookHandler parses webhook updates.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			log.Printf("Error parsing update: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.handleUpdate(*update)
	}
}

// Poll receives updates by long polling until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if b.allowed(update.CallbackQuery.From.ID) {
			b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.allowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()

	if !msg.IsCommand() {
		b.handleChatRequest(ctx, msg)
		return
	}

	var r reply
	if msg.Command() == "metrics" {
		r = b.metricsReply(ctx)
	} else {
		r = b.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
	}
	b.send(msg.Chat.ID, r)
}

func (b *Bot) send(chatID int64, r reply) {
	out := tgbotapi.NewMessage(chatID, r.Text)
	out.ParseMode = "Markdown"
	if r.Keyboard != nil {
		out.ReplyMarkup = *r.Keyboard
	}
	if _, err := b.api.Send(out); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}

// handleCommand runs a tracker command and returns the reply to send.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd, args string) reply {
	args = strings.TrimSpace(args)
	switch cmd {
	case "start", "help":
		return reply{Text: helpText}

	case "log":
		amount, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args), "l"), 64)
		if err != nil {
			return reply{Text: "Usage: /log <liters>, e.g. `/log 0.25`"}
		}
		e, grew, err := b.app.AddEntry(ctx, amount)
		if errors.Is(err, intake.ErrInvalidAmount) {
			return reply{Text: "❌ Amount must be greater than zero."}
		}
		if err != nil {
			return errorReply("logging intake", err)
		}
		s := b.app.Stats()
		text := fmt.Sprintf("✅ Logged *%s*. Today: %s / %s (%d%%)", formatLiters(e.Amount), formatLiters(s.TodayTotal), formatLiters(s.Goal), s.TodayPercentage)
		if grew {
			text += fmt.Sprintf("\n\n🎉 Goal reached! Your plant grew to height *%d*.", b.app.Plant().Height)
		}
		return reply{Text: text}

	case "stats":
		return reply{Text: formatStats(b.app.Stats())}

	case "history":
		return reply{Text: formatHistory(b.app.Entries(), b.app.Now().Location())}

	case "delete":
		if args == "" {
			return reply{Text: "Usage: /delete <id> (ids are listed by /history)"}
		}
		removed, err := b.app.DeleteEntry(ctx, args)
		if err != nil {
			return errorReply("deleting entry", err)
		}
		if !removed {
			return reply{Text: "🤷 No entry with that id."}
		}
		return reply{Text: "🗑 Entry deleted."}

	case "clear":
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, clear everything", "clear|yes"),
				tgbotapi.NewInlineKeyboardButtonData("Cancel", "clear|no"),
			),
		)
		return reply{Text: "⚠️ This removes *all* entries and resets your plant. Continue?", Keyboard: &keyboard}

	case "goal":
		if args == "" {
			return reply{Text: fmt.Sprintf("🎯 Daily goal: *%s*", formatLiters(b.app.Goal()))}
		}
		goal, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args), "l"), 64)
		if err != nil {
			return reply{Text: "Usage: /goal <liters>, e.g. `/goal 2.5`"}
		}
		if err := b.app.SetGoal(ctx, goal); err != nil {
			if errors.Is(err, preferences.ErrInvalidGoal) {
				return reply{Text: "❌ Goal must be greater than zero."}
			}
			return errorReply("saving goal", err)
		}
		return reply{Text: fmt.Sprintf("🎯 Daily goal set to *%s*.", formatLiters(goal))}

	case "autolog":
		return b.handleAutoLog(ctx, args)

	case "plant":
		return reply{Text: formatPlant(b.app.Plant(), b.app.JustGrew())}

	case "chart":
		kind := stats.Daily
		if args != "" {
			kind = stats.Kind(strings.ToLower(args))
		}
		points, ok := b.app.Series(kind)
		if !ok {
			return reply{Text: "Usage: /chart [daily|weekly|monthly]"}
		}
		return reply{Text: formatSeries(kind, points)}

	case "reset":
		if b.sessions == nil {
			return reply{Text: "The assistant is not configured."}
		}
		return reply{Text: b.sessions.Reset(chatID).Text}
	}
	return reply{Text: "Unknown command. Try /help."}
}

func (b *Bot) handleAutoLog(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	var err error
	switch {
	case len(fields) == 0:
	case fields[0] == "on":
		err = b.app.SetAutoLogEnabled(ctx, true)
	case fields[0] == "off":
		err = b.app.SetAutoLogEnabled(ctx, false)
	case fields[0] == "window" && len(fields) == 3:
		err = b.app.SetAutoLogWindow(ctx, fields[1], fields[2])
	default:
		return reply{Text: "Usage: /autolog [on|off|window HH:MM HH:MM]"}
	}
	switch {
	case errors.Is(err, app.ErrAutoLogActive):
		return reply{Text: "⏸ Turn the auto-logger off before changing its window."}
	case errors.Is(err, preferences.ErrInvalidTime):
		return reply{Text: "❌ Times must be HH:MM, e.g. `/autolog window 09:00 18:00`"}
	case err != nil:
		return errorReply("updating auto-logger", err)
	}

	cfg := b.app.AutoLog()
	state := "off"
	if cfg.Enabled {
		state = "on"
	}
	return reply{Text: fmt.Sprintf("⏰ *Auto-logger* is %s (%s to %s)\n%s", state, cfg.StartTime, cfg.EndTime, b.app.AutoLogStatus())}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))
	if query.Message == nil {
		return
	}

	text := "Cancelled. Your data is untouched."
	if query.Data == "clear|yes" {
		if err := b.app.ClearAll(context.Background()); err != nil {
			text = errorReply("clearing data", err).Text
		} else {
			text = "🧹 All entries cleared. Your plant starts over."
		}
	}
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) handleChatRequest(ctx context.Context, msg *tgbotapi.Message) {
	if b.sessions == nil {
		b.send(msg.Chat.ID, reply{Text: "The assistant is not configured. Try /help."})
		return
	}

	sentMsg, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "💭 Thinking..."))
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var finalText string
	answer, err := b.sessions.Get(msg.Chat.ID).Send(ctx, msg.Text)
	switch {
	case errors.Is(err, assistant.ErrBusy):
		finalText = "⏳ Still answering your previous message."
	case errors.Is(err, assistant.ErrEmptyMessage):
		finalText = "Send me a question about hydration."
	case err != nil:
		finalText = assistant.FallbackMessage
	default:
		finalText = answer.Text
	}
	// Model output is sent as plain text; it may not be valid Markdown.
	b.api.Send(tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText))
}

func (b *Bot) metricsReply(ctx context.Context) reply {
	var usage []metrics.DailyUsage
	if b.metricsStore != nil {
		var err error
		usage, err = b.metricsStore.GetDailyUsage(ctx, 7)
		if err != nil {
			log.Printf("Error fetching metrics: %v", err)
			return reply{Text: "❌ Error fetching metrics."}
		}
	}
	return reply{Text: formatUsage(usage, b.app.Health(ctx, b.dataPath()))}
}

func (b *Bot) dataPath() string {
	if b.cfg.StorageBackend == config.StorageFile {
		return b.cfg.StoragePath
	}
	return b.cfg.DatabasePath
}

func errorReply(action string, err error) reply {
	log.Printf("Error %s: %v", action, err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return reply{Text: fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr)}
}
