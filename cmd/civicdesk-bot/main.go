package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbxark/civicdesk/config"
	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/internal/app"
)

func main() {
	path := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()
	conf, err := config.Load(*path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startBot(conf); err != nil {
		log.Fatalf("start bot: %v", err)
	}
}

func startBot(conf *config.Config) error {
	level, _ := conf.Level()
	slog.SetLogLoggerLevel(level)
	if conf.Telegram.Token == "" {
		return errors.New("telegram.token (TELEGRAM_BOT_TOKEN) is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	engine := a.Certificates
	if conf.Telegram.Flow == "complaint" {
		engine = a.Complaints
	}

	bot, err := tgbotapi.NewBotAPI(conf.Telegram.Token)
	if err != nil {
		return err
	}
	bot.Debug = false
	slog.Info("telegram bot started", "user", bot.Self.UserName, "flow", conf.Telegram.Flow)

	h := &handler{bot: bot, engine: engine}
	runPolling(ctx, bot, func(upd tgbotapi.Update) {
		h.handle(ctx, upd)
	})
	return nil
}

type handler struct {
	bot    *tgbotapi.BotAPI
	engine *intake.Engine
}

// handle runs one text message as a turn of the chat's session. /start begins
// a fresh conversation.
func (h *handler) handle(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Text == "" {
		return
	}
	text := msg.Text
	if msg.IsCommand() && msg.Command() == "start" {
		text = "restart"
	}
	turn := intake.Turn{
		SessionID: "tg:" + strconv.FormatInt(msg.Chat.ID, 10),
		Message:   text,
	}
	if msg.From != nil {
		turn.SubmitterID = "tg:" + strconv.FormatInt(msg.From.ID, 10)
	}

	reply, err := h.engine.Handle(ctx, turn)
	answer := "The service is temporarily unavailable, please try again."
	if err != nil {
		slog.Error("chat turn failed", "chat", msg.Chat.ID, "error", err)
	} else {
		answer = reply.Text
	}
	if _, err := h.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, answer)); err != nil {
		slog.Warn("telegram send failed", "chat", msg.Chat.ID, "error", err)
	}
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			slog.Warn("polling error", "error", err, "retry_in", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
