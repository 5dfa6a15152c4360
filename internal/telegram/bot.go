package telegram

import (
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"

	"trade_bot/internal/pairs"
	"trade_bot/internal/state"
)

type Bot struct {
	bot          *tele.Bot
	shared       *state.SharedState
	pairs        *pairs.Manager
	authorizedID int64
}

func NewBot(token string, authorizedID int64, shared *state.SharedState, pm *pairs.Manager) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:          b,
		shared:       shared,
		pairs:        pm,
		authorizedID: authorizedID,
	}

	bot.setupHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	log.Println("📱 Telegram bot started")
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) setupHandlers() {
	// Middleware for authorization
	b.bot.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender().ID != b.authorizedID {
				return c.Send("⛔ Unauthorized")
			}
			return next(c)
		}
	})

	b.bot.Handle("/start", b.handleMenu)
	b.bot.Handle("/status", b.handleStatus)
	b.bot.Handle("/stop", b.handleStopTrading)

	b.bot.Handle(&btnStartTrading, b.handleStartTrading)
	b.bot.Handle(&btnStopTrading, b.handleStopTrading)
	b.bot.Handle(&btnStatus, b.handleStatus)
	b.bot.Handle(&btnCoins, b.handleCoins)
	b.bot.Handle(&btnRefresh, b.handleStatus)
	b.bot.Handle(&btnBack, b.handleMenu)
}

var (
	btnStartTrading = tele.Btn{Text: "▶️ Старт торговли", Unique: "start_trading"}
	btnStopTrading  = tele.Btn{Text: "⏸️ Остановить", Unique: "stop_trading"}
	btnStatus       = tele.Btn{Text: "📊 Статус", Unique: "status"}
	btnCoins        = tele.Btn{Text: "🪙 Монеты", Unique: "coins"}
	btnRefresh      = tele.Btn{Text: "🔄 Обновить", Unique: "refresh"}
	btnBack         = tele.Btn{Text: "🔙 Назад", Unique: "back"}
)

func (b *Bot) handleMenu(c tele.Context) error {
	menu := &tele.ReplyMarkup{}

	var toggleBtn tele.Btn
	if b.shared.Running() {
		toggleBtn = btnStopTrading
	} else {
		toggleBtn = btnStartTrading
	}

	menu.Inline(
		menu.Row(toggleBtn),
		menu.Row(btnStatus, btnCoins),
	)

	status := "⏸️ Остановлен"
	if b.shared.Running() {
		status = "▶️ Активен"
	}

	snap := b.shared.Snapshot()
	msg := fmt.Sprintf(`🤖 *Торговый бот* (%s, %s)

🔄 Статус: %s
🪙 Монета: %s

Выберите действие:`, snap.Exchange, snap.Mode, status, snap.Coin)

	return c.Send(msg, menu, tele.ModeMarkdown)
}

func (b *Bot) handleStartTrading(c tele.Context) error {
	b.shared.SetRunning(true)
	b.shared.Logf("▶️ Trading enabled via Telegram")
	return b.handleMenu(c)
}

func (b *Bot) handleStopTrading(c tele.Context) error {
	b.shared.SetRunning(false)
	b.shared.Logf("⏸️ Trading paused via Telegram")
	return b.handleMenu(c)
}

func (b *Bot) handleStatus(c tele.Context) error {
	snap := b.shared.Snapshot()

	status := "⏸️ Остановлен"
	if snap.Halted {
		status = "🚨 Остановлен (просадка)"
	} else if snap.Running {
		status = "▶️ Активен"
	}

	pnl := snap.TotalUSD - snap.Balance.InitialTotalUSD
	plEmoji := "🟢"
	if pnl < 0 {
		plEmoji = "🔴"
	} else if pnl == 0 {
		plEmoji = "🟡"
	}

	cs := snap.Balance.Coins[snap.Coin]
	position := "нет позиции"
	if cs != nil && cs.PositionEntryPrice != nil {
		position = fmt.Sprintf("%.4f %s со входом %.4f", cs.Amount, snap.Coin, *cs.PositionEntryPrice)
	}

	msg := fmt.Sprintf(`📊 *Статус бота*

🔄 Статус: %s
🪙 Монета: %s
💰 USDT: %.2f
📦 Позиция: %s
💎 Всего: %.2f USD (пик %.2f)
%s P&L: %+.2f USD
🎯 Уверенность: %.2f (%s)
🔁 Циклов: %d | Сделок: %d

🕐 Время работы: %s
🕐 Обновлено: %s`,
		status,
		snap.Coin,
		snap.Balance.USDT,
		position,
		snap.TotalUSD,
		snap.Balance.PeakTotalUSD,
		plEmoji,
		pnl,
		snap.LastConfidence,
		snap.LastAction,
		snap.CycleCount,
		snap.TradeCount,
		formatUptime(time.Since(snap.StartedAt)),
		time.Now().Format("15:04:05"),
	)

	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnRefresh),
		menu.Row(btnBack),
	)

	return c.Send(msg, menu, tele.ModeMarkdown)
}

func (b *Bot) handleCoins(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, coin := range b.pairs.SupportedCoins() {
		btn := menu.Data("🪙 "+coin, "coin_"+coin, coin)
		b.bot.Handle(&btn, b.handleSelectCoin)
		rows = append(rows, menu.Row(btn))
	}
	rows = append(rows, menu.Row(btnBack))
	menu.Inline(rows...)

	return c.Send(fmt.Sprintf("🪙 Текущая монета: *%s*\nВыберите новую:", b.shared.Coin()),
		menu, tele.ModeMarkdown)
}

func (b *Bot) handleSelectCoin(c tele.Context) error {
	coin, err := b.pairs.ValidateCoin(c.Data())
	if err != nil {
		return c.Send("⛔ " + err.Error())
	}
	b.shared.SetCoin(coin)
	b.shared.Logf("🪙 Selected coin switched to %s via Telegram", coin)
	return c.Send(fmt.Sprintf("✅ Торгуем %s", coin))
}

// NotifyTrade implements engine.Notifier
func (b *Bot) NotifyTrade(coin, action string, volume, price, confidence float64) {
	emoji := "📈"
	if action == "sell" {
		emoji = "📉"
	}
	msg := fmt.Sprintf(`%s *СДЕЛКА*

*%s %s*
📊 Объём: %.6f
💵 Цена: %.4f
🎯 Уверенность: %.2f

⏰ %s`,
		emoji, action, coin, volume, price, confidence,
		time.Now().Format("15:04:05"))

	b.send(msg)
}

// NotifyRiskExit implements engine.Notifier
func (b *Bot) NotifyRiskExit(coin, reason string, volume, price float64) {
	msg := fmt.Sprintf(`🚨 *ЗАЩИТНЫЙ ВЫХОД* (%s)

*%s* продано %.6f по %.4f

⏰ %s`,
		reason, coin, volume, price,
		time.Now().Format("15:04:05"))

	b.send(msg)
}

func (b *Bot) send(msg string) {
	if _, err := b.bot.Send(&tele.User{ID: b.authorizedID}, msg, tele.ModeMarkdown); err != nil {
		log.Printf("⚠️ Telegram send failed: %v", err)
	}
}

func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dч %dмин", hours, minutes)
	}
	return fmt.Sprintf("%dмин", minutes)
}
