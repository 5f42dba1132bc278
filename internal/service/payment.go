package service

import (
	"context"
	"fmt"
	"time"

	"UD_daily_rewards/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	VipPassPayload = "VIP_PASS"
	starsCurrency  = "XTR"
)

type PaymentConfig struct {
	BotToken     string
	Debug        bool
	VipPassDays  int
	VipPassPrice int
}

// botAPI is the part of tgbotapi.BotAPI the payment flow talks to.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type PaymentService struct {
	bot   botAPI
	vip   VipServiceI
	hub   *NotificationHub
	days  int
	price int
}

func NewPaymentService(config PaymentConfig, vip VipServiceI, hub *NotificationHub) (*PaymentService, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug

	return newPaymentService(bot, config, vip, hub), nil
}

func newPaymentService(bot botAPI, config PaymentConfig, vip VipServiceI, hub *NotificationHub) *PaymentService {
	return &PaymentService{
		bot:   bot,
		vip:   vip,
		hub:   hub,
		days:  config.VipPassDays,
		price: config.VipPassPrice,
	}
}

type labeledPrice struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// CreateVipInvoiceLink returns a Telegram Stars invoice link for one VIP pass.
func (s *PaymentService) CreateVipInvoiceLink() (string, error) {
	params := tgbotapi.Params{
		"title":       "VIP Pass",
		"description": fmt.Sprintf("%d days of VIP daily rewards", s.days),
		"payload":     VipPassPayload,
		"currency":    starsCurrency,
	}
	if err := params.AddInterface("prices", []labeledPrice{{Label: "VIP Pass", Amount: s.price}}); err != nil {
		return "", fmt.Errorf("error encoding prices: %w", err)
	}

	resp, err := s.bot.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("error creating invoice link: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	return link, nil
}

func (s *PaymentService) HandlePreCheckoutQuery(query *tgbotapi.PreCheckoutQuery) error {
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if query.InvoicePayload != VipPassPayload || query.Currency != starsCurrency || query.TotalAmount != s.price {
		answer.OK = false
		answer.ErrorMessage = "This offer is no longer available"
	}

	_, err := s.bot.Request(answer)
	return err
}

func (s *PaymentService) HandleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) error {
	payment := msg.SuccessfulPayment
	if payment.InvoicePayload != VipPassPayload {
		return fmt.Errorf("unknown invoice payload %q", payment.InvoicePayload)
	}

	status, err := s.vip.Grant(ctx, msg.From.ID, time.Duration(s.days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to grant vip: %w", err)
	}

	payload := map[string]any{
		"user_id":            msg.From.ID,
		"telegram_charge_id": payment.TelegramPaymentChargeID,
	}
	if status.ExpiresAt != nil {
		payload["expires_at"] = status.ExpiresAt.UTC()
	}
	s.hub.Publish(msg.From.ID, Message{Type: NotificationVipActivated, Payload: payload})

	confirmation := tgbotapi.NewMessage(msg.Chat.ID, "Thank you for your payment! VIP is active.")
	if _, err := s.bot.Send(confirmation); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}

	return nil
}

// StartPaymentListener long-polls bot updates until ctx is done.
func (s *PaymentService) StartPaymentListener(ctx context.Context) {
	log := logger.Logger()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := s.bot.GetUpdatesChan(updateConfig)
	defer s.bot.StopReceivingUpdates()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.handleUpdate(ctx, update, log)

		case <-ctx.Done():
			return
		}
	}
}

func (s *PaymentService) handleUpdate(ctx context.Context, update tgbotapi.Update, log *zap.Logger) {
	switch {
	case update.PreCheckoutQuery != nil:
		if err := s.HandlePreCheckoutQuery(update.PreCheckoutQuery); err != nil {
			log.Error("failed to handle pre-checkout query", zap.Error(err))
		}

	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		if err := s.HandleSuccessfulPayment(ctx, update.Message); err != nil {
			log.Error("failed to handle successful payment",
				zap.Int64("telegram_id", update.Message.From.ID),
				zap.Error(err))
		}
	}
}
