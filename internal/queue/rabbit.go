package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"remidi/backend/config"
	"remidi/backend/internal/dto"
)

// channel amqp.Channel 中发布者用到的部分
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 将新通知事件投递到 RabbitMQ，供推送等下游服务消费
type Publisher struct {
	conn   *amqp.Connection
	ch     channel
	cfg    config.RabbitMQConfig
	logger *zap.Logger
}

// NewPublisher 连接 RabbitMQ 并声明通知交换机
func NewPublisher(cfg *config.RabbitMQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 rabbitmq 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("创建 rabbitmq channel 失败: %w", err)
	}

	p, err := newPublisher(ch, cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn

	logger.Info("RabbitMQ 连接成功", zap.String("exchange", cfg.Exchange))
	return p, nil
}

func newPublisher(ch channel, cfg *config.RabbitMQConfig, logger *zap.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("声明交换机 %s 失败: %w", cfg.Exchange, err)
	}
	return &Publisher{ch: ch, cfg: *cfg, logger: logger}, nil
}

// Notify 投递通知事件；只有新通知会被投递，未读数变更仅推送给在线客户端
func (p *Publisher) Notify(ctx context.Context, event *dto.NotificationEvent) error {
	if event == nil || event.Kind != dto.NotificationEventCreated {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化通知事件失败: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         event.Kind,
		Headers:      amqp.Table{"user_id": event.UserID},
	}
	if event.Notification != nil {
		msg.MessageId = event.Notification.ID
	}

	if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("投递通知事件失败: %w", err)
	}
	p.logger.Debug("通知事件已投递",
		zap.String("user_id", event.UserID),
		zap.String("message_id", msg.MessageId),
	)
	return nil
}

// Close 关闭 channel 与连接
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
