package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/BrunoLenon/veipecas2025/messaging"
	"github.com/BrunoLenon/veipecas2025/models"
)

const OrderCreatedQueue = "order.created"

// OrderPublisher notifies the order-management workflow about new orders.
// Publishing is best effort; a failed publish must never fail the checkout.
type OrderPublisher struct {
	mq *messaging.RabbitMQ
}

func NewOrderPublisher(mq *messaging.RabbitMQ) (*OrderPublisher, error) {
	if err := mq.DeclareQueue(OrderCreatedQueue); err != nil {
		return nil, err
	}
	return &OrderPublisher{mq: mq}, nil
}

type OrderCreatedEvent struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      string           `json:"user_id"`
	Total       float64          `json:"total"`
	Items       []OrderItemEvent `json:"items"`
}

type OrderItemEvent struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PublishOrderCreated publishes an order.created event.
func (p *OrderPublisher) PublishOrderCreated(order *models.Order) error {
	event := OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.mq.Publish(OrderCreatedQueue, data)
}
