package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const NotificationSchemaTextV1 = `{
	"type": "record",
	"namespace": "chatshop.notifications",
	"name": "notification",
	"fields": [
		{"name": "kind", "type": "string"},
		{"name": "user_id", "type": "string", "default": ""},
		{"name": "order_id", "type": "string", "default": ""},
		{"name": "handle", "type": "string", "default": ""},
		{"name": "customer", "type": "string", "default": ""},
		{"name": "phone", "type": "string", "default": ""},
		{"name": "address", "type": "string", "default": ""},
		{"name": "destination", "type": "string", "default": ""},
		{"name": "notes", "type": "string", "default": ""},
		{"name": "product_id", "type": "string", "default": ""},
		{"name": "product_name", "type": "string", "default": ""},
		{"name": "stock", "type": "long", "default": 0},
		{"name": "items", "type": {"type": "array", "items": {
			"type": "record",
			"name": "item",
			"fields": [
				{"name": "product_id", "type": "string"},
				{"name": "name", "type": "string"},
				{"name": "qty", "type": "long"},
				{"name": "price", "type": "string"}
			]
		}}, "default": []},
		{"name": "discount_code", "type": "string", "default": ""},
		{"name": "discount", "type": "string", "default": "0"},
		{"name": "total", "type": "string", "default": "0"},
		{"name": "text", "type": "string", "default": ""},
		{"name": "created_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

// Notification kinds.
const (
	KindLowStock     = "low_stock"
	KindNewOrder     = "new_order"
	KindError        = "error"
	KindCartReminder = "cart_reminder"
)

type (
	// NotificationV1 is one admin alert or user reminder. Money fields are
	// decimal strings.
	NotificationV1 struct {
		Kind         string               `avro:"kind"`
		UserID       string               `avro:"user_id"`
		OrderID      string               `avro:"order_id"`
		Handle       string               `avro:"handle"`
		Customer     string               `avro:"customer"`
		Phone        string               `avro:"phone"`
		Address      string               `avro:"address"`
		Destination  string               `avro:"destination"`
		Notes        string               `avro:"notes"`
		ProductID    string               `avro:"product_id"`
		ProductName  string               `avro:"product_name"`
		Stock        int64                `avro:"stock"`
		Items        []NotificationItemV1 `avro:"items"`
		DiscountCode string               `avro:"discount_code"`
		Discount     string               `avro:"discount"`
		Total        string               `avro:"total"`
		Text         string               `avro:"text"`
		CreatedAt    time.Time            `avro:"created_at"`
	}

	NotificationItemV1 struct {
		ProductID string `avro:"product_id"`
		Name      string `avro:"name"`
		Qty       int64  `avro:"qty"`
		Price     string `avro:"price"`
	}
)

// NotificationV1Avro panics when the schema text is broken.
func NotificationV1Avro() avro.Schema {
	return avro.MustParse(NotificationSchemaTextV1)
}
