package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/chatshop/internal/core/domain"
	"github.com/niksmo/chatshop/internal/core/port"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	keyPrefix         = "chatshop:session:"
)

type (
	sessionJSON struct {
		UserID      string        `json:"user_id"`
		Handle      string        `json:"handle,omitempty"`
		Destination string        `json:"destination,omitempty"`
		Items       []itemJSON    `json:"items"`
		Checkout    *checkoutJSON `json:"checkout,omitempty"`
		UpdatedAt   time.Time     `json:"updated_at"`
	}

	itemJSON struct {
		ProductID string          `json:"product_id"`
		Name      string          `json:"name"`
		Price     decimal.Decimal `json:"price"`
		Weight    string          `json:"weight"`
		Qty       int             `json:"qty"`
	}

	checkoutJSON struct {
		State            string    `json:"state"`
		Name             string    `json:"name,omitempty"`
		Phone            string    `json:"phone,omitempty"`
		Address          string    `json:"address,omitempty"`
		Postal           string    `json:"postal,omitempty"`
		DiscountCode     string    `json:"discount_code,omitempty"`
		DiscountAttempts int       `json:"discount_attempts,omitempty"`
		Notes            string    `json:"notes,omitempty"`
		StartedAt        time.Time `json:"started_at"`
	}
)

func toSessionJSON(s domain.Session) sessionJSON {
	v := sessionJSON{
		UserID:      s.UserID,
		Handle:      s.Handle,
		Destination: string(s.Destination),
		Items:       make([]itemJSON, 0, len(s.Cart.Items)),
		UpdatedAt:   s.UpdatedAt,
	}
	for _, it := range s.Cart.Items {
		v.Items = append(v.Items, itemJSON(it))
	}
	if co := s.Checkout; co != nil {
		v.Checkout = &checkoutJSON{
			State:            string(co.State),
			Name:             co.Name,
			Phone:            co.Phone,
			Address:          co.Address,
			Postal:           co.Postal,
			DiscountCode:     co.DiscountCode,
			DiscountAttempts: co.DiscountAttempts,
			Notes:            co.Notes,
			StartedAt:        co.StartedAt,
		}
	}
	return v
}

func (v sessionJSON) toDomain() domain.Session {
	s := domain.Session{
		UserID:      v.UserID,
		Handle:      v.Handle,
		Destination: domain.Destination(v.Destination),
		UpdatedAt:   v.UpdatedAt,
	}
	for _, it := range v.Items {
		if it.Qty > 0 {
			s.Cart.Items = append(s.Cart.Items, domain.CartItem(it))
		}
	}
	if co := v.Checkout; co != nil {
		s.Checkout = &domain.CheckoutSession{
			State:            domain.CheckoutState(co.State),
			Name:             co.Name,
			Phone:            co.Phone,
			Address:          co.Address,
			Postal:           co.Postal,
			DiscountCode:     co.DiscountCode,
			DiscountAttempts: co.DiscountAttempts,
			Notes:            co.Notes,
			StartedAt:        co.StartedAt,
		}
	}
	return s
}

type ClientConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      *tls.Config
}

// NewClient connects to Redis and checks it answers.
func NewClient(ctx context.Context, cfg ClientConfig) (*goredis.Client, error) {
	const op = "redis.NewClient"

	client := goredis.NewClient(&goredis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: cfg.TLS,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}
	slog.Info("redis is available", "op", op, "addr", cfg.Addr)
	return client, nil
}

var _ port.SessionStore = (*SessionStore)(nil)

// SessionStore keeps one JSON document per user. Every write refreshes
// the key's TTL, so a session expires after ttl without activity.
type SessionStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewSessionStore(client goredis.Cmdable, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return SessionStore{client: client, ttl: ttl}
}

// Load returns a fresh session when none is stored. A document that no
// longer decodes is dropped and treated the same way.
func (s SessionStore) Load(ctx context.Context, userID string) (domain.Session, error) {
	const op = "SessionStore.Load"
	log := slog.With("op", op)

	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.NewSession(userID), nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteService, err)
	}

	var v sessionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn("drop undecodable session", "userID", userID, "err", err)
		if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
			log.Error("failed to drop session", "userID", userID, "err", err)
		}
		return domain.NewSession(userID), nil
	}

	sess := v.toDomain()
	sess.UserID = userID
	return sess, nil
}

func (s SessionStore) Save(ctx context.Context, sess domain.Session) error {
	const op = "SessionStore.Save"

	data, err := json.Marshal(toSessionJSON(sess))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.client.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteService, err)
	}
	return nil
}

func (s SessionStore) Delete(ctx context.Context, userID string) error {
	const op = "SessionStore.Delete"

	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteService, err)
	}
	return nil
}

func sessionKey(userID string) string {
	return keyPrefix + userID
}
