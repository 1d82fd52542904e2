package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
)

var ErrTooFewOpts = errors.New("too few options")

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ClientConfig describes the broker connection. TLS and the SASL/PLAIN
// credentials are optional.
type ClientConfig struct {
	SeedBrokers []string
	Topic       string
	TLS         *tls.Config
	User        string
	Pass        string
}

// ClientOpts returns the connection options shared by producers and
// admin clients.
func ClientOpts(cfg ClientConfig) []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(cfg.SeedBrokers...)}
	if cfg.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(cfg.TLS))
	}
	if cfg.User != "" {
		auth := plain.Auth{User: cfg.User, Pass: cfg.Pass}
		opts = append(opts, kgo.SASL(auth.AsMechanism()))
	}
	return opts
}

func ProducerClientOpt(ctx context.Context, cfg ClientConfig) ProducerOpt {
	return func(opts *producerOpts) error {
		kgoOpts := append(ClientOpts(cfg),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(cfg.Topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
			kgo.AllowAutoTopicCreation(),
		)

		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerClientInstanceOpt injects a ready client.
func ProducerClientInstanceOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}
