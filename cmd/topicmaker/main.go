package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/niksmo/chatshop/config"
	"github.com/niksmo/chatshop/internal/adapter"
	"github.com/niksmo/chatshop/internal/adapter/kafka"
	"github.com/niksmo/chatshop/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

const (
	partitions        = 3
	replicationFactor = 3
	deletePolicy      = "delete"
	retention         = 7 * 24 * time.Hour
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()

	cl := createClient(cfg)
	defer cl.Close()

	printStart(cfg)
	defer printComplete(time.Now())

	err := makeTopics(
		sigCtx, cl, deletePolicy, retention,
		cfg.Broker.Topics.Notifications,
	)
	if err != nil {
		printFail(err)
		return
	}
}

func createClient(cfg config.Config) *kadm.Client {
	tlsFiles := cfg.Broker.TLS
	tlsCfg, err := adapter.MakeTLSConfig(tlsFiles.CA, tlsFiles.Cert, tlsFiles.Key)
	if err != nil {
		panic(err)
	}

	opts := kafka.ClientOpts(kafka.ClientConfig{
		SeedBrokers: cfg.Broker.SeedBrokers,
		TLS:         tlsCfg,
		User:        cfg.Broker.User,
		Pass:        cfg.Broker.Pass,
	})
	cl, err := kadm.NewOptClient(opts...)
	if err != nil {
		panic(err) // develop mistake
	}
	return cl
}

func makeTopics(
	ctx context.Context,
	cl *kadm.Client,
	cleanupPolicy string,
	retention time.Duration,
	topics ...string,
) error {
	var (
		minISR      = "1"
		retentionMs = strconv.FormatInt(retention.Milliseconds(), 10)
	)

	topicConfig := map[string]*string{
		"cleanup.policy":      &cleanupPolicy,
		"min.insync.replicas": &minISR,
		"retention.ms":        &retentionMs,
	}

	responses, err := cl.CreateTopics(
		ctx,
		partitions,
		replicationFactor,
		topicConfig,
		topics...,
	)

	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		err := res.Err
		if err != nil {
			if errors.Is(res.Err, kerr.TopicAlreadyExists) {
				fmt.Printf("topic: %q already exists\n", res.Topic)
			} else {
				errs = append(errs, err)
			}
			continue
		}
		fmt.Printf("topic: %q successfully created\n", res.Topic)
	}

	return errors.Join(errs...)
}

func printStart(cfg config.Config) {
	fmt.Printf(`initializing topics...
	- %q

`,
		cfg.Broker.Topics.Notifications,
	)
}

func printComplete(start time.Time) {
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}
