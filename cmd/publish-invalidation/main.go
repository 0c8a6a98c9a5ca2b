// Command publish-invalidation sends one listing-change or purge event to the
// invalidation topic.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/listing-search/internal/core/config"
	"github.com/mohammed-shakir/listing-search/internal/invalidation"
	"github.com/mohammed-shakir/listing-search/internal/logger"
	"github.com/mohammed-shakir/listing-search/pkg/invalidation/kafka"
)

type options struct {
	Listing string
	Op      string
	Version uint64
	Lat     float64
	Lng     float64
	PrevLat float64
	PrevLng float64
	Cell    string
	Keys    string
	Cells   string
	Source  string
}

func main() {
	var o options
	flag.StringVar(&o.Listing, "listing", "", "listing id")
	flag.StringVar(&o.Op, "op", "update", "create|update|delete")
	flag.Uint64Var(&o.Version, "version", 0, "event version (defaults to now in ms)")
	flag.Float64Var(&o.Lat, "lat", math.NaN(), "listing latitude")
	flag.Float64Var(&o.Lng, "lng", math.NaN(), "listing longitude")
	flag.Float64Var(&o.PrevLat, "prev-lat", math.NaN(), "previous latitude of a moved listing")
	flag.Float64Var(&o.PrevLng, "prev-lng", math.NaN(), "previous longitude of a moved listing")
	flag.StringVar(&o.Cell, "cell", "", "H3 cell of the listing, instead of lat/lng")
	flag.StringVar(&o.Keys, "keys", "", "purge: comma-separated cached search keys")
	flag.StringVar(&o.Cells, "cells", "", "purge: comma-separated index cells")
	flag.StringVar(&o.Source, "source", "cli", "purge: source name used for version ordering")
	topic := flag.String("topic", "", "topic (overrides INVALIDATION_TOPIC)")
	flag.Parse()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Service: "publish-invalidation"}, os.Stderr)
	log := logger.NewSlog(&zl)

	if *topic == "" {
		*topic = cfg.Invalidation.Topic
	}
	now := time.Now().UTC()
	key, payload, err := buildMessage(o, now)
	if err != nil {
		log.Error("invalid event", "err", err)
		os.Exit(2)
	}

	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(cfg.Invalidation.Brokers, sc)
	if err != nil {
		log.Error("producer create", "brokers", cfg.Invalidation.Brokers, "err", err)
		os.Exit(1)
	}
	defer func() { _ = prod.Close() }()

	part, off, err := prod.SendMessage(&sarama.ProducerMessage{
		Topic: *topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		log.Error("send", "topic", *topic, "err", err)
		_ = prod.Close()
		os.Exit(1)
	}
	log.Info("published", "topic", *topic, "key", key, "partition", part, "offset", off)
	fmt.Println(string(payload))
}

// buildMessage returns the partition key and JSON body. Listing events are
// keyed by listing id so one listing's versions stay on one partition.
func buildMessage(o options, now time.Time) (string, []byte, error) {
	version := o.Version
	if version == 0 {
		version = uint64(now.UnixMilli())
	}

	if o.Keys != "" || o.Cells != "" {
		if o.Listing != "" {
			return "", nil, errors.New("-listing cannot be combined with -keys/-cells")
		}
		ev := kafka.WireEvent{
			Keys:    splitList(o.Keys),
			Cells:   splitList(o.Cells),
			Source:  o.Source,
			Version: version,
			TS:      now,
			Op:      "purge",
		}
		b, err := json.Marshal(ev)
		return "wire:" + o.Source, b, err
	}

	ev := invalidation.Event{
		Version:   version,
		Op:        o.Op,
		ListingID: strings.TrimSpace(o.Listing),
		TS:        now,
		Lat:       given(o.Lat),
		Lng:       given(o.Lng),
		PrevLat:   given(o.PrevLat),
		PrevLng:   given(o.PrevLng),
		Cell:      strings.TrimSpace(o.Cell),
	}
	if err := ev.Validate(); err != nil {
		return "", nil, err
	}
	b, err := json.Marshal(ev)
	return ev.ListingID, b, err
}

func given(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
