package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"serverwatch/internal/config"
	"serverwatch/internal/modules/monitoring/types"
)

// testBroker accepts connections and acknowledges CONNECT, (UN)SUBSCRIBE,
// PINGREQ and QoS 1 PUBLISH packets. Published payloads are recorded.
type testBroker struct {
	ln        net.Listener
	published chan *packets.PublishPacket
	wg        sync.WaitGroup
}

func startTestBroker(t *testing.T) *testBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &testBroker{ln: ln, published: make(chan *packets.PublishPacket, 64)}
	b.wg.Add(1)
	go b.accept()
	t.Cleanup(func() {
		_ = ln.Close()
		b.wg.Wait()
	})
	return b
}

func (b *testBroker) config() config.Config {
	cfg := testConfig()
	cfg.MQTTBroker = "127.0.0.1"
	cfg.MQTTPort = b.ln.Addr().(*net.TCPAddr).Port
	return cfg
}

func (b *testBroker) accept() {
	defer b.wg.Done()
	for {
		c, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go b.serve(c)
	}
}

func (b *testBroker) serve(c net.Conn) {
	defer b.wg.Done()
	defer c.Close()
	for {
		cp, err := packets.ReadPacket(c)
		if err != nil {
			return
		}
		var reply packets.ControlPacket
		switch p := cp.(type) {
		case *packets.ConnectPacket:
			reply = packets.NewControlPacket(packets.Connack)
		case *packets.PublishPacket:
			b.published <- p
			if p.Qos > 0 {
				ack := packets.NewControlPacket(packets.Puback).(*packets.PubackPacket)
				ack.MessageID = p.MessageID
				reply = ack
			}
		case *packets.SubscribePacket:
			ack := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
			ack.MessageID = p.MessageID
			ack.ReturnCodes = p.Qoss
			reply = ack
		case *packets.UnsubscribePacket:
			ack := packets.NewControlPacket(packets.Unsuback).(*packets.UnsubackPacket)
			ack.MessageID = p.MessageID
			reply = ack
		case *packets.PingreqPacket:
			reply = packets.NewControlPacket(packets.Pingresp)
		case *packets.DisconnectPacket:
			return
		}
		if reply != nil {
			if err := reply.Write(c); err != nil {
				return
			}
		}
	}
}

func TestPublisher_PublishRightAfterConnect(t *testing.T) {
	broker := startTestBroker(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	candidate := types.Candidate{Petugas: "Sari", Suhu: "22.5", StatusAC: "Normal"}

	for i := range 20 {
		p := NewPublisher(broker.config(), logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := p.Connect(ctx); err != nil {
			cancel()
			t.Fatalf("attempt %d: Connect: %v", i, err)
		}
		err := p.Publish(ctx, candidate)
		cancel()
		p.Disconnect()
		if err != nil {
			t.Fatalf("attempt %d: Publish right after Connect: %v", i, err)
		}

		select {
		case got := <-broker.published:
			if got.TopicName != "serverroom/readings" {
				t.Errorf("topic = %q", got.TopicName)
			}
			var c types.Candidate
			if err := json.Unmarshal(got.Payload, &c); err != nil || c != candidate {
				t.Errorf("payload = %s (%v)", got.Payload, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("attempt %d: broker received nothing", i)
		}
	}
}

func TestConnect_unreachableBrokerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := testConfig()
	cfg.MQTTBroker = "127.0.0.1"
	cfg.MQTTPort = ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect = %v; want context.DeadlineExceeded", err)
	}
	if p.IsConnected() {
		t.Error("IsConnected after failed Connect")
	}
}

func TestSubscriber_ConnectSubscribes(t *testing.T) {
	broker := startTestBroker(t)
	s := NewSubscriber(broker.config(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer s.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.IsConnected() {
		t.Fatal("IsConnected = false right after Connect")
	}
}
