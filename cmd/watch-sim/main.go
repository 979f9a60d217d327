// watch-sim: simulated smartwatch for local runs.
// Streams synthetic motion readings to the gesture service device endpoint
// and prints the status updates it sends back.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gesture/internal/log"
	"github.com/teslashibe/go-gesture/pkg/protocol"
	"github.com/teslashibe/go-gesture/pkg/sensor"
	"github.com/teslashibe/go-gesture/pkg/simulator"
)

var (
	server   = flag.String("server", "ws://localhost:8080", "Gesture service base URL")
	deviceID = flag.String("id", "", "Device ID (default: random)")
	motion   = flag.String("motion", "wave", "Motion pattern: still, wave, shake, circle")
	batch    = flag.Duration("batch", 0, "Batch readings over this interval (0 sends each reading)")
	noise    = flag.Float64("noise", 0.01, "Noise amplitude")
	duration = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	logLevel = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if err := run(); err != nil {
		log.Error("watch-sim exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	m, err := simulator.ParseMotion(*motion)
	if err != nil {
		return err
	}
	id := *deviceID
	if id == "" {
		id = "sim-" + uuid.New().String()[:8]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	url := fmt.Sprintf("%s/ws/device/%s", *server, id)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Info("connected", "url", url, "motion", m)

	cfg := simulator.DefaultConfig()
	cfg.Motion = m
	cfg.Noise = *noise
	cfg.Seed = uint64(time.Now().UnixNano())
	sim := simulator.New(cfg)
	go sim.Run(ctx)

	go readLoop(conn)

	sent, err := stream(ctx, conn, sim)
	produced, dropped := sim.Stats()
	log.Info("stopped", "messages_sent", sent, "readings", produced, "dropped", dropped)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return err
}

// stream forwards simulator readings until the simulator stops.
func stream(ctx context.Context, conn *websocket.Conn, sim *simulator.Simulator) (int, error) {
	sent := 0
	write := func(msg *protocol.Message, err error) error {
		if err != nil {
			return err
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		sent++
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if *batch <= 0 {
		for ev := range sim.Out {
			if err := write(protocol.NewVectorMessage(ev.Channel, ev.Values)); err != nil {
				return sent, err
			}
		}
		return sent, nil
	}

	ticker := time.NewTicker(*batch)
	defer ticker.Stop()
	var pending []sensor.Event
	for {
		select {
		case ev, ok := <-sim.Out:
			if !ok {
				return sent, nil
			}
			pending = append(pending, ev)
		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			if err := write(protocol.NewBatchMessage(pending)); err != nil {
				return sent, err
			}
			pending = pending[:0]
		case <-ctx.Done():
			return sent, nil
		}
	}
}

// readLoop prints what the service sends back.
func readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("unparseable message", "error", err)
			continue
		}
		switch msg.Type {
		case protocol.TypeStatus:
			if st, err := msg.GetStatusData(); err == nil {
				log.Info("status", "state", st.State, "windows", st.Windows, "result", st.Prediction)
			}
		case protocol.TypeError:
			if e, err := msg.GetErrorData(); err == nil {
				log.Warn("rejected", "message", e.Message)
			}
		default:
			log.Debug("message", "type", msg.Type)
		}
	}
}
