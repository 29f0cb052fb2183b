package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"voicelab/audio"
	"voicelab/internal/config"
	"voicelab/review"
	"voicelab/session"
	"voicelab/store"
)

// jsonClient минимальный gRPC JSON клиент для Control стрима
type jsonClient struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
}

func newJSONClient(t *testing.T, addr string) *jsonClient {
	t.Helper()

	conn, err := grpc.Dial(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			if len(addr) > 5 && addr[:5] == "unix:" {
				return net.DialTimeout("unix", addr[5:], 3*time.Second)
			}
			return net.DialTimeout("tcp", addr, 3*time.Second)
		}),
	)
	if err != nil {
		t.Fatalf("dial grpc: %v", err)
	}

	stream, err := conn.NewStream(context.Background(), &_Control_serviceDesc.Streams[0], "/voicelab.Control/Stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	return &jsonClient{conn: conn, stream: stream}
}

func (c *jsonClient) send(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return c.stream.SendMsg(payload)
}

func (c *jsonClient) recv(timeout time.Duration) (Message, error) {
	var msg Message
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	recvDone := make(chan error, 1)
	go func() { recvDone <- c.stream.RecvMsg(&msg) }()
	select {
	case err := <-recvDone:
		return msg, err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (c *jsonClient) close() {
	_ = c.stream.CloseSend()
	_ = c.conn.Close()
}

// startTestServer запускает минимальный сервер: локальное хранилище,
// gRPC на unix сокете, без HTTP
func startTestServer(t *testing.T, socketPath string) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:     "0",
		GRPCAddr: "unix:" + socketPath,
	}

	st, err := store.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	reg, err := store.LoadRegistry(context.Background(), st)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	// Reviewer указывает в никуда: в тестах сценарий review не гоняем
	s := NewServer(cfg, st, reg, session.NewSaver(st), review.NewReviewer("http://127.0.0.1:1", "none"))

	go s.startGRPCServer()
	time.Sleep(300 * time.Millisecond) // дать сокету создаться
	return s
}

func sineWAVBase64(seconds float64, rate int) string {
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5 * float32(math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	return base64.StdEncoding.EncodeToString(audio.EncodeWAV(samples, rate))
}

func TestControlStream_LoginAndTasks(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.Config.GRPCAddr)
	defer client.close()

	if err := client.send(Message{Type: "login", Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("send login: %v", err)
	}
	msg, err := client.recv(3 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "login_ok" || !msg.IsNew || msg.FolderID == "" {
		t.Fatalf("login reply = %+v", msg)
	}

	if err := client.send(Message{Type: "list_tasks"}); err != nil {
		t.Fatalf("send list_tasks: %v", err)
	}
	msg, err = client.recv(3 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "tasks_list" || len(msg.Tasks) != 8 {
		t.Fatalf("tasks reply = %+v", msg)
	}
}

func TestControlStream_SaveSessionAndTrend(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.Config.GRPCAddr)
	defer client.close()

	if err := client.send(Message{Type: "login", Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("send login: %v", err)
	}
	if msg, err := client.recv(3 * time.Second); err != nil || msg.Type != "login_ok" {
		t.Fatalf("login: %+v, %v", msg, err)
	}

	wav := sineWAVBase64(1.0, 16000)
	if err := client.send(Message{Type: "save_session", Task: "Rainbow passage", Data: wav}); err != nil {
		t.Fatalf("send save_session: %v", err)
	}
	msg, err := client.recv(15 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "session_saved" {
		t.Fatalf("save reply = %+v", msg)
	}
	if len(msg.Features) == 0 || len(msg.Plots) != 3 {
		t.Errorf("features=%d plots=%d", len(msg.Features), len(msg.Plots))
	}

	if err := client.send(Message{Type: "trend", Task: "Rainbow passage"}); err != nil {
		t.Fatalf("send trend: %v", err)
	}
	msg, err = client.recv(5 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "trend_result" || msg.Table == nil {
		t.Fatalf("trend reply = %+v", msg)
	}
	if len(msg.Table.Sessions) != 1 {
		t.Errorf("sessions = %v", msg.Table.Sessions)
	}
}

func TestControlStream_SaveSegment(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.Config.GRPCAddr)
	defer client.close()

	if err := client.send(Message{Type: "login", Username: "carol", Email: "carol@example.com"}); err != nil {
		t.Fatalf("send login: %v", err)
	}
	if msg, err := client.recv(3 * time.Second); err != nil || msg.Type != "login_ok" {
		t.Fatalf("login: %+v, %v", msg, err)
	}

	req := Message{
		Type:  "save_segment",
		PID:   "P001",
		Date:  "2024-03-15",
		Start: 0.25,
		End:   0.75,
		Data:  sineWAVBase64(1.0, 16000),
	}
	if err := client.send(req); err != nil {
		t.Fatalf("send save_segment: %v", err)
	}
	msg, err := client.recv(5 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "segment_saved" || msg.FileID == "" {
		t.Fatalf("reply = %+v", msg)
	}
}

func TestControlStream_RequiresLogin(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ctl.sock")
	s := startTestServer(t, socket)

	client := newJSONClient(t, s.Config.GRPCAddr)
	defer client.close()

	if err := client.send(Message{Type: "save_session", Task: "Rainbow passage", Data: ""}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg, err := client.recv(3 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if msg.Type != "error" || msg.Error == "" {
		t.Fatalf("reply = %+v", msg)
	}
}
