package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"voicelab/analysis"
	"voicelab/audio"
	"voicelab/internal/config"
	"voicelab/review"
	"voicelab/session"
	"voicelab/store"
	"voicelab/trend"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Config   *config.Config
	Store    store.Store
	Registry *store.Registry
	Saver    *session.Saver
	Reviewer *review.Reviewer
}

func NewServer(cfg *config.Config, st store.Store, reg *store.Registry, saver *session.Saver, rev *review.Reviewer) *Server {
	return &Server{
		Config:   cfg,
		Store:    st,
		Registry: reg,
		Saver:    saver,
		Reviewer: rev,
	}
}

func (s *Server) Start() {
	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/api/trend.csv", s.handleTrendCSV)

	go s.startGRPCServer()

	log.Printf("Backend listening on :%s", s.Config.Port)
	if err := http.ListenAndServe(":"+s.Config.Port, nil); err != nil {
		log.Fatal("ListenAndServe:", err)
	}
}

// connState состояние одного подключения: кто залогинен
type connState struct {
	userFolderID string
	username     string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade:", err)
		return
	}
	defer conn.Close()

	// WriteJSON не потокобезопасен, сериализуем записи в соединение
	var writeMu sync.Mutex
	send := func(msg Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	state := &connState{}
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Println("Read:", err)
			break
		}
		s.processMessage(r.Context(), send, state, msg)
	}
}

func (s *Server) processMessage(ctx context.Context, send func(Message) error, state *connState, msg Message) {
	fail := func(err error) {
		send(Message{Type: "error", Error: err.Error()})
	}

	switch msg.Type {
	case "login":
		if msg.Email == "" {
			fail(fmt.Errorf("email is required"))
			return
		}
		folderID, isNew, err := s.Registry.Login(ctx, msg.Username, msg.Email)
		if err != nil {
			fail(err)
			return
		}
		state.userFolderID = folderID
		state.username = msg.Username
		send(Message{Type: "login_ok", FolderID: folderID, IsNew: isNew})

	case "list_tasks":
		send(Message{Type: "tasks_list", Tasks: session.Tasks})

	case "analyze":
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			fail(fmt.Errorf("data is not valid base64: %w", err))
			return
		}
		a, err := session.Analyze(raw, analysis.ProfileForTask(msg.Task))
		if err != nil {
			fail(err)
			return
		}
		send(Message{
			Type:     "analysis_result",
			Task:     msg.Task,
			Features: featureValues(a.Result.Record),
			Plots:    encodePlots(a.Plots),
		})

	case "save_session":
		if state.userFolderID == "" {
			fail(fmt.Errorf("not logged in"))
			return
		}
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			fail(fmt.Errorf("data is not valid base64: %w", err))
			return
		}
		a, err := session.Analyze(raw, analysis.ProfileForTask(msg.Task))
		if err != nil {
			fail(err)
			return
		}
		folderID, err := s.Saver.SaveSessionAnalysis(ctx, state.userFolderID, msg.Task, raw, a)
		if err != nil {
			fail(err)
			return
		}
		send(Message{
			Type:     "session_saved",
			FolderID: folderID,
			Features: featureValues(a.Result.Record),
			Plots:    encodePlots(a.Plots),
		})

	case "task_report":
		if state.userFolderID == "" {
			fail(fmt.Errorf("not logged in"))
			return
		}
		report, err := s.Saver.RunTaskReport(ctx, state.userFolderID, msg.PID, msg.Date, msg.Task)
		if err != nil {
			fail(err)
			return
		}
		send(Message{
			Type:          "report_ready",
			PID:           msg.PID,
			Date:          msg.Date,
			Task:          msg.Task,
			AlreadyExists: report.AlreadyExists,
			Features:      featureValues(report.Record),
			Plots:         encodePlots(report.Plots),
		})

	case "trend":
		taskFolderID, err := s.resolveTaskFolder(ctx, state, msg.PID, msg.Task)
		if err != nil {
			fail(err)
			return
		}
		tt, err := trend.FetchTaskTrend(ctx, s.Store, taskFolderID)
		if err != nil {
			fail(err)
			return
		}
		send(Message{
			Type:      "trend_result",
			Task:      msg.Task,
			Table:     tt.Table,
			Summaries: tt.Summaries,
			Warnings:  tt.Warnings,
		})

	case "session_report":
		taskFolderID, err := s.resolveTaskFolder(ctx, state, msg.PID, msg.Task)
		if err != nil {
			fail(err)
			return
		}
		rows, audioIDs, warnings, err := trend.FetchSessionFeatures(ctx, s.Store, taskFolderID)
		if err != nil {
			fail(err)
			return
		}
		if len(rows) == 0 {
			fail(&store.NotFoundError{What: "sessions for task " + msg.Task})
			return
		}
		table := trend.BuildTable(rows)
		send(Message{
			Type:      "session_report",
			Task:      msg.Task,
			Table:     table,
			Summaries: trend.Summarize(table),
			Warnings:  warnings,
			Audio:     audioIDs,
		})

	case "save_segment":
		if state.userFolderID == "" {
			fail(fmt.Errorf("not logged in"))
			return
		}
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			fail(fmt.Errorf("data is not valid base64: %w", err))
			return
		}
		clip, err := audio.Decode(raw)
		if err != nil {
			fail(err)
			return
		}
		fileID, err := s.Saver.SaveSegment(ctx, state.userFolderID, msg.PID, msg.Date, msg.Start, msg.End, clip)
		if err != nil {
			fail(err)
			return
		}
		send(Message{Type: "segment_saved", FileID: fileID, PID: msg.PID, Date: msg.Date})

	case "review":
		// Пришло аудио — рецензируем один клип, без обращения к хранилищу
		if msg.Data != "" {
			raw, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				fail(fmt.Errorf("data is not valid base64: %w", err))
				return
			}
			a, err := session.Analyze(raw, analysis.ProfileForTask(msg.Task))
			if err != nil {
				fail(err)
				return
			}
			text, err := s.Reviewer.ReviewRecord(ctx, msg.Task, msg.Reference, review.SerializeRecord(a.Result.Record))
			if err != nil {
				fail(err)
				return
			}
			send(Message{Type: "review_result", Task: msg.Task, Review: text})
			return
		}

		taskFolderID, err := s.resolveTaskFolder(ctx, state, msg.PID, msg.Task)
		if err != nil {
			fail(err)
			return
		}
		tt, err := trend.FetchTaskTrend(ctx, s.Store, taskFolderID)
		if err != nil {
			fail(err)
			return
		}
		text, err := s.Reviewer.ReviewTrend(ctx, msg.Task, msg.Reference, review.SerializeTrend(tt))
		if err != nil {
			fail(err)
			return
		}
		send(Message{Type: "review_result", Task: msg.Task, Review: text})

	default:
		fail(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

// resolveTaskFolder находит папку задачи под папкой пользователя,
// с опциональным уровнем pid между ними
func (s *Server) resolveTaskFolder(ctx context.Context, state *connState, pid, task string) (string, error) {
	if state.userFolderID == "" {
		return "", fmt.Errorf("not logged in")
	}
	if !session.IsValidTask(task) {
		return "", fmt.Errorf("unknown task %q", task)
	}

	parent := state.userFolderID
	if pid != "" {
		e, found, err := store.FindChild(ctx, s.Store, parent, pid)
		if err != nil {
			return "", err
		}
		if !found {
			return "", &store.NotFoundError{What: "folder " + pid}
		}
		parent = e.ID
	}

	e, found, err := store.FindChild(ctx, s.Store, parent, task)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &store.NotFoundError{What: "task folder " + task}
	}
	return e.ID, nil
}

// handleTrendCSV выгрузка тренда в wide CSV: ?folder=<id папки задачи>
func (s *Server) handleTrendCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	folderID := r.URL.Query().Get("folder")
	if folderID == "" {
		http.Error(w, "folder query parameter is required", http.StatusBadRequest)
		return
	}

	tt, err := trend.FetchTaskTrend(r.Context(), s.Store, folderID)
	if err != nil {
		if store.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Write(trend.EncodeTrendCSV(tt.Table))
}

func featureValues(rec analysis.FeatureRecord) []FeatureValue {
	out := make([]FeatureValue, 0, len(rec.Features))
	for _, f := range rec.Features {
		out = append(out, FeatureValue{Name: f.Name, Value: f.FormatValue()})
	}
	return out
}

func encodePlots(plots map[string][]byte) map[string]string {
	out := make(map[string]string, len(plots))
	for name, png := range plots {
		out[name] = base64.StdEncoding.EncodeToString(png)
	}
	return out
}
