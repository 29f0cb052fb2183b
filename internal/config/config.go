package config

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DataDir   string
	StoreKind string // "box" или "local"
	StoreRoot string // id корневой папки Box либо путь локального корня
	GRPCAddr  string // unix:/path, npipe:\\.\pipe\name или host:port

	BoxToken    string
	OllamaURL   string
	OllamaModel string
}

// Load читает флаги и .env. Секреты (токен Box) только из окружения,
// флагами их передавать нельзя.
func Load() *Config {
	port := flag.String("port", "8080", "Server port")
	dataDir := flag.String("data", "data", "Directory for temporary local data")
	storeKind := flag.String("store", "local", "Session store backend: box or local")
	storeRoot := flag.String("store-root", "", "Box root folder id, or local store directory (default: dataDir/store)")
	grpcAddr := flag.String("grpc", "", "gRPC control socket (default: platform specific pipe)")
	flag.Parse()

	// .env опционален: в проде переменные приходят из окружения
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	root := *storeRoot
	if root == "" {
		if *storeKind == "box" {
			root = os.Getenv("BOX_ROOT_FOLDER_ID")
			if root == "" {
				root = "0" // корень аккаунта Box
			}
		} else {
			root = *dataDir + "/store"
		}
	}

	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3.1"
	}

	return &Config{
		Port:        *port,
		DataDir:     *dataDir,
		StoreKind:   *storeKind,
		StoreRoot:   root,
		GRPCAddr:    *grpcAddr,
		BoxToken:    os.Getenv("BOX_DEVELOPER_TOKEN"),
		OllamaURL:   ollamaURL,
		OllamaModel: ollamaModel,
	}
}
