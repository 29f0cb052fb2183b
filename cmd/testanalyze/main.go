// Анализ локального аудиофайла без сервера и хранилища.
// Запуск: go run ./cmd/testanalyze -in recording.wav [-task "Rainbow passage"] [-out dir]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"voicelab/analysis"
	"voicelab/session"
	"voicelab/trend"
)

func main() {
	inPath := flag.String("in", "", "Input WAV or MP3 file")
	task := flag.String("task", "", "Elicitation task name (affects pitch range)")
	outDir := flag.String("out", "", "Directory for features.csv and plots (optional)")
	flag.Parse()

	if *inPath == "" {
		log.Fatal("-in file is required")
	}

	raw, err := os.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *inPath, err)
	}

	profile := analysis.ProfileForTask(*task)
	log.Printf("Analyzing %s (pitch range %.0f-%.0f Hz)...", *inPath, profile.PitchFloor, profile.PitchCeiling)

	a, err := session.Analyze(raw, profile)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	log.Printf("Clip: %.2fs @ %d Hz", a.Clip.Duration(), a.Clip.SampleRate)
	fmt.Print(a.Result.Record.String())

	if *outDir == "" {
		return
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outDir, err)
	}

	csvPath := filepath.Join(*outDir, "features.csv")
	if err := os.WriteFile(csvPath, trend.EncodeFeatureCSV(a.Result.Record), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", csvPath, err)
	}
	for name, png := range a.Plots {
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, png, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	log.Printf("Artifacts written to %s", *outDir)
}
