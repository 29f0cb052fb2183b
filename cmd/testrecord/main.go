// Тест записи с микрофона: пишет WAV (или MP3) до Ctrl+C или -seconds.
// Запуск: go run ./cmd/testrecord [-out test_rec.wav] [-mp3] [-device name] [-raw]
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicelab/audio"
)

func main() {
	outPath := flag.String("out", "test_rec.wav", "Output file")
	asMP3 := flag.Bool("mp3", false, "Encode MP3 instead of WAV")
	deviceName := flag.String("device", "", "Capture device name (substring match, default mic otherwise)")
	seconds := flag.Int("seconds", 0, "Stop after N seconds (0 = until Ctrl+C)")
	raw := flag.Bool("raw", false, "Skip cleanup filters (high-pass, de-click, normalize)")
	outRate := flag.Int("rate", 0, "Resample output to this rate (0 = keep capture rate)")
	flag.Parse()

	rec, err := audio.NewRecorder()
	if err != nil {
		log.Fatalf("Failed to init audio: %v", err)
	}
	defer rec.Close()

	if *deviceName != "" {
		id, err := rec.FindDeviceByName(*deviceName)
		if err != nil {
			devices, _ := rec.ListDevices()
			log.Printf("Available devices:")
			for _, d := range devices {
				log.Printf("  %s", d.Name)
			}
			log.Fatalf("%v", err)
		}
		rec.SetDeviceID(id)
	}

	log.Printf("Recording to %s (%d Hz mono), Ctrl+C to stop...", *outPath, audio.CaptureSampleRate)
	rec.ClearBuffer()
	if err := rec.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *seconds > 0 {
		timeout = time.After(time.Duration(*seconds) * time.Second)
	}

	var samples []float32
loop:
	for {
		select {
		case block := <-rec.Data():
			samples = append(samples, block...)
		case <-stop:
			break loop
		case <-timeout:
			break loop
		}
	}
	rec.Stop()

	if len(samples) == 0 {
		log.Fatal("No audio captured")
	}
	log.Printf("Captured %.2fs", float64(len(samples))/float64(audio.CaptureSampleRate))

	if !*raw {
		samples = audio.ApplyFilters(samples, audio.CaptureSampleRate, audio.DefaultFilterConfig())
	}

	rate := audio.CaptureSampleRate
	if *outRate > 0 && *outRate != rate {
		samples = audio.Resample(samples, rate, *outRate)
		rate = *outRate
	}

	if *asMP3 {
		w, err := audio.NewMP3Writer(*outPath, rate, 1)
		if err != nil {
			log.Fatalf("Failed to create MP3: %v", err)
		}
		if err := w.Write(samples); err != nil {
			log.Fatalf("MP3 write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			log.Fatalf("MP3 close failed: %v", err)
		}
	} else {
		w, err := audio.NewWAVWriter(*outPath, rate, 1)
		if err != nil {
			log.Fatalf("Failed to create WAV: %v", err)
		}
		if err := w.Write(samples); err != nil {
			log.Fatalf("WAV write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			log.Fatalf("WAV close failed: %v", err)
		}
	}
	log.Printf("Saved %s", *outPath)
}
