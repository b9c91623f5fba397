// Command console plays the phone's side of the link: it sends commands typed
// on stdin over a serial port and prints every reply from dashcam.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"dashcam/config"
	"dashcam/signaling"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	cfg := config.LoadConfig()

	port := flag.String("port", cfg.SerialPort, "serial port connected to dashcam")
	baud := flag.Int("baud", cfg.SerialBaudRate, "baud rate")
	flag.Parse()

	transport, err := signaling.OpenSerial(*port, *baud)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *port, err)
	}
	defer transport.Close()

	go func() {
		for {
			line, err := transport.ReadLine()
			if err != nil {
				log.Printf("Connection closed: %v", err)
				os.Exit(0)
			}
			fmt.Print("< " + strings.TrimRight(line, "\r\n") + "\n")
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		transport.Close()
		os.Exit(0)
	}()

	log.Printf("Connected to %s at %d baud. Type 'help' for commands.", *port, *baud)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		if err := transport.Send(cmd + "\n"); err != nil {
			log.Fatalf("Failed to send %q: %v", cmd, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read stdin: %v", err)
	}
}
