package main

import (
	"bufio"
	"bytes"
	"chat-room/client"
	"chat-room/domain/chat"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress     string        `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Username          string        `env:"CHAT_USERNAME,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=WARN"`
	AutoReconnect     bool          `env:"AUTO_RECONNECT,default=true"`
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL,default=3s"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpBase := "http://" + config.ServerAddress
	socketURL := "ws://" + config.ServerAddress + "/ws"

	// 3. Backlog: latest page of the history, newest first.
	timeline := client.NewTimeline()
	if err := renderBacklog(httpBase, timeline); err != nil {
		log.Warn("Could not fetch message history", "error", err)
	}

	// 4. Live subscription. The timeline de-duplicates by ID because a
	// message we post over HTTP also comes back over the push channel.
	connector := client.NewConnector(log, socketURL, client.Config{
		AutoReconnect:     config.AutoReconnect,
		ReconnectInterval: config.ReconnectInterval,
	}, func(m chat.Message) {
		if timeline.Append(m) {
			printMessage(m)
		}
	})
	defer connector.Disconnect()

	if err := connector.Connect(ctx); err != nil {
		// Not fatal: the reconnect loop takes over once a connection
		// drops, but the very first attempt failing usually means a
		// wrong address, so surface it loudly.
		color.Red.Printf("Connection failed: %v\n", err)
	}

	color.Green.Printf(">>> Chatting as %s on %s (Ctrl+C to quit)\n", config.Username, config.ServerAddress)

	// 5. Input loop: every line becomes a message create request.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nLeaving the room...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			// Form-submit boundary: empty input never reaches the wire.
			content := strings.TrimSpace(line)
			if content == "" {
				continue
			}
			if state := connector.State(); !state.IsConnected {
				color.Yellow.Println("Disconnected, message not sent. Reconnecting...")
				continue
			}
			if err := postMessage(httpBase, content, config.Username, timeline); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
			}
		}
	}
}

type createRequest struct {
	Message createRequestBody `json:"message"`
}

type createRequestBody struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

// postMessage creates the message over HTTP. The created message is
// appended right away; the broadcast copy arriving later is dropped by the
// timeline's de-duplication.
func postMessage(httpBase, content, username string, timeline *client.Timeline) error {
	body, err := json.Marshal(createRequest{
		Message: createRequestBody{Content: content, Username: username},
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(httpBase+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		var failure errorsResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil {
			return fmt.Errorf("message rejected")
		}
		return fmt.Errorf("message rejected: %s", strings.Join(failure.Errors, ", "))
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var created chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return err
	}
	timeline.Append(created)
	return nil
}

// renderBacklog prints the latest history page as a table.
func renderBacklog(httpBase string, timeline *client.Timeline) error {
	resp, err := http.Get(httpBase + "/messages?page=1")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var page struct {
		Messages   []chat.Message `json:"messages"`
		Page       int            `json:"page"`
		TotalPages int            `json:"totalPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Author", "Message"})
	// The page is newest first; display oldest first like the room does.
	for i := len(page.Messages) - 1; i >= 0; i-- {
		m := page.Messages[i]
		timeline.Append(m)
		table.Append([]string{
			m.CreatedAt.Local().Format(time.TimeOnly),
			m.Username,
			m.Content,
		})
	}
	table.Render()
	return nil
}

func printMessage(m chat.Message) {
	fmt.Printf("[%s] %s: %s\n",
		m.CreatedAt.Local().Format(time.TimeOnly),
		color.Cyan.Sprint(m.Username),
		m.Content,
	)
}
