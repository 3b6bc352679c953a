package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/satriahrh/wawa/domain"
	ws "github.com/satriahrh/wawa/internal/websocket"
)

var (
	serverURL string
	outDir    string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Talk to a running wawa server",
	Long: `chatclient sends messages to a wawa server and prints the avatar replies.

Without a subcommand it opens the /ws chat socket and sends every line read
from stdin. An empty line asks for the greeting.`,
	RunE: runSocket,
}

var sayCmd = &cobra.Command{
	Use:   "say [message]",
	Short: "Send one message through POST /chat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := ""
		if len(args) == 1 {
			message = args[0]
		}
		return runSay(message)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "wawa server base URL")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "directory to write reply audio and lip-sync files to")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "how long to wait for one reply")

	rootCmd.AddCommand(sayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSay(message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var envelope domain.ResponseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode reply (status %d): %w", resp.StatusCode, err)
	}

	fmt.Printf("status %d\n", resp.StatusCode)
	return printReplies(envelope.Messages)
}

func runSocket(cmd *cobra.Command, args []string) error {
	base, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := url.URL{Scheme: scheme, Host: base.Host, Path: "/ws"}

	fmt.Printf("Connecting to: %s\n", wsURL.String())
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket connection failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket connection failed: %w", err)
	}
	defer conn.Close()

	fmt.Println("Connected. Type a message and press enter, Ctrl+D to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for id := 1; ; id++ {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		frame := ws.InboundMessage{Type: ws.MessageTypeChat, Message: scanner.Text(), ID: fmt.Sprint(id)}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(timeout))
		var reply ws.ChatResponseMessage
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}

		fmt.Printf("status %d\n", reply.Status)
		if reply.Error != "" {
			fmt.Printf("error: %s\n", reply.Error)
		}
		if err := printReplies(reply.Messages); err != nil {
			return err
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return scanner.Err()
}

func printReplies(messages []domain.ResponseMessage) error {
	for i, msg := range messages {
		audio, err := msg.Audio.Bytes()
		if err != nil {
			return fmt.Errorf("failed to decode audio of reply %d: %w", i, err)
		}
		cues := 0
		if msg.Lipsync != nil {
			cues = len(msg.Lipsync.MouthCues)
		}
		fmt.Printf("[%d] (%s/%s) %s  audio=%dB cues=%d\n",
			i, msg.FacialExpression, msg.Animation, msg.Text, len(audio), cues)

		if outDir == "" || len(audio) == 0 {
			continue
		}
		if err := saveReply(i, audio, msg.Lipsync); err != nil {
			return err
		}
	}
	return nil
}

func saveReply(index int, audio []byte, lipsync *domain.VisemeCueTrack) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(outDir, fmt.Sprintf("reply_%d.audio", index)), audio, 0o644); err != nil {
		return err
	}

	if lipsync != nil {
		track, err := json.MarshalIndent(lipsync, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outDir, fmt.Sprintf("reply_%d.json", index)), track, 0o644); err != nil {
			return err
		}
	}
	return nil
}
