// Command chat-client connects to a chat relay server: it admits into a
// room over the stream port, then carries on the datagram chat exchange
// until the user types /quit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"

	"github.com/nullroom/chatrelay/client"
	"github.com/nullroom/chatrelay/frame"
)

var (
	admissionAddr string
	relayAddr     string
	roomName      string
	createRoom    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chat-client",
		Short: "Connect to a multi-room chat relay server",
		RunE:  run,
	}
	rootCmd.Flags().StringVar(&admissionAddr, "admission-addr", "127.0.0.1:9001", "address of the server's admission (TCP) port")
	rootCmd.Flags().StringVar(&relayAddr, "relay-addr", "127.0.0.1:9002", "address of the server's relay (UDP) port")
	rootCmd.Flags().StringVar(&roomName, "room", "", "room to create or join (prompted interactively if omitted)")
	rootCmd.Flags().BoolVar(&createRoom, "create", false, "create the room instead of joining it (prompted interactively if --room is omitted)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	stdin := bufio.NewReader(os.Stdin)

	op := frame.OpJoin
	if roomName == "" {
		op = promptForOp(stdin)
		roomName = promptLine(stdin, "Room name: ")
	} else if createRoom {
		op = frame.OpCreate
	}

	admitted, err := client.Connect(admissionAddr, roomName, op)
	if err != nil {
		return fmt.Errorf("admission failed: %w", err)
	}
	fmt.Printf("admitted to %q with token %s\n", admitted.RoomName, admitted.Token)

	log := logger.GetGoI2PLogger().WithField("room", admitted.RoomName)
	session, err := client.Dial(relayAddr, admitted, log)
	if err != nil {
		return fmt.Errorf("opening chat session: %w", err)
	}
	defer session.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("type a message and press enter; /quit to leave")
	return session.Run(ctx, stdin, os.Stdout)
}

func promptForOp(r *bufio.Reader) frame.Op {
	choice := promptLine(r, "Create (1) or join (2) a room? ")
	if strings.TrimSpace(choice) == "1" {
		return frame.OpCreate
	}
	return frame.OpJoin
}

func promptLine(r *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
