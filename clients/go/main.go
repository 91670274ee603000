// Serenio CLI - command line client for the Serenio chat
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dave817/sereniowebapp/clients/go/serenio"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("SERENIO_URL")
	if baseURL == "" {
		baseURL = serenio.DefaultURL
	}

	storage, err := serenio.NewFileStorage(serenio.ConfigDir())
	exitOnError(err)

	ctx := context.Background()
	client := serenio.NewClient(baseURL)
	session := serenio.NewSessionStore(client, storage, nil)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "register":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: serenio register <name> <email> <password>")
			os.Exit(1)
		}
		exitOnError(session.Register(ctx, os.Args[2], os.Args[3], os.Args[4]))
		fmt.Printf("Registered as: %s (%d)\n", session.User().Name, session.User().ID)

	case "login":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: serenio login <email> <password>")
			os.Exit(1)
		}
		exitOnError(session.Login(ctx, os.Args[2], os.Args[3]))
		fmt.Printf("Logged in as: %s\n", session.User().Name)

	case "logout":
		session.Logout(ctx)
		fmt.Println("Logged out")

	case "whoami":
		if !session.CheckAuth(ctx) {
			fmt.Fprintln(os.Stderr, "Not logged in")
			os.Exit(1)
		}
		printJSON(session.User())

	case "history":
		messages := newMessageStore(ctx, client)
		exitOnError(messages.LoadMessages(ctx))
		sorted := messages.Sorted()
		// oldest at the top, like a transcript
		for i := len(sorted) - 1; i >= 0; i-- {
			printMessage(sorted[i])
		}

	case "send":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: serenio send <message>")
			os.Exit(1)
		}
		messages := newMessageStore(ctx, client)
		reply, err := messages.SendMessage(ctx, strings.Join(os.Args[2:], " "))
		exitOnError(err)
		fmt.Println(reply)

	case "chat":
		messages := newMessageStore(ctx, client)
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("Type a message, or /quit to leave.")
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" {
				break
			}
			reply, err := messages.SendMessage(ctx, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", messages.Err())
				continue
			}
			fmt.Println(reply)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// newMessageStore asks the server which chat it runs.
func newMessageStore(ctx context.Context, client *serenio.Client) *serenio.MessageStore {
	info, err := client.Info(ctx)
	exitOnError(err)
	return serenio.NewMessageStore(client, info.Anonymous())
}

func printMessage(m serenio.Message) {
	from := "you"
	if m.IsBot {
		from = "serenio"
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), from, m.Content)
}

func usage() {
	fmt.Println(`Serenio CLI - talk to the Serenio companion

Usage: serenio <command> [options]

Commands:
  register <name> <email> <password>   Create an account
  login <email> <password>             Sign in
  logout                               Sign out
  whoami                               Show the signed-in user
  history                              Show the conversation
  send <message>                       Send one message
  chat                                 Interactive conversation
  health                               Check server readiness

Environment:
  SERENIO_URL      Server URL (default: http://localhost:3001)
  SERENIO_CONFIG   Config directory (default: ~/.serenio)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
