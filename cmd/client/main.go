package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/client/api"
	"github.com/atinyakov/healthchat/internal/client/storage"
	"github.com/atinyakov/healthchat/internal/client/tui"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to signup, login, logout
// or the chat screen.
func main() {
	var (
		cmd       string
		baseURL   string
		stateFile string
		timeout   time.Duration
		showVer   bool
	)

	flag.StringVar(&cmd, "cmd", "chat", "command: signup | login | logout | chat")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&stateFile, "state", storage.DefaultFile, "path to local state file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "timeout for signup, login and logout")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("HealthChat Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ls, err := storage.Open(stateFile)
	if err != nil {
		log.Fatalf("load local state: %v", err)
	}
	client, err := api.New(baseURL, ls, nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case "signup":
		c := storage.PromptCredentials(os.Stdin, os.Stdout, true)
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Signup(reqCtx, c.Name, c.Mobile, c.Password); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Signup successful! You are now logged in.")
	case "login":
		c := storage.PromptCredentials(os.Stdin, os.Stdout, false)
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Login(reqCtx, c.Mobile, c.Password); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Login successful!")
	case "logout":
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Logout(reqCtx); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Logged out successfully")
	case "chat":
		if err := runChat(ctx, client, ls, timeout); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}

// runChat opens the chat screen on the server's conversation.
func runChat(ctx context.Context, client *api.Client, ls *storage.LocalStorage, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, name, err := client.Session(reqCtx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("please login first: run with -cmd login")
	}
	if name == "" {
		name = ls.DisplayName()
	}

	history, err := client.Messages(reqCtx)
	if err != nil {
		return err
	}

	exchange := chat.NewExchange(client, chat.WithHistory(history))
	_, err = tea.NewProgram(tui.New(ctx, exchange, name), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
