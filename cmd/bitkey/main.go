// Package main starts the interactive BitKey vault shell. It owns no vault
// state itself; it wires configuration, logging, and storage into the engine
// and renders the results of engine operations.
package main

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/bitkey/bitkey/internal/config"
	"github.com/bitkey/bitkey/internal/exposure"
	"github.com/bitkey/bitkey/internal/generator"
	"github.com/bitkey/bitkey/internal/logger"
	"github.com/bitkey/bitkey/internal/models"
	"github.com/bitkey/bitkey/internal/random"
	"github.com/bitkey/bitkey/internal/repository"
	"github.com/bitkey/bitkey/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// readCredential prompts for a credential without echoing it.
func readCredential(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// promptIdentity reads an identifier and credential pair.
func promptIdentity(scanner *bufio.Scanner) (string, string, error) {
	fmt.Print("Email: ")
	if !scanner.Scan() {
		return "", "", io.EOF
	}
	cred, err := readCredential("Password: ")
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(scanner.Text()), cred, nil
}

func renderEntries(entries []models.SecretEntry) {
	if len(entries) == 0 {
		fmt.Println("No secrets stored.")
		return
	}
	for i, e := range entries {
		mark := " "
		if e.Exposed {
			mark = "!"
		}
		fmt.Printf("%3d %s %s\n", i, mark, e.Value)
	}
}

// repl runs the interactive shell loop, accepting commands to manage secrets.
func repl(e *service.Engine) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("bitkey> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, register, login, logout, gen <length> [digits], list, copy <n>, delete <n>, whoami, exit")
		case "register":
			id, cred, err := promptIdentity(scanner)
			if err != nil {
				fmt.Println("input error:", err)
				continue
			}
			switch err := e.Register(id, cred); {
			case errors.Is(err, models.ErrAccountExists):
				fmt.Println("User already exists.")
			case err != nil:
				fmt.Println("registration failed:", err)
			default:
				fmt.Println("Account created. You are logged in.")
			}
		case "login":
			id, cred, err := promptIdentity(scanner)
			if err != nil {
				fmt.Println("input error:", err)
				continue
			}
			switch err := e.Login(id, cred); {
			case errors.Is(err, models.ErrInvalidCredentials):
				fmt.Println("Invalid credentials.")
			case errors.Is(err, models.ErrCorrupt):
				fmt.Println("Stored data for this account is corrupt; refusing to open it.")
			case err != nil:
				fmt.Println("login failed:", err)
			default:
				fmt.Println("Logged in.")
			}
		case "logout":
			e.Logout()
			fmt.Println("Logged out.")
		case "gen":
			length := 12
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					fmt.Println("Usage: gen <length> [digits]")
					continue
				}
				length = n
			}
			includeSymbols := !(len(args) > 2 && args[2] == "digits")
			entry, err := e.GenerateAndStore(context.Background(), length, includeSymbols)
			if err != nil {
				if errors.Is(err, models.ErrNotAuthenticated) {
					fmt.Println("Log in first.")
				} else {
					fmt.Println("generation failed:", err)
				}
				continue
			}
			if entry.Exposed {
				fmt.Printf("Generated (WARNING: found in breach database): %s\n", entry.Value)
			} else {
				fmt.Printf("Generated: %s\n", entry.Value)
			}
		case "list":
			entries, err := e.List()
			if err != nil {
				fmt.Println("Log in first.")
				continue
			}
			renderEntries(entries)
		case "copy", "delete":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <n>\n", args[0])
				continue
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Printf("Usage: %s <n>\n", args[0])
				continue
			}
			if args[0] == "delete" {
				switch err := e.DeleteAt(index); {
				case errors.Is(err, models.ErrIndexOutOfRange):
					fmt.Println("No such entry.")
				case errors.Is(err, models.ErrNotAuthenticated):
					fmt.Println("Log in first.")
				case err != nil:
					fmt.Println("delete failed:", err)
				default:
					fmt.Println("Deleted.")
				}
				continue
			}
			entries, err := e.List()
			if err != nil {
				fmt.Println("Log in first.")
				continue
			}
			if index < 0 || index >= len(entries) {
				fmt.Println("No such entry.")
				continue
			}
			if err := e.CopyToClipboard(entries[index].Value); err != nil {
				fmt.Println("copy failed:", err)
				continue
			}
			fmt.Println("Secret copied to clipboard. Clearing in 30 seconds...")
		case "whoami":
			if id, ok := e.CurrentAccount(); ok {
				count, _ := e.Count()
				fmt.Printf("%s (%d secrets)\n", id, count)
			} else {
				fmt.Println("Not logged in.")
			}
		case "exit":
			e.Logout()
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if err := os.MkdirAll(options.DataDir, 0700); err != nil {
		zapLogger.Fatal("cannot create data dir", zap.Error(err))
	}

	// Open the account directory; a corrupt directory file is fatal rather
	// than silently reset.
	directory, err := repository.OpenAccountDirectory(filepath.Join(options.DataDir, "users.json"))
	if err != nil {
		zapLogger.Fatal("cannot open account directory", zap.Error(err))
	}

	store := repository.NewSecretStore(options.DataDir)
	open := service.StoreOpener(func(identifier, credential string) (service.SecretAccess, error) {
		return store.Open(identifier, credential)
	})

	engine := service.NewEngine(
		service.NewAuthService(directory),
		open,
		generator.New(random.CryptoSource{}),
		exposure.New(options.BreachURL, options.BreachTimeout, zapLogger),
		zapLogger,
	)

	zapLogger.Info("vault ready", zap.String("data_dir", options.DataDir))
	repl(engine)
}
