package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/atinyakov/GophNotes/internal/client"
	"github.com/atinyakov/GophNotes/internal/models"
)

var (
	version   string
	buildDate string
)

// NoteAPI is the subset of client.API used by the shell.
type NoteAPI interface {
	Login(ctx context.Context) (client.LoginResult, error)
	CreateNote(ctx context.Context, note models.Note) (models.Note, error)
	PatchNote(ctx context.Context, patch models.NotePatch) (models.Note, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
	GetNote(ctx context.Context, id string) (models.Note, error)
	GetPublicNote(ctx context.Context, id, password string) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

const helpText = "Available commands: help, login, create, list, get <id>, edit <id>, public <id>, delete <id>, exit"

// repl runs the interactive shell loop, accepting commands to manage notes
// owned by login.
func repl(ctx context.Context, api NoteAPI, login string, in io.Reader, out io.Writer) {
	p := client.NewPrompter(in, out)

	for {
		line, err := p.Ask("gophnotes> ")
		if err != nil {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(out, helpText)
		case "login":
			res, err := api.Login(ctx)
			if err != nil {
				fmt.Fprintln(out, "Login failed:", err)
				continue
			}
			fmt.Fprintf(out, "Logged in as %s\n", res.User)
		case "create":
			note, err := p.PromptForNote(login)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			created, err := api.CreateNote(ctx, note)
			if err != nil {
				fmt.Fprintln(out, "Create failed:", err)
				continue
			}
			fmt.Fprintf(out, "Note created: %s\nShare link: %s\n", created.ID, created.Link)
		case "list":
			notes, err := api.ListNotes(ctx)
			if err != nil {
				fmt.Fprintln(out, "List failed:", err)
				continue
			}
			if len(notes) == 0 {
				fmt.Fprintln(out, "No notes")
			}
			for _, n := range notes {
				fmt.Fprintf(out, "%s  expires %s  %s\n", n.ID, n.ExpirationDate.Format("2006-01-02 15:04"), n.Content)
			}
		case "get":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: get <id>")
				continue
			}
			note, err := api.GetNote(ctx, args[1])
			if err != nil {
				fmt.Fprintln(out, "Get failed:", err)
				continue
			}
			printJSON(out, note)
		case "edit":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: edit <id>")
				continue
			}
			patch, err := p.PromptEditNote(args[1])
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if _, err := api.PatchNote(ctx, patch); err != nil {
				fmt.Fprintln(out, "Edit failed:", err)
				continue
			}
			fmt.Fprintln(out, "Note updated")
		case "public":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: public <id>")
				continue
			}
			password, err := p.Ask("Password: ")
			if err != nil {
				return
			}
			note, err := api.GetPublicNote(ctx, args[1], password)
			if err != nil {
				fmt.Fprintln(out, "Read failed:", err)
				continue
			}
			printJSON(out, note)
		case "delete":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: delete <id>")
				continue
			}
			if err := api.DeleteNote(ctx, args[1]); err != nil {
				fmt.Fprintln(out, "Delete failed:", err)
				continue
			}
			fmt.Fprintln(out, "Note deleted")
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func printJSON(out io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(out, string(b))
}

// certLogin returns the Common Name of the client certificate in certFile.
func certLogin(certFile string) (string, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return "", err
	}
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return "", fmt.Errorf("%s: not a PEM certificate", certFile)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", certFile, err)
	}
	return cert.Subject.CommonName, nil
}

// main parses command-line flags and dispatches to the register or shell commands.
func main() {
	var (
		cmd      string
		baseURL  string
		certFile string
		keyFile  string
		caFile   string
		loginStr string
		showVer  bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: register | shell")
	flag.StringVar(&baseURL, "url", "https://localhost:8080", "server base URL")
	flag.StringVar(&certFile, "cert", "client.crt", "path to client cert")
	flag.StringVar(&keyFile, "key", "client.key", "path to client key")
	flag.StringVar(&caFile, "ca", "certs/ca.crt", "path to CA cert")
	flag.StringVar(&loginStr, "login", "", "username for registration")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("GophNotes Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ctx := context.Background()
	switch cmd {
	case "register":
		if loginStr == "" {
			log.Fatal("please provide -login=username")
		}
		httpClient, err := client.NewTLSClient(caFile)
		if err != nil {
			log.Fatal(err)
		}
		if err := client.Register(ctx, httpClient, baseURL, loginStr, certFile, keyFile); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Registration successful. Certificate and key saved.")
	case "shell":
		httpClient, err := client.LoadClientCertificate(certFile, keyFile, caFile)
		if err != nil {
			log.Fatal(err)
		}
		login, err := certLogin(certFile)
		if err != nil {
			log.Fatal(err)
		}
		api := &client.API{BaseURL: baseURL, HTTP: httpClient}
		repl(ctx, api, login, os.Stdin, os.Stdout)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}
