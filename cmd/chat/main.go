package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spendtrack/config"
	"spendtrack/internal/advisor"
	"spendtrack/internal/ai"
	"spendtrack/internal/archive"
	"spendtrack/internal/chat"
	"spendtrack/internal/domain"
	"spendtrack/internal/identity"
	"spendtrack/internal/logger"
	"spendtrack/internal/storage"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	var (
		store    storage.Store
		provider identity.Provider
		archiver chat.Archiver
	)

	if cfg.CloudMode() {
		mongoStore, err := storage.NewMongoStore(ctx, cfg.MongoURI, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to document store")
		}
		store = mongoStore
		provider = identity.NewCloudProvider(cfg.DataDir, mongoStore, log)
		if cfg.GCSBucket != "" {
			archiver = archive.NewGCSArchive(cfg.GCSBucket, cfg.GoogleCredentialsFile, log)
		}
	} else {
		fileStore, err := storage.NewFileStore(cfg.DataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open local store")
		}
		store = fileStore
		provider = identity.NewLocalProvider()
	}
	defer store.Close(ctx)

	aiClient, err := ai.NewClient(ctx, cfg.GeminiAPIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AI client")
	}

	userIDs := make(chan string, 1)
	cancelIdentity, err := provider.Init(ctx, func(userID string) {
		userIDs <- userID
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity")
	}
	defer cancelIdentity()

	userID := <-userIDs
	if userID == "" {
		log.Fatal().Msg("Anonymous sign-in failed")
	}

	orch := chat.New(store, aiClient, archiver, log)
	session, err := chat.NewSession(ctx, userID, store, orch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session")
	}
	defer session.Close()

	adv := advisor.New(aiClient, log)

	fmt.Println("Spendtrack chat. Tell me what you spent, or type /help.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if runCommand(ctx, line, session, store, adv) {
				return
			}
			continue
		}

		sendTurn(ctx, session, chat.Input{Text: line})
	}
}

// runCommand executes a slash command. Returns true when the REPL should exit.
func runCommand(ctx context.Context, line string, session *chat.Session, store storage.Store, adv *advisor.Advisor) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		fmt.Println("Bye.")
		return true

	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /records           Show the current ledger")
		fmt.Println("  /summary           Show spending by category")
		fmt.Println("  /tip               Show a spending observation")
		fmt.Println("  /delete <id>       Delete a record")
		fmt.Println("  /image <path>      Send a receipt photo, optionally with text")
		fmt.Println("  /quit              Exit")

	case "/records":
		records := session.Records()
		if len(records) == 0 {
			fmt.Println("No records yet.")
			break
		}
		for _, r := range records {
			fmt.Printf("  %s  %-24s %10.2f  %-12s %s\n",
				r.CreatedAt.Format("2006-01-02"), r.Item, r.Amount, r.Category, r.ID)
		}

	case "/summary":
		summary := domain.SummarizeByCategory(session.Records())
		if len(summary) == 0 {
			fmt.Println("Nothing to summarize yet.")
			break
		}
		for _, c := range summary {
			fmt.Printf("  %-16s %10.2f  (%.1f%%)\n", c.Category, c.Total, c.Percent)
		}

	case "/tip":
		tip := adv.Tip(ctx, session.Records())
		if tip == "" {
			fmt.Println("Log some spending first.")
			break
		}
		fmt.Println(tip)

	case "/delete":
		if arg == "" {
			fmt.Println("Usage: /delete <id>")
			break
		}
		if err := store.Delete(ctx, session.UserID(), arg); err != nil {
			fmt.Printf("Delete failed: %v\n", err)
			break
		}
		fmt.Println("Deleted.")

	case "/image":
		if arg == "" {
			fmt.Println("Usage: /image <path> [text]")
			break
		}
		path, text, _ := strings.Cut(arg, " ")
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Could not read %s: %v\n", path, err)
			break
		}
		sendTurn(ctx, session, chat.Input{
			Text:      strings.TrimSpace(text),
			Image:     data,
			ImageMIME: mimeForPath(path),
			ImageName: filepath.Base(path),
		})

	default:
		fmt.Printf("Unknown command %s. Type /help.\n", cmd)
	}

	return false
}

func sendTurn(ctx context.Context, session *chat.Session, in chat.Input) {
	turn, err := session.Send(ctx, in)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(turn.Text)
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
