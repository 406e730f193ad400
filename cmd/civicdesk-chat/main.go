package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/civicdesk/config"
	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/internal/app"
)

func main() {
	path := flag.String("config", "", "path to a JSON or YAML config file")
	flow := flag.String("flow", "certificate", "conversation to run: certificate or complaint")
	user := flag.String("user", "console", "user id recorded on submissions")
	flag.Parse()
	conf, err := config.Load(*path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(context.Background(), conf, *flow, *user); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, conf *config.Config, flow, user string) error {
	slog.SetLogLoggerLevel(slog.LevelWarn)
	a, err := app.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agent := intake.NewAgent("CertificateDesk", "Collects certificate applications through conversation", a.Certificates)
	if flow == "complaint" {
		agent = intake.NewAgent("ComplaintDesk", "Drafts and files citizen complaints through conversation", a.Complaints)
	}
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: agent})
	chatCtx := intake.WithSessionKey(ctx, user)

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Welcome to civicdesk. Say what you need, for example: Birth Certificate")
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		iter := runner.Run(chatCtx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Printf("\nDesk: %v\n======\n", msg.Content)
		}
	}
}
