package cmds

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/cricket/pkg/chat"
	"github.com/go-go-golems/cricket/pkg/events"
	"github.com/go-go-golems/cricket/pkg/inference"
	"github.com/go-go-golems/cricket/pkg/inference/factory"
	"github.com/go-go-golems/cricket/pkg/memory"
	"github.com/go-go-golems/cricket/pkg/store"
)

func NewChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat [conversation-id]",
		Short: "Chat interactively, streaming replies to the terminal",
		Long: `Chat starts an interactive session. Without an argument a new conversation
is created; passing a conversation id resumes it with its history.

Inside the session:
  /new      start a new conversation
  /delete   delete the current conversation
  /quit     leave`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stepSettings, err := loadStepSettings()
			if err != nil {
				return err
			}

			chatStore, err := store.NewSQLStore(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer func() {
				_ = chatStore.Close()
			}()

			printSink := events.SinkFunc(func(event events.Event) error {
				switch e := event.(type) {
				case *events.EventPartialCompletion:
					fmt.Print(e.Delta)
				case *events.EventFinal, *events.EventInterrupt:
					fmt.Println()
				}
				return nil
			})

			engineFactory := factory.NewStandardEngineFactory()
			engine, err := engineFactory.CreateEngine(stepSettings, inference.WithSink(printSink))
			if err != nil {
				return err
			}

			// the summarizer runs quietly on a lightweight model, single-shot
			summarySettings := stepSettings.Clone()
			summaryEngineName := stepSettings.SummaryEngine()
			summarySettings.Chat.Engine = &summaryEngineName
			summarySettings.Chat.MaxResponseTokens = summarySettings.Summary.MaxResponseTokens
			summarySettings.Chat.Stream = false
			summaryEngine, err := engineFactory.CreateEngine(summarySettings)
			if err != nil {
				return err
			}

			session := chat.NewSession(chatStore, engine, memory.NewWindow(memory.DefaultWindowSize),
				chat.WithModel(*stepSettings.Chat.Engine),
				chat.WithUserID(viper.GetString("user")),
				chat.WithSummarizer(chat.NewSummarizer(summaryEngine)),
			)

			ctx := cmd.Context()

			conversationID := chat.ConversationNew
			if len(args) > 0 {
				conversationID = args[0]
			}
			msgs, err := session.Select(ctx, conversationID)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				fmt.Println(msg.View())
			}
			fmt.Printf("conversation: %s\n", session.ConversationID())

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "":
					continue
				case line == "/quit":
					return nil
				case line == "/new":
					if _, err := session.Select(ctx, chat.ConversationNew); err != nil {
						return err
					}
					fmt.Printf("conversation: %s\n", session.ConversationID())
					continue
				case line == "/delete":
					if err := session.Delete(ctx, session.ConversationID()); err != nil {
						return err
					}
					fmt.Println("deleted")
					if _, err := session.Select(ctx, chat.ConversationNew); err != nil {
						return err
					}
					fmt.Printf("conversation: %s\n", session.ConversationID())
					continue
				}

				reply, err := session.Submit(ctx, line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				fmt.Println(reply.Caption)
			}

			return scanner.Err()
		},
	}

	return chatCmd
}
