package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/cricket/pkg/store"
)

func NewConversationsCmd() *cobra.Command {
	conversationsCmd := &cobra.Command{
		Use:   "conversations",
		Short: "Inspect and manage stored conversations",
	}

	withStore := func(run func(cmd *cobra.Command, args []string, chatStore *store.SQLStore) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			chatStore, err := store.NewSQLStore(viper.GetString("db"))
			if err != nil {
				return err
			}
			defer func() {
				_ = chatStore.Close()
			}()
			return run(cmd, args, chatStore)
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, chatStore *store.SQLStore) error {
			refs, err := chatStore.ListConversations(cmd.Context(), viper.GetString("user"))
			if err != nil {
				return err
			}
			for _, ref := range refs {
				summary := ref.Summary
				if summary == "" {
					summary = "(no summary)"
				}
				fmt.Printf("%s  %s  %s\n", ref.ConversationID, ref.LastActivity.Format("2006-01-02 15:04"), summary)
			}
			return nil
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, chatStore *store.SQLStore) error {
			msgs, err := chatStore.ListMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				fmt.Println(msg.View())
				if msg.Caption != "" {
					fmt.Printf("    %s\n", msg.Caption)
				}
			}
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and all its messages",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, chatStore *store.SQLStore) error {
			return chatStore.DeleteConversation(cmd.Context(), args[0])
		}),
	}

	conversationsCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return conversationsCmd
}
